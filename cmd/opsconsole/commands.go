package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig/openapiimport"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/formengine"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/modules"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/paginate"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/render"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/renderers/tui"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		endpoint   string
		username   string
		verbose    bool
		cfg        Config
	)

	root := &cobra.Command{
		Use:           "opsconsole",
		Short:         "Terminal console for spreadsheet-backed business records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			if endpoint != "" {
				cfg.Endpoint = endpoint
			}
			if username != "" {
				cfg.Username = username
			}
			if verbose {
				cfg.Verbose = true
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/"+defaultConfigName+")")
	root.PersistentFlags().StringVar(&endpoint, "endpoint", "", "backend gateway URL")
	root.PersistentFlags().StringVar(&username, "user", "", "acting username for audit columns")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newLoginCmd(&cfg, &configPath),
		newModulesCmd(&cfg),
		newBrowseCmd(&cfg),
		newEntryCmd(&cfg),
		newPreviewCmd(&cfg),
		newDeleteCmd(&cfg),
		newImportConfigCmd(),
	)
	return root
}

func newLoginCmd(cfg *Config, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials against the backend and remember the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			driver := tui.NewSurveyDriver()

			username := cfg.Username
			if username == "" {
				username, err = driver.Input(cmd.Context(), tui.InputConfig{Message: "Username"})
				if err != nil {
					return err
				}
			}
			password, err := driver.Password(cmd.Context(), tui.InputConfig{Message: "Password"})
			if err != nil {
				return err
			}

			auth := modules.NewAuthenticator(a.client, a.session, modules.WithAuthLogger(a.logger))
			user, err := auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			saved := *cfg
			saved.Username = user.Username
			saved.Role = user.Role
			if err := saveConfig(*configPath, saved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.Username)
			return nil
		},
	}
}

func newModulesCmd(cfg *Config) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the configured modules by navigation group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			groups, err := a.catalog.Fetch(cmd.Context(), refresh)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tMODULE\tLABEL")
			for _, group := range groups {
				for _, ref := range group.Modules {
					fmt.Fprintf(w, "%s\t%s\t%s\n", group.Title, ref.Module, ref.Label)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached catalog")
	return cmd
}

func newBrowseCmd(cfg *Config) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "browse <module>",
		Short: "Page through a module's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			module := args[0]

			dump, err := a.master.Fetch(cmd.Context(), module)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.PageSize
			}
			window := paginate.Paginate(dump.Rows, page, limit)

			headers := dump.Headers
			if len(headers) == 0 && len(window.Slice) > 0 {
				for key := range window.Slice[0] {
					headers = append(headers, key)
				}
				sort.Strings(headers)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(headers, "\t")))
			for _, row := range window.Slice {
				cells := make([]string, len(headers))
				for i, header := range headers {
					cells[i] = fmt.Sprintf("%v", valueOrEmpty(row[header]))
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d of %d (%d records)\n", window.Page, window.Pages, window.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "records per page")
	return cmd
}

func newEntryCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "entry <module>",
		Short: "Capture a new record through the module's form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			module := args[0]
			driver := tui.NewSurveyDriver()

			if _, loggedIn := a.session.User(); !loggedIn {
				name, err := driver.Input(cmd.Context(), tui.InputConfig{Message: "Username"})
				if err != nil {
					return err
				}
				if err := a.session.Login(session.User{Username: name}); err != nil {
					return err
				}
			}

			config, err := a.loader.Fetch(cmd.Context(), module)
			if err != nil {
				return err
			}
			engine := formengine.New(module, config,
				formengine.WithCaller(a.client),
				formengine.WithMasterData(a.master),
				formengine.WithResolver(a.catalog),
				formengine.WithValidators(a.validators),
				formengine.WithSession(a.session),
				formengine.WithLogger(a.logger),
			)

			return tui.NewWalker(engine, driver).Run(cmd.Context())
		},
	}
}

func newPreviewCmd(cfg *Config) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "preview <module>",
		Short: "Render a module's form as a static document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			module := args[0]

			config, err := a.loader.Fetch(cmd.Context(), module)
			if err != nil {
				return err
			}
			engine := formengine.New(module, config, formengine.WithLogger(a.logger))

			renderer, err := a.renderers.Get(format)
			if err != nil {
				return err
			}
			out, err := renderer.Render(cmd.Context(), engine.Snapshot(), render.Options{})
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %q: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "form written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&format, "format", "html", "renderer to use")
	return cmd
}

func newDeleteCmd(cfg *Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <module> <entryId>",
		Short: "Delete a record by its entry id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			module, entryID := args[0], args[1]

			if !yes {
				confirmed, err := tui.NewSurveyDriver().Confirm(cmd.Context(), tui.ConfirmConfig{
					Message: fmt.Sprintf("Delete %s record %s?", module, entryID),
				})
				if err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}
			if err := a.master.Delete(cmd.Context(), module, entryID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s from %s\n", entryID, module)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newImportConfigCmd() *cobra.Command {
	var schemaName string

	cmd := &cobra.Command{
		Use:   "import-config <openapi-file>",
		Short: "Generate config sheet rows from an OpenAPI schema",
		Long: `Generate config sheet rows from an OpenAPI component schema.

The output is the JSON row set to paste into a module's config tab:
field descriptors plus any enum-derived dropdown options.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer := openapiimport.New()
			fields, options, err := importer.FromFile(cmd.Context(), args[0], schemaName)
			if err != nil {
				return err
			}

			payload := struct {
				Fields    []fieldconfig.FieldDescriptor `json:"fields"`
				Dropdowns fieldconfig.OptionMap         `json:"dropdowns,omitempty"`
			}{Fields: fields, Dropdowns: options}

			encoded, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaName, "schema", "", "component schema to import")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func valueOrEmpty(value any) any {
	if value == nil {
		return ""
	}
	return value
}
