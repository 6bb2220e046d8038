package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/modules"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/render"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/renderers/htmlform"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/sessioncache"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/validation"
)

// app bundles the wired collaborators every command works through. One app
// spans one CLI invocation; the session store (and so every cache) lives
// exactly that long.
type app struct {
	config     Config
	logger     *zap.SugaredLogger
	session    *session.Session
	client     *gateway.Client
	catalog    *modules.Catalog
	master     *modules.MasterStore
	loader     *modules.ConfigLoader
	validators *validation.Registry
	renderers  *render.Registry
}

func newApp(cfg Config) (*app, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured; set endpoint in %s or pass --endpoint", defaultConfigName)
	}

	logger, err := buildLogger(cfg.Verbose)
	if err != nil {
		return nil, err
	}

	sess := session.New(session.NewMemoryStore())
	if cfg.Username != "" {
		if err := sess.Login(session.User{Username: cfg.Username, Role: cfg.Role}); err != nil {
			return nil, err
		}
	}

	client, err := gateway.New(cfg.Endpoint, gateway.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	catalogTTL, configTTL, dumpTTL, err := cfg.Cache.ttls()
	if err != nil {
		return nil, err
	}
	store := sess.Store()
	moduleCache := sessioncache.New(store, catalogTTL, sessioncache.WithLogger(logger))
	configCache := sessioncache.New(store, configTTL, sessioncache.WithLogger(logger))
	dumpCache := sessioncache.New(store, dumpTTL, sessioncache.WithLogger(logger))

	catalog := modules.NewCatalog(client, moduleCache, modules.WithCatalogLogger(logger))
	master := modules.NewMasterStore(client, dumpCache, store, modules.WithMasterLogger(logger))
	loader := modules.NewConfigLoader(client, catalog, configCache, modules.WithLoaderLogger(logger))

	renderers := render.NewRegistry()
	htmlRenderer, err := htmlform.New()
	if err != nil {
		return nil, err
	}
	renderers.MustRegister(htmlRenderer)

	return &app{
		config:     cfg,
		logger:     logger,
		session:    sess,
		client:     client,
		catalog:    catalog,
		master:     master,
		loader:     loader,
		validators: validation.NewRegistry(),
		renderers:  renderers,
	}, nil
}

func buildLogger(verbose bool) (*zap.SugaredLogger, error) {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return logger.Sugar(), nil
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
