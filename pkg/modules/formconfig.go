package modules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/sessioncache"
)

// FormConfig is one module's ready-to-render form configuration: the
// visible field descriptors, the statically supplied dropdown options, and
// the resolved storage handle.
type FormConfig struct {
	Fields    []fieldconfig.FieldDescriptor `json:"fields"`
	Dropdowns fieldconfig.OptionMap         `json:"dropdowns"`
	SheetID   string                        `json:"sheetId"`
}

// ConfigError is the loud failure for a broken form configuration: a
// missing storage handle or an empty normalized field list. It blocks the
// form-load attempt; a silently blank form is worse than a visible error.
type ConfigError struct {
	Module string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("modules: configuration error for %q: %s", e.Module, e.Reason)
}

// ConfigLoader fetches and normalizes per-module form configurations, cached
// for six hours. A config change upstream is only picked up after expiry or
// an explicit cache clear.
type ConfigLoader struct {
	caller     Caller
	catalog    *Catalog
	cache      *sessioncache.Cache
	normalizer *fieldconfig.Normalizer
	logger     *zap.SugaredLogger
}

// LoaderOption customises the loader.
type LoaderOption func(*ConfigLoader)

// WithLoaderLogger injects a structured logger.
func WithLoaderLogger(logger *zap.SugaredLogger) LoaderOption {
	return func(l *ConfigLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithNormalizer overrides the config normalizer.
func WithNormalizer(n *fieldconfig.Normalizer) LoaderOption {
	return func(l *ConfigLoader) {
		if n != nil {
			l.normalizer = n
		}
	}
}

// NewConfigLoader constructs the loader. The cache should carry the
// form-config TTL (six hours).
func NewConfigLoader(caller Caller, catalog *Catalog, cache *sessioncache.Cache, options ...LoaderOption) *ConfigLoader {
	l := &ConfigLoader{
		caller:     caller,
		catalog:    catalog,
		cache:      cache,
		normalizer: fieldconfig.NewNormalizer(),
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

func configKey(module string) string {
	return module + "_formConfigCache"
}

// Fetch returns the module's form configuration, from cache when fresh. The
// empty-field-list case is promoted to a *ConfigError here; the normalizer
// itself never fails loudly.
func (l *ConfigLoader) Fetch(ctx context.Context, module string) (FormConfig, error) {
	key := configKey(module)

	var cached FormConfig
	if l.cache.Get(key, &cached) {
		return cached, nil
	}

	sheetID, err := l.catalog.SheetID(ctx, module, false)
	if err != nil {
		// The catalog may be stale; refresh it once before failing loudly.
		sheetID, err = l.catalog.SheetID(ctx, module, true)
	}
	if err != nil {
		return FormConfig{}, &ConfigError{Module: module, Reason: "no sheet id in module catalog"}
	}

	rawConfig, err := l.caller.Call(ctx, "getSheetData", gateway.Payload{"sheetId": sheetID, "tab": "config"})
	if err != nil {
		return FormConfig{}, fmt.Errorf("modules: fetch config for %q: %w", module, err)
	}
	rawDropdowns, err := l.caller.Call(ctx, "getSheetData", gateway.Payload{"sheetId": sheetID, "tab": "dropdowns"})
	if err != nil {
		return FormConfig{}, fmt.Errorf("modules: fetch dropdowns for %q: %w", module, err)
	}

	fields := fieldconfig.Visible(l.normalizer.NormalizeConfig(rawConfig))
	if len(fields) == 0 {
		l.logger.Errorw("config normalization produced no fields", "module", module)
		return FormConfig{}, &ConfigError{Module: module, Reason: "form configuration empty"}
	}

	config := FormConfig{
		Fields:    fields,
		Dropdowns: l.normalizer.NormalizeDropdowns(rawDropdowns),
		SheetID:   sheetID,
	}
	l.cache.Set(key, config)
	return config, nil
}

// Invalidate drops the cached configuration for a module, the explicit
// cache clear used when a config change must be picked up before expiry.
func (l *ConfigLoader) Invalidate(module string) {
	l.cache.Delete(configKey(module))
}
