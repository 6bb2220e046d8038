// Package modules wires the gateway, the session caches, and the normalizer
// into the three remote datasets the console works with: the module catalog,
// per-module master-data dumps, and per-module form configurations.
package modules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/sessioncache"
)

// Caller is the gateway surface this package depends on.
type Caller interface {
	Call(ctx context.Context, action string, payload gateway.Payload) (any, error)
}

// ModuleRef resolves one module name to its storage handle.
type ModuleRef struct {
	Module  string `json:"module"`
	Label   string `json:"label"`
	SheetID string `json:"sheetId"`
}

// Group is one navigation group of the module catalog.
type Group struct {
	ParentModule string      `json:"parentModule"`
	Title        string      `json:"title"`
	Modules      []ModuleRef `json:"modules"`
}

const catalogCacheKey = "appModulesCache"

// ErrUnknownModule reports a module name absent from the catalog.
var ErrUnknownModule = errors.New("modules: module not present in catalog")

// Catalog caches the module metadata for an hour and resolves module names
// to sheet ids.
type Catalog struct {
	caller Caller
	cache  *sessioncache.Cache
	logger *zap.SugaredLogger
}

// CatalogOption customises the catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger injects a structured logger.
func WithCatalogLogger(logger *zap.SugaredLogger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog constructs a catalog over the given gateway and cache. The
// cache should carry the module-metadata TTL (one hour).
func NewCatalog(caller Caller, cache *sessioncache.Cache, options ...CatalogOption) *Catalog {
	c := &Catalog{
		caller: caller,
		cache:  cache,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Fetch returns the module groups, from cache when fresh. force bypasses and
// overwrites any existing entry.
func (c *Catalog) Fetch(ctx context.Context, force bool) ([]Group, error) {
	if force {
		c.cache.Delete(catalogCacheKey)
	} else {
		var cached []Group
		if c.cache.Get(catalogCacheKey, &cached) {
			return cached, nil
		}
	}

	raw, err := c.caller.Call(ctx, "getAppModules", gateway.Payload{"force": force})
	if err != nil {
		return nil, fmt.Errorf("modules: fetch catalog: %w", err)
	}

	groups, err := decodeGroups(raw)
	if err != nil {
		return nil, err
	}

	c.cache.Set(catalogCacheKey, groups)
	return groups, nil
}

// SheetID resolves a module name to its storage handle. With refresh set the
// catalog entry is re-fetched first, the one retry the submission path is
// allowed after a miss.
func (c *Catalog) SheetID(ctx context.Context, module string, refresh bool) (string, error) {
	groups, err := c.Fetch(ctx, refresh)
	if err != nil {
		return "", err
	}
	for _, group := range groups {
		for _, ref := range group.Modules {
			if ref.Module == module {
				if ref.SheetID == "" {
					return "", fmt.Errorf("modules: module %q has no sheet id: %w", module, ErrUnknownModule)
				}
				return ref.SheetID, nil
			}
		}
	}
	return "", fmt.Errorf("modules: %q: %w", module, ErrUnknownModule)
}

func decodeGroups(raw any) ([]Group, error) {
	// The backend may wrap the group list under "data".
	if wrapped, ok := raw.(map[string]any); ok {
		if inner, exists := wrapped["data"]; exists {
			return decodeGroups(inner)
		}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("modules: encode catalog payload: %w", err)
	}
	var groups []Group
	if err := json.Unmarshal(encoded, &groups); err != nil {
		return nil, fmt.Errorf("modules: catalog payload has unknown shape: %w", err)
	}
	return groups, nil
}
