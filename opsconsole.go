// Package opsconsole re-exports the console's primary building blocks so
// embedding applications can wire a working stack from one import: the
// gateway client, the session caches, the module stores, and the form
// engine.
package opsconsole

import (
	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/formengine"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/modules"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/render"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/sessioncache"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/validation"
)

// FieldDescriptor is one logical input of a module form.
type FieldDescriptor = fieldconfig.FieldDescriptor

// OptionMap maps field keys to their option lists.
type OptionMap = fieldconfig.OptionMap

// FormConfig is a module's ready-to-render form configuration.
type FormConfig = modules.FormConfig

// Dump is a module's cached master-data snapshot.
type Dump = modules.Dump

// User is the logged-in user record.
type User = session.User

// Engine owns one module form's state and submission lifecycle.
type Engine = formengine.Engine

// View is the read-only snapshot renderers consume.
type View = render.View

// Stack bundles the wired collaborators for one session.
type Stack struct {
	Session    *session.Session
	Client     *gateway.Client
	Auth       *modules.Authenticator
	Catalog    *modules.Catalog
	Master     *modules.MasterStore
	Loader     *modules.ConfigLoader
	Validators *validation.Registry
	Renderers  *render.Registry
}

// NewStack wires a full console stack against the given backend endpoint.
// The session store backs every cache, so logging out clears them all.
func NewStack(endpoint string, options ...gateway.Option) (*Stack, error) {
	sess := session.New(session.NewMemoryStore())

	client, err := gateway.New(endpoint, options...)
	if err != nil {
		return nil, err
	}

	store := sess.Store()
	catalog := modules.NewCatalog(client, sessioncache.New(store, sessioncache.ModuleMetadataTTL))
	master := modules.NewMasterStore(client, sessioncache.New(store, sessioncache.MasterDumpTTL), store)
	loader := modules.NewConfigLoader(client, catalog, sessioncache.New(store, sessioncache.FormConfigTTL))

	return &Stack{
		Session:    sess,
		Client:     client,
		Auth:       modules.NewAuthenticator(client, sess),
		Catalog:    catalog,
		Master:     master,
		Loader:     loader,
		Validators: validation.NewRegistry(),
		Renderers:  render.NewRegistry(),
	}, nil
}

// NewEngine constructs a form engine for a module wired to the stack's
// collaborators.
func (s *Stack) NewEngine(module string, config FormConfig, options ...formengine.Option) *Engine {
	base := []formengine.Option{
		formengine.WithCaller(s.Client),
		formengine.WithMasterData(s.Master),
		formengine.WithResolver(s.Catalog),
		formengine.WithValidators(s.Validators),
		formengine.WithSession(s.Session),
	}
	return formengine.New(module, config, append(base, options...)...)
}
