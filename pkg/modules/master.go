package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/sessioncache"
)

// Dump is one module's cached master-data snapshot.
type Dump struct {
	Headers      []string         `json:"headers"`
	Rows         []map[string]any `json:"rows"`
	TotalRecords int              `json:"totalRecords"`
}

// MasterStore fetches, caches and mutates per-module master data. Dumps live
// for six hours and are invalidated per module the moment that module's
// records change.
type MasterStore struct {
	caller Caller
	cache  *sessioncache.Cache
	store  session.Store
	logger *zap.SugaredLogger
	newID  func() string
}

// MasterOption customises the store.
type MasterOption func(*MasterStore)

// WithMasterLogger injects a structured logger.
func WithMasterLogger(logger *zap.SugaredLogger) MasterOption {
	return func(s *MasterStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides the record id generator, used by tests for
// deterministic ids.
func WithIDGenerator(gen func() string) MasterOption {
	return func(s *MasterStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewMasterStore constructs the store. The cache should carry the
// master-dump TTL (six hours); the raw session store is needed to migrate
// legacy unwrapped cache entries.
func NewMasterStore(caller Caller, cache *sessioncache.Cache, store session.Store, options ...MasterOption) *MasterStore {
	s := &MasterStore{
		caller: caller,
		cache:  cache,
		store:  store,
		logger: zap.NewNop().Sugar(),
		newID:  uuid.NewString,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func dumpKey(module string) string {
	return "dump_" + module
}

// Fetch returns the module's dump, from cache when fresh. Legacy cache
// entries written without the timestamp envelope are accepted once and
// rewritten in the wrapped shape.
func (s *MasterStore) Fetch(ctx context.Context, module string) (Dump, error) {
	key := dumpKey(module)

	var cached Dump
	if s.cache.Get(key, &cached) {
		return cached, nil
	}
	if legacy, ok := s.legacyDump(key); ok {
		s.cache.Set(key, legacy)
		return legacy, nil
	}

	raw, err := s.caller.Call(ctx, "getMasterData", gateway.Payload{"module": module})
	if err != nil {
		return Dump{}, fmt.Errorf("modules: fetch master data for %q: %w", module, err)
	}

	dump, err := decodeDump(raw)
	if err != nil {
		s.logger.Warnw("master dump has unknown shape", "module", module, "error", err)
		return Dump{}, err
	}

	s.cache.Set(key, dump)
	return dump, nil
}

// Add appends a record to the module's sheet and invalidates only that
// module's dump. Records get a generated entryId before submission.
func (s *MasterStore) Add(ctx context.Context, module string, record map[string]any, userID string) error {
	payload := make(map[string]any, len(record)+1)
	for key, value := range record {
		payload[key] = value
	}
	if _, ok := payload["entryId"]; !ok {
		payload["entryId"] = s.newID()
	}

	_, err := s.caller.Call(ctx, "addRecord", gateway.Payload{"module": module, "data": payload, "userId": userID})
	if err != nil {
		return fmt.Errorf("modules: add record to %q: %w", module, err)
	}
	s.cache.Delete(dumpKey(module))
	return nil
}

// Edit updates an existing record and invalidates the module's dump.
func (s *MasterStore) Edit(ctx context.Context, module string, record map[string]any, userID string) error {
	_, err := s.caller.Call(ctx, "editRecord", gateway.Payload{"module": module, "data": record, "userId": userID})
	if err != nil {
		return fmt.Errorf("modules: edit record in %q: %w", module, err)
	}
	s.cache.Delete(dumpKey(module))
	return nil
}

// Delete removes the record with the given primary key and invalidates the
// module's dump.
func (s *MasterStore) Delete(ctx context.Context, module string, primaryKey string) error {
	_, err := s.caller.Call(ctx, "deleteRecord", gateway.Payload{"module": module, "primaryKey": primaryKey})
	if err != nil {
		return fmt.Errorf("modules: delete record from %q: %w", module, err)
	}
	s.cache.Delete(dumpKey(module))
	return nil
}

// Options derives a dropdown option list from a "<module>.<property>"
// source: distinct, non-empty, stringified values of that column, sorted
// lexicographically. The property resolves case-insensitively against the
// first row when no exact match exists.
func (s *MasterStore) Options(ctx context.Context, source string) ([]string, error) {
	module, property, ok := fieldconfig.SplitModuleSource(source)
	if !ok {
		return nil, fmt.Errorf("modules: %q is not a module-qualified source", source)
	}

	dump, err := s.Fetch(ctx, module)
	if err != nil {
		return nil, err
	}
	if len(dump.Rows) == 0 {
		return []string{}, nil
	}

	resolved := property
	if _, exact := dump.Rows[0][resolved]; !exact {
		lower := strings.ToLower(property)
		for key := range dump.Rows[0] {
			if strings.ToLower(key) == lower {
				resolved = key
				break
			}
		}
	}

	set := make(map[string]struct{})
	for _, row := range dump.Rows {
		value := strings.TrimSpace(anyToString(row[resolved]))
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}

	options := make([]string, 0, len(set))
	for value := range set {
		options = append(options, value)
	}
	sort.Strings(options)
	return options, nil
}

// LookupValue finds the first row of the module's dump whose match column
// equals matchValue and returns the mapped column, stringified. A missing
// row reports ok=false, not an error.
func (s *MasterStore) LookupValue(ctx context.Context, module, matchField, matchValue, mapTo string) (string, bool, error) {
	dump, err := s.Fetch(ctx, module)
	if err != nil {
		return "", false, err
	}
	for _, row := range dump.Rows {
		if anyToString(row[matchField]) == matchValue {
			return strings.TrimSpace(anyToString(row[mapTo])), true, nil
		}
	}
	return "", false, nil
}

func (s *MasterStore) legacyDump(key string) (Dump, bool) {
	raw, ok := s.store.Get(key)
	if !ok {
		return Dump{}, false
	}
	var dump Dump
	if err := json.Unmarshal([]byte(raw), &dump); err != nil {
		return Dump{}, false
	}
	if len(dump.Headers) == 0 && len(dump.Rows) == 0 {
		return Dump{}, false
	}
	s.logger.Debugw("migrating legacy dump cache entry", "key", key)
	return dump, true
}

func decodeDump(raw any) (Dump, error) {
	// Unwrap {data: {...}} envelopes recursively.
	if wrapped, ok := raw.(map[string]any); ok {
		if inner, exists := wrapped["data"]; exists {
			if _, isMap := inner.(map[string]any); isMap {
				return decodeDump(inner)
			}
		}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return Dump{}, fmt.Errorf("modules: encode dump payload: %w", err)
	}
	var dump Dump
	if err := json.Unmarshal(encoded, &dump); err != nil {
		return Dump{}, fmt.Errorf("modules: dump payload has unknown shape: %w", err)
	}
	if dump.TotalRecords == 0 {
		dump.TotalRecords = len(dump.Rows)
	}
	return dump, nil
}

func anyToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers arrive as float64; format without a trailing ".0".
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
