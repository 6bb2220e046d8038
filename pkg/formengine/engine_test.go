package formengine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/modules"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
)

type fakeCaller struct {
	mu       sync.Mutex
	calls    []string
	payloads []gateway.Payload
	err      error
}

func (f *fakeCaller) Call(_ context.Context, action string, payload gateway.Payload) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"status": "ok"}, nil
}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMaster struct {
	options   map[string][]string
	optionErr error
	lookups   map[string]string
	fetches   atomic.Int32
	gate      chan struct{}
}

func (f *fakeMaster) Options(_ context.Context, source string) ([]string, error) {
	f.fetches.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.optionErr != nil {
		return nil, f.optionErr
	}
	return f.options[source], nil
}

func (f *fakeMaster) LookupValue(_ context.Context, module, matchField, matchValue, mapTo string) (string, bool, error) {
	value, ok := f.lookups[module+"/"+matchField+"="+matchValue+"/"+mapTo]
	return value, ok, nil
}

func fixedClock() func() time.Time {
	at := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func loggedInSession(t *testing.T, username string) *session.Session {
	t.Helper()
	sess := session.New(session.NewMemoryStore())
	if err := sess.Login(session.User{Username: username, Role: "staff"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return sess
}

func entryFormConfig() modules.FormConfig {
	return modules.FormConfig{
		SheetID: "sheet-expense",
		Fields: []fieldconfig.FieldDescriptor{
			{Key: "date", Label: "Date", InputType: fieldconfig.InputDate, DataType: fieldconfig.DataDate, ShowInApp: true, FormRow: 1, FormColumn: 1},
			{Key: "qty", Label: "qty", InputType: fieldconfig.InputNumber, DataType: fieldconfig.DataPositiveNumber, ShowInApp: true, IsRequired: true, FormRow: 1, FormColumn: 2},
			{Key: "notes", Label: "Notes", InputType: fieldconfig.InputTextarea, DataType: fieldconfig.DataText, ShowInApp: true, FormRow: 2, FormColumn: 1},
		},
		Dropdowns: fieldconfig.OptionMap{},
	}
}

func TestLoadInitialisesDateFieldsToToday(t *testing.T) {
	engine := New("expense", entryFormConfig(), WithNow(fixedClock()))

	if got := engine.Value("date"); got != "2024-03-15" {
		t.Fatalf("Value(date) = %q, want 2024-03-15", got)
	}
	if got := engine.Value("qty"); got != "" {
		t.Fatalf("Value(qty) = %q, want empty", got)
	}
}

func TestFieldsFollowLayoutOrder(t *testing.T) {
	engine := New("expense", entryFormConfig())

	var keys []string
	for _, field := range engine.Fields() {
		keys = append(keys, field.Key)
	}
	want := []string{"date", "qty", "notes"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("layout order mismatch (-want +got):\n%s", diff)
	}

	rows := engine.Rows()
	if len(rows) != 2 {
		t.Fatalf("Rows() = %d rows, want 2", len(rows))
	}
	if len(rows[0]) != 2 || rows[0][0].Key != "date" || rows[0][1].Key != "qty" {
		t.Fatalf("first row = %+v, want date then qty", rows[0])
	}
}

func TestSubmitBlocksOnValidationWithoutNetwork(t *testing.T) {
	caller := &fakeCaller{}
	engine := New("expense", entryFormConfig(),
		WithCaller(caller),
		WithSession(loggedInSession(t, "asha")),
		WithNow(fixedClock()),
	)

	err := engine.Submit(context.Background())
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Submit() error = %v, want ErrValidationFailed", err)
	}
	if got := engine.Errors()["qty"]; got != "qty is required" {
		t.Fatalf("Errors()[qty] = %q, want %q", got, "qty is required")
	}
	if caller.callCount() != 0 {
		t.Fatalf("gateway calls = %d, want 0", caller.callCount())
	}
	// The user's input survives a failed validation.
	if got := engine.Value("date"); got != "2024-03-15" {
		t.Fatalf("Value(date) after failed submit = %q", got)
	}
}

func TestSubmitSendsEnrichedEntry(t *testing.T) {
	caller := &fakeCaller{}
	engine := New("expense", entryFormConfig(),
		WithCaller(caller),
		WithSession(loggedInSession(t, "asha")),
		WithNow(fixedClock()),
	)
	engine.SetValue("qty", "12")

	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if caller.callCount() != 1 || caller.calls[0] != "saveLogEntry" {
		t.Fatalf("calls = %v, want one saveLogEntry", caller.calls)
	}
	payload := caller.payloads[0]
	if payload["module"] != "expense" || payload["sheetId"] != "sheet-expense" || payload["tab"] != "master" {
		t.Fatalf("payload envelope = %+v", payload)
	}

	entry, ok := payload["entry"].(map[string]any)
	if !ok {
		t.Fatalf("entry is %T, want map", payload["entry"])
	}
	if entry["qty"] != "12" {
		t.Errorf("entry[qty] = %v, want 12", entry["qty"])
	}
	if entry["date"] != "15-Mar-2024" {
		t.Errorf("entry[date] = %v, want 15-Mar-2024", entry["date"])
	}
	if entry["createdBy"] != "asha" || entry["modifiedBy"] != "asha" {
		t.Errorf("audit users = %v / %v, want asha", entry["createdBy"], entry["modifiedBy"])
	}
	if entry["createdOn"] == "" || entry["createdOn"] != entry["modifiedOn"] {
		t.Errorf("createdOn %v and modifiedOn %v must match", entry["createdOn"], entry["modifiedOn"])
	}

	// Success resets the form to its defaults.
	if got := engine.Value("qty"); got != "" {
		t.Errorf("Value(qty) after submit = %q, want empty", got)
	}
	if got := engine.Value("date"); got != "2024-03-15" {
		t.Errorf("Value(date) after submit = %q, want today", got)
	}
	if len(engine.Errors()) != 0 {
		t.Errorf("Errors() after submit = %v, want empty", engine.Errors())
	}
}

func TestSubmitFailurePreservesInput(t *testing.T) {
	caller := &fakeCaller{err: errors.New("boom")}
	engine := New("expense", entryFormConfig(),
		WithCaller(caller),
		WithSession(loggedInSession(t, "asha")),
		WithNow(fixedClock()),
	)
	engine.SetValue("qty", "7")
	engine.SetValue("notes", "late delivery")

	if err := engine.Submit(context.Background()); err == nil {
		t.Fatal("Submit() error = nil, want failure")
	}
	if got := engine.Value("qty"); got != "7" {
		t.Errorf("Value(qty) = %q, want preserved 7", got)
	}
	if got := engine.Value("notes"); got != "late delivery" {
		t.Errorf("Value(notes) = %q, want preserved", got)
	}
}

func TestSubmitRejectsConcurrentAttempt(t *testing.T) {
	engine := New("expense", entryFormConfig(), WithNow(fixedClock()))
	engine.mu.Lock()
	engine.submitting = true
	engine.mu.Unlock()

	if err := engine.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("Submit() error = %v, want ErrSubmitInFlight", err)
	}
}

func TestSubmitResolvesSheetIDWithOneRefresh(t *testing.T) {
	caller := &fakeCaller{}
	resolver := &staleResolver{fresh: "sheet-late"}
	config := entryFormConfig()
	config.SheetID = ""
	engine := New("expense", config,
		WithCaller(caller),
		WithResolver(resolver),
		WithSession(loggedInSession(t, "asha")),
		WithNow(fixedClock()),
	)
	engine.SetValue("qty", "3")

	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("resolver calls = %d, want stale then refreshed", resolver.calls)
	}
	if caller.payloads[0]["sheetId"] != "sheet-late" {
		t.Fatalf("sheetId = %v, want sheet-late", caller.payloads[0]["sheetId"])
	}
}

type staleResolver struct {
	fresh string
	calls int
}

func (r *staleResolver) SheetID(_ context.Context, module string, refresh bool) (string, error) {
	r.calls++
	if !refresh {
		return "", &modules.ConfigError{Module: module, Reason: "no sheet id in module catalog"}
	}
	return r.fresh, nil
}

func dropdownConfig() modules.FormConfig {
	return modules.FormConfig{
		SheetID: "sheet-sale",
		Fields: []fieldconfig.FieldDescriptor{
			{
				Key: "product", Label: "Product", InputType: fieldconfig.InputDropdown,
				DataType: fieldconfig.DataText, ShowInApp: true,
				DropdownSource: "product.name",
			},
			{
				Key: "payment", Label: "Payment", InputType: fieldconfig.InputDropdown,
				DataType: fieldconfig.DataText, ShowInApp: true,
			},
		},
		Dropdowns: fieldconfig.OptionMap{"payment": {"Cash", "UPI"}},
	}
}

func TestOpenDropdownStaticOptions(t *testing.T) {
	engine := New("sale", dropdownConfig())

	got := engine.OpenDropdown(context.Background(), "payment")
	if diff := cmp.Diff([]string{"Cash", "UPI"}, got); diff != "" {
		t.Fatalf("payment options mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenDropdownLoadsLazilyOnce(t *testing.T) {
	master := &fakeMaster{options: map[string][]string{"product.name": {"Ghee", "Oil"}}}
	engine := New("sale", dropdownConfig(), WithMasterData(master))

	got := engine.OpenDropdown(context.Background(), "product")
	if diff := cmp.Diff([]string{"Ghee", "Oil"}, got); diff != "" {
		t.Fatalf("product options mismatch (-want +got):\n%s", diff)
	}

	engine.OpenDropdown(context.Background(), "product")
	if n := master.fetches.Load(); n != 1 {
		t.Fatalf("fetches = %d, want cached after first open", n)
	}
}

func TestOpenDropdownCoalescesConcurrentOpens(t *testing.T) {
	master := &fakeMaster{
		options: map[string][]string{"product.name": {"Ghee", "Oil"}},
		gate:    make(chan struct{}),
	}
	engine := New("sale", dropdownConfig(), WithMasterData(master))

	results := make(chan []string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- engine.OpenDropdown(context.Background(), "product")
		}()
	}

	// Let both opens start, then release the single fetch.
	time.Sleep(20 * time.Millisecond)
	close(master.gate)

	for i := 0; i < 2; i++ {
		got := <-results
		if diff := cmp.Diff([]string{"Ghee", "Oil"}, got); diff != "" {
			t.Fatalf("coalesced options mismatch (-want +got):\n%s", diff)
		}
	}
	if n := master.fetches.Load(); n != 1 {
		t.Fatalf("fetches = %d, want exactly 1 for concurrent opens", n)
	}
}

func TestOpenDropdownFailureYieldsEmptyList(t *testing.T) {
	master := &fakeMaster{optionErr: errors.New("backend down")}
	engine := New("sale", dropdownConfig(), WithMasterData(master))

	got := engine.OpenDropdown(context.Background(), "product")
	if len(got) != 0 {
		t.Fatalf("options after failed load = %v, want empty", got)
	}
	// The unrelated static field is untouched.
	if diff := cmp.Diff([]string{"Cash", "UPI"}, engine.OpenDropdown(context.Background(), "payment")); diff != "" {
		t.Fatalf("payment options mismatch (-want +got):\n%s", diff)
	}
}

func TestSetValueRunsDerivePass(t *testing.T) {
	config := entryFormConfig()
	derived := fieldconfig.FieldDescriptor{
		Key: "billName", Label: "Bill Name", InputType: fieldconfig.InputText,
		DataType: fieldconfig.DataText, ShowInApp: true, FormRow: 3,
	}
	derived.Derive = []fieldconfig.DeriveRule{{Mode: "default"}}
	derived.Derive[0].SetTo.FromField = "notes"
	config.Fields = append(config.Fields, derived)

	engine := New("expense", config, WithNow(fixedClock()))
	engine.SetValue("notes", "Ramesh")

	if got := engine.Value("billName"); got != "Ramesh" {
		t.Fatalf("Value(billName) = %q, want derived Ramesh", got)
	}

	// A user-entered value is kept; default mode only fills blanks.
	engine.SetValue("billName", "Custom")
	engine.SetValue("notes", "Suresh")
	if got := engine.Value("billName"); got != "Custom" {
		t.Fatalf("Value(billName) = %q, want user value kept", got)
	}
}

func TestVisibleNowAppliesShowWhen(t *testing.T) {
	config := entryFormConfig()
	conditional := fieldconfig.FieldDescriptor{
		Key: "vendor", Label: "Vendor", InputType: fieldconfig.InputText,
		DataType: fieldconfig.DataText, ShowInApp: true, FormRow: 3,
		ShowWhen: &fieldconfig.Condition{Field: "notes", Op: "=", Value: "purchase"},
	}
	config.Fields = append(config.Fields, conditional)
	engine := New("expense", config, WithNow(fixedClock()))

	keysOf := func(fields []fieldconfig.FieldDescriptor) []string {
		var keys []string
		for _, f := range fields {
			keys = append(keys, f.Key)
		}
		return keys
	}

	if got := keysOf(engine.VisibleNow()); len(got) != 3 {
		t.Fatalf("VisibleNow() = %v, want vendor hidden", got)
	}
	engine.SetValue("notes", "purchase")
	if got := keysOf(engine.VisibleNow()); len(got) != 4 {
		t.Fatalf("VisibleNow() = %v, want vendor shown", got)
	}
}

func TestRunLookupsSkipsEmptyMatchField(t *testing.T) {
	config := entryFormConfig()
	looked := fieldconfig.FieldDescriptor{
		Key: "packaging", Label: "Packaging", InputType: fieldconfig.InputText,
		DataType: fieldconfig.DataText, ShowInApp: true, FormRow: 3,
	}
	looked.Lookup = &fieldconfig.LookupRule{FromModule: "product", MapTo: "packaging"}
	looked.Lookup.Match.Field = "notes"
	config.Fields = append(config.Fields, looked)

	// A dump row with a blank match column would match an empty value.
	master := &fakeMaster{lookups: map[string]string{"product/notes=/packaging": "Mono Carton"}}
	engine := New("expense", config, WithMasterData(master), WithNow(fixedClock()))

	engine.RunLookups(context.Background())
	if got := engine.Value("packaging"); got != "" {
		t.Fatalf("Value(packaging) = %q, want empty while match field unset", got)
	}

	engine.SetValue("notes", "Oil")
	master.lookups["product/notes=Oil/packaging"] = "Tin"
	engine.RunLookups(context.Background())
	if got := engine.Value("packaging"); got != "Tin" {
		t.Fatalf("Value(packaging) = %q, want Tin once match field is set", got)
	}
}

func TestOpenDropdownLateCompletionDiscardedAfterLoad(t *testing.T) {
	master := &fakeMaster{
		options: map[string][]string{"product.name": {"Ghee", "Oil"}},
		gate:    make(chan struct{}),
	}
	engine := New("sale", dropdownConfig(), WithMasterData(master))

	results := make(chan []string, 1)
	go func() {
		results <- engine.OpenDropdown(context.Background(), "product")
	}()

	// Let the fetch start, switch modules underneath it, then release it.
	time.Sleep(20 * time.Millisecond)
	engine.Load("sale", dropdownConfig())
	close(master.gate)

	// The abandoned open still resolves for its waiter.
	if diff := cmp.Diff([]string{"Ghee", "Oil"}, <-results); diff != "" {
		t.Fatalf("late open result mismatch (-want +got):\n%s", diff)
	}

	// The reloaded form's option map stays untouched by the late write.
	engine.mu.Lock()
	stale := engine.options["product"]
	engine.mu.Unlock()
	if len(stale) != 0 {
		t.Fatalf("options[product] = %v after reload, want empty", stale)
	}
}

func TestRunLookupsFillsFromForeignModule(t *testing.T) {
	config := entryFormConfig()
	looked := fieldconfig.FieldDescriptor{
		Key: "rate", Label: "Rate", InputType: fieldconfig.InputNumber,
		DataType: fieldconfig.DataNumber, ShowInApp: true, FormRow: 3,
	}
	looked.Lookup = &fieldconfig.LookupRule{FromModule: "product", MapTo: "sellingPrice"}
	looked.Lookup.Match.Field = "notes"
	config.Fields = append(config.Fields, looked)

	master := &fakeMaster{lookups: map[string]string{"product/notes=Oil/sellingPrice": "450"}}
	engine := New("expense", config, WithMasterData(master), WithNow(fixedClock()))

	engine.SetValue("notes", "Oil")
	engine.RunLookups(context.Background())
	if got := engine.Value("rate"); got != "450" {
		t.Fatalf("Value(rate) = %q, want looked-up 450", got)
	}

	// An edited value is not overridden without allowUserOverride.
	engine.SetValue("rate", "999")
	engine.RunLookups(context.Background())
	if got := engine.Value("rate"); got != "999" {
		t.Fatalf("Value(rate) = %q, want user value kept", got)
	}
}
