package form

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/config"
	"github.com/sw33tLie/kselect/pkg/selector"
)

type fakeFetcher struct {
	entries []company.Entry
	err     error
	calls   int
}

func (f *fakeFetcher) FetchCompanies(ctx context.Context) ([]company.Entry, error) {
	f.calls++
	return f.entries, f.err
}

var masterList = []company.Entry{
	{Name: "A", BpoID: "1", GoogleDriveID: "g1"},
	{Name: "B", BpoID: "2", GoogleDriveID: "g2"},
}

func testConfig() config.App {
	cfg := config.Default()
	cfg.Kintone.BaseURL = "https://example.com"
	cfg.Kintone.APIToken = "t"
	return cfg
}

func newPage(t *testing.T, space string) *Page {
	t.Helper()
	p, err := ParsePage(strings.NewReader(`<html><body><form><div ` + SPACE_ATTR + `="` + space + `"></div></form></body></html>`))
	if err != nil {
		t.Fatalf("could not parse page: %v", err)
	}
	return p
}

func fullRecord() Record {
	cfg := testConfig()
	return Record{
		cfg.Form.StoreField:              {Value: ""},
		cfg.Form.BpoIDStoreField:         {Value: ""},
		cfg.Form.GoogleDriveIDStoreField: {Value: ""},
	}
}

func TestShow_RendersWithPreSelection(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{entries: masterList}
	h := NewHandlers(cfg, fetcher)
	page := newPage(t, cfg.Form.SpaceField)

	rec := fullRecord()
	rec.Set(cfg.Form.StoreField, "B")
	res := h.Show(context.Background(), &Event{Type: EventEditShow, Record: rec}, page)

	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := page.Selection.SelectedNames(); len(got) != 1 || got[0] != "B" {
		t.Fatalf("expected B to be pre-selected, got %v", got)
	}
	out, _ := page.HTML()
	if !strings.Contains(out, `id="`+cfg.Form.ControlID+`"`) {
		t.Fatalf("control not rendered:\n%s", out)
	}
}

func TestShow_MissingSpace(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{entries: masterList}
	h := NewHandlers(cfg, fetcher)
	ev := &Event{Type: EventCreateShow, Record: fullRecord()}

	res := h.Show(context.Background(), ev, newPage(t, "other_space"))
	if !errors.Is(res.Err, ErrNoSpace) {
		t.Fatalf("expected ErrNoSpace, got %v", res.Err)
	}
	if res.Event != ev {
		t.Fatal("expected the event to be handed back")
	}
	if fetcher.calls != 0 {
		t.Fatal("fetch should not run without a space field")
	}
}

func TestShow_FetchFailure(t *testing.T) {
	cfg := testConfig()
	boom := errors.New("boom")
	h := NewHandlers(cfg, &fakeFetcher{err: boom})
	page := newPage(t, cfg.Form.SpaceField)
	before, _ := page.HTML()

	rec := fullRecord()
	rec.Set(cfg.Form.StoreField, "A")
	res := h.Show(context.Background(), &Event{Type: EventCreateShow, Record: rec}, page)

	if !errors.Is(res.Err, ErrFetch) || !errors.Is(res.Err, boom) {
		t.Fatalf("expected fetch error, got %v", res.Err)
	}
	if res.Event.Record.Value(cfg.Form.StoreField) != "A" {
		t.Fatal("event should be unmodified")
	}
	after, _ := page.HTML()
	if before != after {
		t.Fatal("page should not be rendered on fetch failure")
	}
}

func TestSubmit_WritesAllStores(t *testing.T) {
	cfg := testConfig()
	h := NewHandlers(cfg, &fakeFetcher{entries: masterList})
	page := newPage(t, cfg.Form.SpaceField)
	ev := &Event{Type: EventEditShow, Record: fullRecord()}
	h.Show(context.Background(), ev, page)

	selector.New(cfg.Form).Mark(page.Root, []string{"A", "B"})

	ev.Type = EventEditSubmit
	res := h.Submit(context.Background(), ev, page)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	rec := res.Event.Record
	if v := rec.Value(cfg.Form.StoreField); v != "A\nB" {
		t.Fatalf("unexpected store value %q", v)
	}
	if v := rec.Value(cfg.Form.BpoIDStoreField); v != "1,2" {
		t.Fatalf("unexpected bpo store value %q", v)
	}
	if v := rec.Value(cfg.Form.GoogleDriveIDStoreField); v != "g1,g2" {
		t.Fatalf("unexpected drive store value %q", v)
	}
}

func TestSubmit_MissingSecondaryField(t *testing.T) {
	cfg := testConfig()
	h := NewHandlers(cfg, &fakeFetcher{entries: masterList})
	page := newPage(t, cfg.Form.SpaceField)
	rec := Record{
		cfg.Form.StoreField:              {Value: ""},
		cfg.Form.GoogleDriveIDStoreField: {Value: ""},
	}
	ev := &Event{Type: EventCreateShow, Record: rec}
	h.Show(context.Background(), ev, page)
	selector.New(cfg.Form).Mark(page.Root, []string{"B"})

	res := h.Submit(context.Background(), ev, page)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Event.Record.Has(cfg.Form.BpoIDStoreField) {
		t.Fatal("missing field should not be created")
	}
	if v := res.Event.Record.Value(cfg.Form.StoreField); v != "B" {
		t.Fatalf("unexpected store value %q", v)
	}
	if v := res.Event.Record.Value(cfg.Form.GoogleDriveIDStoreField); v != "g2" {
		t.Fatalf("unexpected drive store value %q", v)
	}
}

func TestSubmit_NoControl(t *testing.T) {
	cfg := testConfig()
	h := NewHandlers(cfg, &fakeFetcher{})
	rec := fullRecord()
	rec.Set(cfg.Form.StoreField, "A")

	res := h.Submit(context.Background(), &Event{Type: EventCreateSubmit, Record: rec}, newPage(t, cfg.Form.SpaceField))
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if v := res.Event.Record.Value(cfg.Form.StoreField); v != "" {
		t.Fatalf("expected empty selection, got %q", v)
	}
	if v := res.Event.Record.Value(cfg.Form.BpoIDStoreField); v != "" {
		t.Fatalf("expected empty bpo ids, got %q", v)
	}
}

func TestSubmit_StructuredStore(t *testing.T) {
	cfg := testConfig()
	cfg.Form.StructuredStoreField = "company_json"
	h := NewHandlers(cfg, &fakeFetcher{entries: masterList})
	page := newPage(t, cfg.Form.SpaceField)
	rec := fullRecord()
	rec["company_json"] = &Field{}
	ev := &Event{Type: EventCreateShow, Record: rec}
	h.Show(context.Background(), ev, page)
	selector.New(cfg.Form).Mark(page.Root, []string{"A"})

	res := h.Submit(context.Background(), ev, page)
	want := `[{"name":"A","bpoId":"1","googleDriveId":"g1"}]`
	if v := res.Event.Record.Value("company_json"); v != want {
		t.Fatalf("want %s, got %s", want, v)
	}

	// The structured store drives pre-selection on the next display.
	page = newPage(t, cfg.Form.SpaceField)
	res.Event.Record.Set(cfg.Form.StoreField, "")
	h.Show(context.Background(), res.Event, page)
	if got := page.Selection.SelectedNames(); len(got) != 1 || got[0] != "A" {
		t.Fatalf("expected A pre-selected from structured store, got %v", got)
	}
}

func TestRuntime_Dispatch(t *testing.T) {
	cfg := testConfig()
	rt := NewRuntime()
	Register(rt, NewHandlers(cfg, &fakeFetcher{entries: masterList}))
	page := newPage(t, cfg.Form.SpaceField)
	rec := fullRecord()
	rec.Set(cfg.Form.StoreField, "A\nB")

	res := <-rt.DispatchAsync(context.Background(), &Event{Type: EventEditShow, Record: rec}, page)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	res = rt.Dispatch(context.Background(), &Event{Type: EventEditSubmit, Record: res.Event.Record}, page)
	if v := res.Event.Record.Value(cfg.Form.StoreField); v != "A\nB" {
		t.Fatalf("selection did not survive show/submit, got %q", v)
	}

	res = rt.Dispatch(context.Background(), &Event{Type: "app.record.index.show", Record: rec}, page)
	if !res.OK() || res.Event == nil {
		t.Fatal("unknown events should pass through")
	}
}

func TestRuntime_JoinsErrors(t *testing.T) {
	rt := NewRuntime()
	first := errors.New("first")
	rt.On([]string{"x"}, func(ctx context.Context, ev *Event, _ *Page) Result { return Result{Event: ev, Err: first} })
	rt.On([]string{"x"}, func(ctx context.Context, ev *Event, _ *Page) Result {
		ev.Record.Set("seen", "yes")
		return Result{Event: ev}
	})

	res := rt.Dispatch(context.Background(), &Event{Type: "x", Record: Record{}}, nil)
	if !errors.Is(res.Err, first) {
		t.Fatalf("expected joined error, got %v", res.Err)
	}
	if res.Event.Record.Value("seen") != "yes" {
		t.Fatal("later handlers should still run")
	}
}
