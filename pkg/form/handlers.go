package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/sw33tLie/kselect/internal/utils"
	"github.com/sw33tLie/kselect/pkg/codec"
	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/config"
	"github.com/sw33tLie/kselect/pkg/kintone"
	"github.com/sw33tLie/kselect/pkg/selector"
)

var (
	// ErrNoSpace means the page has no mount point for the selector.
	ErrNoSpace = errors.New("space field not found")
	// ErrFetch wraps failures to load the company master list.
	ErrFetch = errors.New("could not fetch company master")
)

// Result is the outcome of a lifecycle handler. Event is always set and
// may be handed back to the host; Err is informational and never means
// the lifecycle should be aborted.
type Result struct {
	Event *Event
	Err   error
}

func (r Result) OK() bool { return r.Err == nil }

// Handlers implements the show and submit steps of the company selector.
type Handlers struct {
	cfg     config.App
	fetcher kintone.Fetcher
	codec   *codec.Codec
}

func NewHandlers(cfg config.App, fetcher kintone.Fetcher) *Handlers {
	h := &Handlers{
		cfg:     cfg,
		fetcher: fetcher,
		codec:   codec.New(cfg.Delimiters),
	}
	if h.codec.Mismatch() {
		utils.Log.Warnf("Store field %s is written with %q but read back with %q; multi-company selections will not survive a reload",
			cfg.Form.StoreField, cfg.Delimiters.NameEncode, cfg.Delimiters.NameDecode)
	}
	return h
}

// storedNames returns the names to pre-select for rec.
func (h *Handlers) storedNames(rec Record) []string {
	stored := rec.Stored(h.cfg.Form)
	entries, err := h.codec.DecodeStored(stored)
	switch {
	case errors.Is(err, codec.ErrMisaligned):
		utils.Log.Warn("Stored selection is inconsistent: ", err)
	case err != nil:
		utils.Log.Warn("Ignoring structured selection: ", err)
		return h.codec.DecodeNames(stored.Names)
	}
	return company.Names(entries)
}

// Show renders the selector into the page's space field, pre-selecting the
// companies stored on the record. The event is returned unmodified.
func (h *Handlers) Show(ctx context.Context, ev *Event, page *Page) Result {
	space := page.SpaceElement(h.cfg.Form.SpaceField)
	if space == nil {
		utils.Log.Warnf("Space field (%s) not found", h.cfg.Form.SpaceField)
		return Result{Event: ev, Err: ErrNoSpace}
	}

	already := h.storedNames(ev.Record)

	companies, err := h.fetcher.FetchCompanies(ctx)
	if err != nil {
		utils.Log.Error("Failed to fetch company master: ", err)
		return Result{Event: ev, Err: fmt.Errorf("%w: %w", ErrFetch, err)}
	}

	state := selector.New(h.cfg.Form).Render(space, companies, already)
	page.Selection = state

	if missing := utils.Missing(already, state.SelectedNames()); len(missing) > 0 {
		utils.Log.Warnf("Stored companies no longer in the master list: %v", missing)
	}
	utils.Log.Debugf("Rendered %d companies, %d pre-selected", len(companies), len(state.SelectedNames()))
	return Result{Event: ev}
}

// Submit writes the current selection into the record's store fields. The
// name store is always written; the id and structured stores only when
// they exist on the record.
func (h *Handlers) Submit(_ context.Context, ev *Event, page *Page) Result {
	if ev.Record == nil {
		ev.Record = Record{}
	}

	var selected []company.Entry
	if page != nil && page.Root != nil {
		sel := selector.New(h.cfg.Form)
		selected = sel.Collect(page.Root)
		page.Selection = sel.State()
	} else {
		selected = []company.Entry{}
	}

	f := h.cfg.Form
	p := h.codec.Encode(selected)
	ev.Record.Set(f.StoreField, p.Names)
	ev.Record.SetIfExists(f.BpoIDStoreField, p.BpoIDs)
	ev.Record.SetIfExists(f.GoogleDriveIDStoreField, p.GoogleDriveIDs)

	if ev.Record.Has(f.StructuredStoreField) {
		raw, err := h.codec.EncodeStructured(selected)
		if err != nil {
			utils.Log.Error("Could not encode structured selection: ", err)
			return Result{Event: ev, Err: err}
		}
		ev.Record.Set(f.StructuredStoreField, raw)
	}

	utils.Log.Debugf("Stored %d selected companies", len(selected))
	return Result{Event: ev}
}
