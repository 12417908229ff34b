package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/sw33tLie/kselect/internal/utils"
	"github.com/sw33tLie/kselect/pkg/form"
	"github.com/sw33tLie/kselect/pkg/selector"
	"github.com/sw33tLie/kselect/pkg/storage"
)

const (
	newRecordKey = "new"
	errorHeader  = "X-Kselect-Error"
)

const pageTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s</title></head>
<body><form method="post"><div %s="%s"></div><button type="submit">Save</button></form></body></html>`

// target resolves the record a request is about. id is 0 for a new record.
func (s *Server) target(r *http.Request) (key string, id int64, err error) {
	raw := r.PathValue("id")
	if raw == "" {
		return newRecordKey, 0, nil
	}
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid record id %q", raw)
	}
	return raw, id, nil
}

func (s *Server) newPage(title string) (*form.Page, error) {
	src := fmt.Sprintf(pageTemplate, html.EscapeString(title), form.SPACE_ATTR, html.EscapeString(s.Cfg.Form.SpaceField))
	return form.ParsePage(strings.NewReader(src))
}

// emptyRecord returns a record carrying every store field the form is
// configured with.
func (s *Server) emptyRecord() form.Record {
	f := s.Cfg.Form
	rec := form.Record{}
	for _, code := range []string{f.StoreField, f.BpoIDStoreField, f.GoogleDriveIDStoreField, f.StructuredStoreField} {
		if code != "" {
			rec[code] = &form.Field{Value: ""}
		}
	}
	return rec
}

func (s *Server) loadEvent(ctx context.Context, id int64, eventType string) (*form.Event, error) {
	ev := &form.Event{Type: eventType, AppID: s.Cfg.Master.AppID, RecordID: id}
	if id == 0 {
		ev.Record = s.emptyRecord()
		return ev, nil
	}
	stored, err := s.DB.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	ev.Record = form.Record{}
	for code, v := range stored.Fields {
		ev.Record[code] = &form.Field{Value: v}
	}
	return ev, nil
}

func eventTypes(id int64) (show, submit string) {
	if id == 0 {
		return form.EventCreateShow, form.EventCreateSubmit
	}
	return form.EventEditShow, form.EventEditSubmit
}

// show raises the show event on a fresh page and remembers the page.
func (s *Server) show(ctx context.Context, key string, id int64) (*form.Page, form.Result, error) {
	showType, _ := eventTypes(id)
	ev, err := s.loadEvent(ctx, id, showType)
	if err != nil {
		return nil, form.Result{}, err
	}
	page, err := s.newPage("Record " + key)
	if err != nil {
		return nil, form.Result{}, err
	}
	res := <-s.Runtime.DispatchAsync(ctx, ev, page)
	if !res.OK() {
		utils.Log.Warnf("Record %s displayed without company selector: %v", key, res.Err)
	}
	s.setPage(key, page)
	return page, res, nil
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	key, id, err := s.target(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	unlock := s.lockRecord(key)
	defer unlock()

	page, res, err := s.show(r.Context(), key, id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := page.HTML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if res.Err != nil {
		w.Header().Set(errorHeader, res.Err.Error())
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, out)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	key, id, err := s.target(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	unlock := s.lockRecord(key)
	defer unlock()

	page := s.page(key)
	if page == nil {
		if page, _, err = s.show(r.Context(), key, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	selector.New(s.Cfg.Form).Mark(page.Root, r.PostForm[s.Cfg.Form.ControlID])

	_, submitType := eventTypes(id)
	ev, err := s.loadEvent(r.Context(), id, submitType)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	res := s.Runtime.Dispatch(r.Context(), ev, page)
	if !res.OK() {
		utils.Log.Warnf("Submit of record %s completed with errors: %v", key, res.Err)
	}

	rec := storage.Record{ID: id, AppID: ev.AppID, Fields: map[string]string{}}
	for code, f := range res.Event.Record {
		if f != nil {
			rec.Fields[code] = f.Value
		}
	}
	if page.Selection != nil {
		rec.Companies = page.Selection.SelectedNames()
	}

	saved, changes, err := s.DB.SaveRecord(r.Context(), rec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, c := range changes {
		utils.Log.Infof("Record %d: %s %s", saved.ID, c.ChangeType, c.Company)
	}
	if id == 0 {
		s.dropPage(key)
	}
	http.Redirect(w, r, fmt.Sprintf("/records/%d/edit", saved.ID), http.StatusSeeOther)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.DB.ListRecords(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	changes, err := s.DB.ListRecentChanges(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(changes)
}
