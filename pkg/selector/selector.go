package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/config"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	BPO_ID_ATTR          = "data-bpo-id"
	GOOGLE_DRIVE_ID_ATTR = "data-google-drive-id"
	controlStyle         = "width: 300px; height: 200px;"
)

// Option is one entry of the control and whether it is marked.
type Option struct {
	company.Entry
	Selected bool
}

// State is the in-memory selection model kept next to the rendered control.
type State struct {
	Options []Option
}

// Selected returns the marked entries in display order.
func (s *State) Selected() []company.Entry {
	out := []company.Entry{}
	if s == nil {
		return out
	}
	for _, o := range s.Options {
		if o.Selected {
			out = append(out, o.Entry)
		}
	}
	return out
}

// SelectedNames returns the names of the marked entries in display order.
func (s *State) SelectedNames() []string {
	return company.Names(s.Selected())
}

// Selector renders the company control into a container node and reads
// the selection back from it.
type Selector struct {
	controlID string
	label     string
	state     *State
}

func New(form config.Form) *Selector {
	return &Selector{
		controlID: form.ControlID,
		label:     form.Label,
	}
}

// ControlID is the id (and form name) of the rendered <select>.
func (s *Selector) ControlID() string { return s.controlID }

// State returns the model as of the last Render or Collect. It is nil
// before the first Render.
func (s *Selector) State() *State { return s.state }

// Render replaces the content of container with a label and a multiple
// select holding one option per entry, in the given order. Entries whose
// name is in selectedNames are pre-selected.
func (s *Selector) Render(container *html.Node, masterList []company.Entry, selectedNames []string) *State {
	for c := container.FirstChild; c != nil; c = container.FirstChild {
		container.RemoveChild(c)
	}

	selected := make(map[string]struct{}, len(selectedNames))
	for _, n := range selectedNames {
		selected[n] = struct{}{}
	}

	state := &State{Options: make([]Option, 0, len(masterList))}
	for _, e := range masterList {
		_, ok := selected[e.Name]
		state.Options = append(state.Options, Option{Entry: e, Selected: ok})
	}

	label := element(atom.Div)
	label.AppendChild(&html.Node{Type: html.TextNode, Data: s.label})
	container.AppendChild(label)
	container.AppendChild(s.controlNode(state))

	s.state = state
	return state
}

func (s *Selector) controlNode(state *State) *html.Node {
	sel := element(atom.Select,
		html.Attribute{Key: "id", Val: s.controlID},
		html.Attribute{Key: "name", Val: s.controlID},
		html.Attribute{Key: "multiple"},
		html.Attribute{Key: "style", Val: controlStyle},
	)
	for _, o := range state.Options {
		attrs := []html.Attribute{
			{Key: "value", Val: o.Name},
			{Key: BPO_ID_ATTR, Val: o.BpoID},
			{Key: GOOGLE_DRIVE_ID_ATTR, Val: o.GoogleDriveID},
		}
		if o.Selected {
			attrs = append(attrs, html.Attribute{Key: "selected"})
		}
		opt := element(atom.Option, attrs...)
		opt.AppendChild(&html.Node{Type: html.TextNode, Data: o.Name})
		sel.AppendChild(opt)
	}
	return sel
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

// control finds the rendered <select> under root.
func (s *Selector) control(root *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(root).Find("select").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		id, _ := sel.Attr("id")
		return id == s.controlID
	}).First()
}

// Collect reads the marked options of the control under root, in display
// order, and syncs the model with them. A missing control yields an empty
// selection.
func (s *Selector) Collect(root *html.Node) []company.Entry {
	ctrl := s.control(root)
	if ctrl.Length() == 0 {
		return []company.Entry{}
	}

	state := &State{}
	ctrl.Find("option").Each(func(_ int, opt *goquery.Selection) {
		name, ok := opt.Attr("value")
		if !ok {
			name = strings.TrimSpace(opt.Text())
		}
		bpoID, _ := opt.Attr(BPO_ID_ATTR)
		driveID, _ := opt.Attr(GOOGLE_DRIVE_ID_ATTR)
		_, selected := opt.Attr("selected")
		state.Options = append(state.Options, Option{
			Entry:    company.Entry{Name: name, BpoID: bpoID, GoogleDriveID: driveID},
			Selected: selected,
		})
	})

	s.state = state
	return state.Selected()
}

// Mark sets the marked options of the control under root to exactly those
// named in names, the way a user would by clicking. It reports false when
// no control is present.
func (s *Selector) Mark(root *html.Node, names []string) bool {
	ctrl := s.control(root)
	if ctrl.Length() == 0 {
		return false
	}

	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	ctrl.Find("option").Each(func(_ int, opt *goquery.Selection) {
		value, _ := opt.Attr("value")
		if _, ok := want[value]; ok {
			opt.SetAttr("selected", "")
		} else {
			opt.RemoveAttr("selected")
		}
	})
	return true
}
