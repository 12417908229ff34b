package selector

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/config"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var masterList = []company.Entry{
	{Name: "A", BpoID: "1", GoogleDriveID: "g1"},
	{Name: "B", BpoID: "2", GoogleDriveID: "g2"},
}

func newContainer() *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
}

func selectedValues(t *testing.T, root *html.Node) []string {
	t.Helper()
	var out []string
	goquery.NewDocumentFromNode(root).Find("option").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("selected"); ok {
			v, _ := s.Attr("value")
			out = append(out, v)
		}
	})
	return out
}

func TestRender_PreSelection(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()

	state := s.Render(container, masterList, []string{"B"})

	assert.Equal(t, []string{"B"}, selectedValues(t, container))
	assert.Equal(t, []string{"B"}, state.SelectedNames())
	assert.Same(t, state, s.State())
}

func TestRender_Idempotent(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()

	s.Render(container, masterList, []string{"A"})
	s.Render(container, masterList, []string{"A"})

	doc := goquery.NewDocumentFromNode(container)
	assert.Equal(t, 1, doc.Find("div").Length(), "expected exactly one label")
	assert.Equal(t, 1, doc.Find("select").Length(), "expected exactly one control")
	assert.Equal(t, 2, doc.Find("option").Length())
	assert.Equal(t, []string{"A"}, selectedValues(t, container))
}

func TestRender_ClearsForeignContent(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()
	container.AppendChild(&html.Node{Type: html.TextNode, Data: "loading..."})

	s.Render(container, masterList, nil)

	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, container))
	assert.NotContains(t, buf.String(), "loading...")
}

func TestRender_OptionAttributes(t *testing.T) {
	form := config.Default().Form
	s := New(form)
	container := newContainer()
	s.Render(container, masterList, nil)

	ctrl := goquery.NewDocumentFromNode(container).Find("select")
	id, _ := ctrl.Attr("id")
	assert.Equal(t, form.ControlID, id)
	_, multiple := ctrl.Attr("multiple")
	assert.True(t, multiple)

	opt := ctrl.Find("option").Eq(1)
	assert.Equal(t, "B", opt.Text())
	v, _ := opt.Attr(BPO_ID_ATTR)
	assert.Equal(t, "2", v)
	v, _ = opt.Attr(GOOGLE_DRIVE_ID_ATTR)
	assert.Equal(t, "g2", v)

	label := goquery.NewDocumentFromNode(container).Find("div").First()
	assert.Equal(t, form.Label, label.Text())
}

func TestRender_EmptyMasterList(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()

	state := s.Render(container, []company.Entry{}, []string{"A"})

	doc := goquery.NewDocumentFromNode(container)
	assert.Equal(t, 1, doc.Find("select").Length())
	assert.Equal(t, 0, doc.Find("option").Length())
	assert.Empty(t, state.Selected())
}

func TestRender_ExactMatchOnly(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()

	s.Render(container, masterList, []string{"a", " B"})
	assert.Empty(t, selectedValues(t, container))
}

func TestCollect_ReadsBackInDisplayOrder(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()
	s.Render(container, masterList, nil)

	require.True(t, s.Mark(container, []string{"B", "A"}))
	got := s.Collect(container)

	assert.Equal(t, masterList, got)
	assert.Equal(t, masterList, s.State().Selected())
}

func TestCollect_MissingControl(t *testing.T) {
	s := New(config.Default().Form)
	got := s.Collect(newContainer())

	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, s.Mark(newContainer(), []string{"A"}))
}

func TestCollect_MissingAuxAttributes(t *testing.T) {
	form := config.Default().Form
	page := `<div><select id="` + form.ControlID + `" multiple><option value="X" selected>X</option><option selected>Y </option></select></div>`
	root, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)

	got := New(form).Collect(root)
	assert.Equal(t, []company.Entry{{Name: "X"}, {Name: "Y"}}, got)
}

func TestMark_Unselects(t *testing.T) {
	s := New(config.Default().Form)
	container := newContainer()
	s.Render(container, masterList, []string{"A", "B"})

	s.Mark(container, []string{"B"})
	assert.Equal(t, []string{"B"}, selectedValues(t, container))
}
