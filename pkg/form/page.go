package form

import (
	"bytes"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/sw33tLie/kselect/pkg/selector"
	"golang.org/x/net/html"
)

// SPACE_ATTR marks the element a space field is rendered into.
const SPACE_ATTR = "data-space-id"

// Page is the document a record form is displayed in.
type Page struct {
	Root *html.Node

	// Selection is the selector model of the last show or submit on this page.
	Selection *selector.State
}

// ParsePage parses an HTML document.
func ParsePage(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Page{Root: root}, nil
}

// SpaceElement returns the mount point of the space field code, or nil.
func (p *Page) SpaceElement(code string) *html.Node {
	if p == nil || p.Root == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(p.Root).Find("[" + SPACE_ATTR + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr(SPACE_ATTR)
		return id == code
	})
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// HTML renders the page.
func (p *Page) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, p.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}
