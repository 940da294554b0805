// Package goquery adapts rendered HTML documents to the furnitron.Node tree
// used for leaf text collection.
package goquery

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/furnitron"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// hiddenTags never render text for a visitor.
var hiddenTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Meta:     true,
	atom.Link:     true,
	atom.Object:   true,
	atom.Canvas:   true,
	atom.Select:   true,
}

// phrasingTags are inline elements that read as part of the surrounding
// text, e.g. the <b> in "Oak <b>Dining</b> Table".
var phrasingTags = map[atom.Atom]bool{
	atom.A:      true,
	atom.Abbr:   true,
	atom.B:      true,
	atom.Bdi:    true,
	atom.Bdo:    true,
	atom.Br:     true,
	atom.Cite:   true,
	atom.Code:   true,
	atom.Data:   true,
	atom.Del:    true,
	atom.Dfn:    true,
	atom.Em:     true,
	atom.Font:   true,
	atom.I:      true,
	atom.Ins:    true,
	atom.Kbd:    true,
	atom.Label:  true,
	atom.Mark:   true,
	atom.Q:      true,
	atom.S:      true,
	atom.Samp:   true,
	atom.Small:  true,
	atom.Span:   true,
	atom.Strong: true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.Time:   true,
	atom.U:      true,
	atom.Var:    true,
	atom.Wbr:    true,
}

// Ensure Node implements furnitron.Node at compile time.
var _ furnitron.Node = (*Node)(nil)

// Node is an HTML element, or a run of text that reads as one piece.
//
// A run is a maximal sequence of an element's direct text and inline
// children that lies between its block children and carries text of its
// own. It is flattened into a single leaf, so "<a><span>OAK</span> TABLE</a>"
// yields "OAK TABLE". Inline children without surrounding text, like a row
// of navigation links, stay separate elements.
type Node struct {
	sel *goquery.Selection // nil for a run
	run []*html.Node
}

// Parse parses HTML and returns the tree rooted at <body>.
// The HTML parser is lenient: malformed markup yields a best-effort tree
// and an empty document yields a body without text.
func Parse(src string) (*Node, error) {
	return ParseReader(strings.NewReader(src))
}

// ParseReader is like Parse but reads the document from r.
func ParseReader(r io.Reader) (*Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, furnitron.Errorf(furnitron.ERENDER, "failed to parse HTML: %v", err)
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return &Node{sel: doc.Selection}, nil
	}
	return &Node{sel: body}, nil
}

// Children returns the block children and text runs in document order.
// An element whose content is a single run has no children; the run is
// its Text.
func (n *Node) Children() []furnitron.Node {
	if n.sel == nil {
		return nil
	}
	segs := segments(n.sel.Get(0))
	if soleRun(segs) != nil {
		return nil
	}
	return segs
}

// Text returns the text of a run, or of an element whose content is a
// single run. Other elements have no text of their own.
func (n *Node) Text() string {
	if n.sel == nil {
		return runText(n.run)
	}
	return runText(soleRun(segments(n.sel.Get(0))))
}

// IsVisible reports whether the element is rendered: it is not a
// non-rendering tag and is not hidden through attributes or inline style.
// Runs are always visible; hidden inline elements are dropped from them.
func (n *Node) IsVisible() bool {
	if n.sel == nil {
		return true
	}
	node := n.sel.Get(0)
	if node == nil || node.Type != html.ElementNode && node.Type != html.DocumentNode {
		return false
	}
	return visible(node)
}

// Name returns the element's tag name, or "#text" for a run.
func (n *Node) Name() string {
	if n.sel == nil {
		return "#text"
	}
	return goquery.NodeName(n.sel)
}

// segments splits the children of parent into block elements and text runs.
func segments(parent *html.Node) []furnitron.Node {
	if parent == nil {
		return nil
	}
	var (
		out     []furnitron.Node
		pending []*html.Node
		hasText bool
	)
	flush := func() {
		if hasText {
			out = append(out, &Node{run: pending})
		} else {
			for _, c := range pending {
				if c.Type == html.ElementNode {
					out = append(out, &Node{sel: goquery.NewDocumentFromNode(c).Selection})
				}
			}
		}
		pending, hasText = nil, false
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			pending = append(pending, c)
			if strings.TrimSpace(c.Data) != "" {
				hasText = true
			}
		case c.Type != html.ElementNode || !visible(c):
		case inline(c):
			pending = append(pending, c)
		default:
			flush()
			out = append(out, &Node{sel: goquery.NewDocumentFromNode(c).Selection})
		}
	}
	flush()
	return out
}

// soleRun returns the run when segs is exactly one run.
func soleRun(segs []furnitron.Node) []*html.Node {
	if len(segs) != 1 {
		return nil
	}
	return segs[0].(*Node).run
}

// inline reports whether n is a phrasing element containing only text and
// other phrasing elements.
func inline(n *html.Node) bool {
	if !phrasingTags[n.DataAtom] {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && visible(c) && !inline(c) {
			return false
		}
	}
	return true
}

// runText concatenates the visible text of a run as a browser lays it out.
func runText(run []*html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if !visible(n) {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte(' ')
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	for _, n := range run {
		walk(n)
	}
	return b.String()
}

func visible(n *html.Node) bool {
	if hiddenTags[n.DataAtom] {
		return false
	}
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	if _, ok := attrs["hidden"]; ok {
		return false
	}
	if strings.EqualFold(attrs["aria-hidden"], "true") {
		return false
	}
	if n.DataAtom == atom.Input && strings.EqualFold(attrs["type"], "hidden") {
		return false
	}
	if style, ok := attrs["style"]; ok {
		style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}
