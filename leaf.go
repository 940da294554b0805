package furnitron

import (
	"strconv"
	"strings"
)

// TextNode is a visible leaf text found in a rendered page.
type TextNode struct {
	Text  string
	Path  string // child indices from the root, e.g. "/0/3/1"
	Order int    // depth-first discovery position, starting at 0
}

// NormalizeSpace collapses runs of whitespace into single spaces and trims the result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Collect walks the tree rooted at root depth-first and returns its visible
// texts in document order. Each visible element contributes only its own
// text, so a leaf's text appears once and a container never repeats the text
// of its descendants. Invisible elements hide their whole subtree.
//
// A nil root yields no nodes.
func Collect(root Node) []TextNode {
	if root == nil {
		return nil
	}
	var pending []TextNode
	collect(root, "", &pending)
	for i := range pending {
		pending[i].Order = i
	}
	return pending
}

// collect appends the texts under n to out in pre-order.
func collect(n Node, path string, out *[]TextNode) {
	if !n.IsVisible() {
		return
	}
	if own := NormalizeSpace(n.Text()); own != "" {
		*out = append(*out, TextNode{Text: own, Path: pathOrRoot(path)})
	}
	for i, child := range n.Children() {
		collect(child, path+"/"+strconv.Itoa(i), out)
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
