package mock

import "github.com/fwojciec/furnitron"

var _ furnitron.Node = (*Node)(nil)

// Node is an in-memory furnitron.Node for building document trees in tests.
type Node struct {
	Own    string
	Kids   []*Node
	Hidden bool
}

// El returns a visible node with the given own text and children.
func El(text string, kids ...*Node) *Node {
	return &Node{Own: text, Kids: kids}
}

func (n *Node) Children() []furnitron.Node {
	children := make([]furnitron.Node, len(n.Kids))
	for i, k := range n.Kids {
		children[i] = k
	}
	return children
}

func (n *Node) Text() string {
	return n.Own
}

func (n *Node) IsVisible() bool {
	return !n.Hidden
}
