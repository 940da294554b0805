package furnitron_test

import (
	"testing"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	t.Parallel()

	t.Run("returns leaf texts depth-first with paths and order", func(t *testing.T) {
		t.Parallel()

		root := mock.El("",
			mock.El("Dining Room",
				mock.El("Oak Dining Table"),
				mock.El("  Walnut\n Side   Chair "),
			),
			mock.El("Bedroom"),
		)

		nodes := furnitron.Collect(root)

		require.Len(t, nodes, 4)
		assert.Equal(t, furnitron.TextNode{Text: "Dining Room", Path: "/0", Order: 0}, nodes[0])
		assert.Equal(t, furnitron.TextNode{Text: "Oak Dining Table", Path: "/0/0", Order: 1}, nodes[1])
		assert.Equal(t, furnitron.TextNode{Text: "Walnut Side Chair", Path: "/0/1", Order: 2}, nodes[2])
		assert.Equal(t, furnitron.TextNode{Text: "Bedroom", Path: "/1", Order: 3}, nodes[3])
	})

	t.Run("root text has root path", func(t *testing.T) {
		t.Parallel()

		nodes := furnitron.Collect(mock.El("Linen Sofa"))

		require.Len(t, nodes, 1)
		assert.Equal(t, "/", nodes[0].Path)
	})

	t.Run("invisible nodes hide their subtree", func(t *testing.T) {
		t.Parallel()

		root := mock.El("",
			&mock.Node{Own: "Hidden Banner", Hidden: true, Kids: []*mock.Node{mock.El("Hidden Child Bench")}},
			mock.El("Teak Bench"),
		)

		nodes := furnitron.Collect(root)

		require.Len(t, nodes, 1)
		assert.Equal(t, "Teak Bench", nodes[0].Text)
		assert.Equal(t, 0, nodes[0].Order)
	})

	t.Run("whitespace-only text is skipped", func(t *testing.T) {
		t.Parallel()

		nodes := furnitron.Collect(mock.El(" \n\t ", mock.El("Ash Stool")))

		require.Len(t, nodes, 1)
		assert.Equal(t, "Ash Stool", nodes[0].Text)
	})

	t.Run("collecting the same page twice gives the same sequence", func(t *testing.T) {
		t.Parallel()

		root := mock.El("Sale",
			mock.El("", mock.El("Oak Dining Table"), mock.El("$899")),
			mock.El("Linen Sofa", mock.El("Grey")),
		)

		first := furnitron.Collect(root)
		second := furnitron.Collect(root)

		require.Len(t, first, 5)
		assert.Equal(t, first, second)
	})

	t.Run("nil root yields nothing", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, furnitron.Collect(nil))
	})
}

func TestNormalizeSpace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Oak Dining Table", furnitron.NormalizeSpace("  Oak  Dining\n\tTable "))
	assert.Empty(t, furnitron.NormalizeSpace(" \n "))
}

func TestRenderedPage_Release(t *testing.T) {
	t.Parallel()

	calls := 0
	page := furnitron.NewRenderedPage("https://shop.example.com/a", mock.El("Oak Stool"), func() { calls++ })

	page.Release()
	page.Release()

	assert.Equal(t, 1, calls)
	assert.Nil(t, page.Root)
}
