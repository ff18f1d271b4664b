package pgfailover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	var newNodes = func(count int) []Node {
		var nodes = make([]Node, count)
		for i := 0; i < count; i++ {
			nodes[i] = Node{Host: "db", Port: 5432 + i, Database: "app", User: "app"}
		}
		return nodes
	}

	t.Run("should create registry with sticky index at zero", func(t *testing.T) {
		// Arrange & Act
		var sut, err = NewRegistry(newNodes(2))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 2, sut.Size())
		assert.Equal(t, 0, sut.Sticky())
	})

	t.Run("should reject empty node list", func(t *testing.T) {
		// Arrange & Act
		var sut, err = NewRegistry(nil)

		// Assert
		require.ErrorIs(t, err, ErrEmptyRegistry)
		assert.Nil(t, sut)
	})

	t.Run("should copy the node list", func(t *testing.T) {
		// Arrange
		var nodes = newNodes(2)
		sut, err := NewRegistry(nodes)
		require.NoError(t, err)

		// Act
		nodes[0].Host = "mutated"

		// Assert
		assert.Equal(t, "db", sut.NodeAt(0).Host)
	})

	t.Run("should store sticky index modulo size", func(t *testing.T) {
		// Arrange
		var sut, err = NewRegistry(newNodes(3))
		require.NoError(t, err)

		// Act & Assert
		sut.SetSticky(1)
		assert.Equal(t, 1, sut.Sticky())

		sut.SetSticky(5)
		assert.Equal(t, 2, sut.Sticky())

		sut.SetSticky(-1)
		assert.Equal(t, 2, sut.Sticky(), "negative indices wrap into range")
	})

	t.Run("should keep sticky index valid for single node", func(t *testing.T) {
		// Arrange
		var sut, err = NewRegistry(newNodes(1))
		require.NoError(t, err)

		// Act
		sut.SetSticky(7)

		// Assert
		assert.Equal(t, 0, sut.Sticky())
	})
}
