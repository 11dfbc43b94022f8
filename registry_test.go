package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionRegistry(t *testing.T) {
	t.Run("unknown connections resolve to the default name", func(t *testing.T) {
		reg := newConnectionRegistry()

		assert.Equal(t, defaultName, reg.Name("ghost"))
	})

	t.Run("added but unnamed connections resolve to the default name", func(t *testing.T) {
		reg := newConnectionRegistry()
		reg.Add("c1")

		assert.Equal(t, defaultName, reg.Name("c1"))
	})

	t.Run("empty names fall back to the default", func(t *testing.T) {
		reg := newConnectionRegistry()
		reg.SetName("c1", "")

		assert.Equal(t, defaultName, reg.Name("c1"))
	})

	t.Run("rejoin overwrites the name", func(t *testing.T) {
		reg := newConnectionRegistry()
		reg.SetName("c1", "Ada")
		reg.SetName("c1", "Countess")

		assert.Equal(t, "Countess", reg.Name("c1"))
	})

	t.Run("removal purges the entry", func(t *testing.T) {
		reg := newConnectionRegistry()
		reg.SetName("c1", "Ada")
		reg.Remove("c1")

		assert.Equal(t, defaultName, reg.Name("c1"))
	})
}
