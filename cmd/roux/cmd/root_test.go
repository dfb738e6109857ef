package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["init"])
	assert.True(t, names["status"])
	assert.True(t, names["serve"])
	assert.True(t, names["viz"])
}

func TestNewRootCmd_UsesVersionFromPackage(t *testing.T) {
	root := NewRootCmd()
	assert.NotEmpty(t, root.Version)
}
