package config

import (
	"testing"

	"github.com/closeloop/actionpipe/model"
	"github.com/stretchr/testify/require"
)

func TestHiddenTypeSetDefault(t *testing.T) {
	var c Config
	set := c.HiddenTypeSet()
	require.True(t, set[model.ACTION_TYPE_TASK])
	require.True(t, set[model.ACTION_TYPE_LOOKUP])
	require.False(t, set[model.ACTION_TYPE_EMAIL])
}

func TestHiddenTypeSetExplicitOverridesDefault(t *testing.T) {
	c := Config{HiddenTypes: []string{"EMAIL"}}
	set := c.HiddenTypeSet()
	require.True(t, set[model.ACTION_TYPE_EMAIL])
	require.False(t, set[model.ACTION_TYPE_TASK])
	require.False(t, set[model.ACTION_TYPE_LOOKUP])
}

func TestTypeSetSkipsUnknownNames(t *testing.T) {
	c := Config{DisabledTypes: []string{"EMAIL", "bogus"}}
	set := c.DisabledTypeSet()
	require.Len(t, set, 1)
	require.True(t, set[model.ACTION_TYPE_EMAIL])
}
