package equation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/model"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{model.BehaviorFeeding, model.BehaviorSocializing, model.BehaviorTraveling}, r.Behaviors())
	_, ok := r.Get(model.BehaviorResting)
	assert.False(t, ok)
	assert.Empty(t, r.UnknownSymbols())
	for _, e := range r.Entries() {
		assert.NotEmpty(t, e.KeyFactors, e.Behavior)
	}
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(
		Entry{Behavior: "b", Expression: Const(1)},
		Entry{Behavior: model.BehaviorResting},
		Entry{Behavior: "a", Expression: Var("mystery")},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, r.Behaviors())
	assert.Equal(t, map[string][]string{"a": {"mystery"}}, r.UnknownSymbols())

	_, err = NewRegistry(Entry{Behavior: "a", Expression: Const(1)}, Entry{Behavior: "a", Expression: Const(2)})
	assert.ErrorIs(t, err, ErrDuplicateBehavior)
	_, err = NewRegistry(Entry{Expression: Const(1)})
	assert.Error(t, err)
}

func TestRegistryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equations.yaml")
	require.NoError(t, WriteRegistryFile(path, DefaultRegistry()))

	loaded, err := LoadRegistryFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegistry().Behaviors(), loaded.Behaviors())
	for _, e := range DefaultRegistry().Entries() {
		got, ok := loaded.Get(e.Behavior)
		require.True(t, ok)
		assert.Equal(t, e.Expression.String(), got.Expression.String())
		assert.Equal(t, e.KeyFactors, got.KeyFactors)
	}
}

func TestLoadRegistryFileToleratesMissingEquation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equations.yaml")
	doc := `- behavior: feeding
  expression: 0.0002*N*T
  key_factors: [hour_of_day, temperature]
- behavior: resting
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	r, err := LoadRegistryFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{model.BehaviorFeeding}, r.Behaviors())
}

func TestLoadRegistryFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadRegistryFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- behavior: feeding\n  expression: 1 +\n"), 0o644))
	_, err = LoadRegistryFile(bad)
	assert.ErrorIs(t, err, ErrMalformed)
}
