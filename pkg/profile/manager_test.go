package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
)

func TestDefaultManager(t *testing.T) {
	m := DefaultManager()
	profiles := m.Profiles()
	require.Len(t, profiles, 5)
	assert.Equal(t, PassThroughID, profiles[0].ID)
	assert.Empty(t, m.Default().EnabledCategories())

	commute, ok := m.Profile("default-commute")
	require.True(t, ok)
	assert.True(t, commute.IsSystemProfile)
	assert.Equal(t, []category.Name{category.Traffic, category.Wind}, commute.EnabledCategories())
	assert.Equal(t, gain.Vector{Speech: 1, Noise: 0.3, Events: 1}, commute.GainVector())

	focus, _ := m.Profile("default-focus")
	assert.Equal(t, []AutoTrigger{{Category: category.Typing, Threshold: 0.6}}, focus.AutoTriggers)
	assert.Equal(t, gain.Unity(), focus.GainVector())
}

func TestParse(t *testing.T) {
	profiles, err := Parse(strings.NewReader(`[{"id":"x","name":"X","suppressions":{"typing":true,"wind":false}}]`))
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, []category.Name{category.Typing}, profiles[0].EnabledCategories())

	_, err = Parse(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"A"},{"id":"a","name":"B"}]`), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCRUD(t *testing.T) {
	m := DefaultManager()
	m.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	p, err := m.Create(Profile{Name: "Mine", Suppressions: map[category.Name]bool{category.Dog: true}})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "2024-01-02T03:04:05Z", p.CreatedAt)
	assert.False(t, p.IsSystemProfile)

	p.Name = "Mine v2"
	p.IsSystemProfile = true
	updated, err := m.Update(p)
	require.NoError(t, err)
	assert.Equal(t, "Mine v2", updated.Name)
	assert.False(t, updated.IsSystemProfile)

	_, err = m.Update(Profile{ID: "default-focus", Name: "Hacked"})
	assert.ErrorIs(t, err, ErrImmutable)
	assert.ErrorIs(t, m.Delete(PassThroughID), ErrImmutable)
	assert.ErrorIs(t, m.Delete("nope"), ErrNotFound)

	require.NoError(t, m.Delete(p.ID))
	_, ok := m.Profile(p.ID)
	assert.False(t, ok)
	assert.Len(t, m.Profiles(), 5)
}

func TestProfilesAreCopies(t *testing.T) {
	m := DefaultManager()
	p, _ := m.Profile("default-focus")
	p.Suppressions[category.Music] = true
	again, _ := m.Profile("default-focus")
	assert.False(t, again.Suppressions[category.Music])
}

func TestValidate(t *testing.T) {
	err := Profile{AutoTriggers: []AutoTrigger{{Threshold: 2}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty profile ID")
	assert.Contains(t, err.Error(), "no category")
}
