package profile

import (
	"bytes"
	_ "embed"
)

//go:embed default_profiles.json
var defaultProfilesJSON []byte

// DefaultManager returns a manager with the built-in profiles.
func DefaultManager() *Manager {
	profiles, err := Parse(bytes.NewReader(defaultProfilesJSON))
	if err != nil {
		panic(err)
	}
	m, err := NewManager(profiles...)
	if err != nil {
		panic(err)
	}
	return m
}
