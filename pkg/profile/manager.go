package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Source is the read-only view of the profiles the control logic needs.
type Source interface {
	Profiles() []Profile
	Profile(id string) (Profile, bool)
	// Default is the profile to start with when none is selected.
	Default() Profile
}

// Manager keeps profiles in memory. System profiles are immutable; the
// manager never persists anything.
type Manager struct {
	locker   sync.RWMutex
	profiles map[string]Profile
	order    []string
	now      func() time.Time
}

var _ Source = (*Manager)(nil)

// NewManager creates a manager with the given profiles; the pass-through
// profile is always present.
func NewManager(profiles ...Profile) (*Manager, error) {
	m := &Manager{
		profiles: map[string]Profile{},
		now:      time.Now,
	}
	var mErr *multierror.Error
	for _, p := range append([]Profile{PassThrough()}, profiles...) {
		if err := p.Validate(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("profile '%s': %w", p.ID, err))
			continue
		}
		if _, ok := m.profiles[p.ID]; ok {
			if p.ID == PassThroughID {
				m.profiles[p.ID] = p.Clone()
				continue
			}
			mErr = multierror.Append(mErr, fmt.Errorf("profile '%s' is defined twice", p.ID))
			continue
		}
		m.profiles[p.ID] = p.Clone()
		m.order = append(m.order, p.ID)
	}
	if err := mErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse reads a JSON array of profiles.
func Parse(r io.Reader) ([]Profile, error) {
	var profiles []Profile
	if err := json.NewDecoder(r).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("unable to decode the profiles: %w", err)
	}
	return profiles, nil
}

// LoadFile creates a manager from a JSON array of profiles.
func LoadFile(path string) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	profiles, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return NewManager(profiles...)
}

// Profiles returns all profiles in the order they were added.
func (m *Manager) Profiles() []Profile {
	m.locker.RLock()
	defer m.locker.RUnlock()
	result := make([]Profile, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.profiles[id].Clone())
	}
	return result
}

func (m *Manager) Profile(id string) (Profile, bool) {
	m.locker.RLock()
	defer m.locker.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return p.Clone(), true
}

// Default returns the pass-through profile.
func (m *Manager) Default() Profile {
	p, _ := m.Profile(PassThroughID)
	return p
}

func (m *Manager) Create(p Profile) (Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := m.now().UTC().Format(time.RFC3339)
	p.CreatedAt, p.UpdatedAt = now, now
	p.IsSystemProfile = false
	if p.SchemaVersion == "" {
		p.SchemaVersion = SchemaVersion
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	m.locker.Lock()
	defer m.locker.Unlock()
	if _, ok := m.profiles[p.ID]; ok {
		return Profile{}, fmt.Errorf("profile '%s' already exists", p.ID)
	}
	m.profiles[p.ID] = p.Clone()
	m.order = append(m.order, p.ID)
	return p, nil
}

func (m *Manager) Update(p Profile) (Profile, error) {
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	m.locker.Lock()
	defer m.locker.Unlock()
	old, ok := m.profiles[p.ID]
	if !ok {
		return Profile{}, fmt.Errorf("%w: '%s'", ErrNotFound, p.ID)
	}
	if old.IsSystemProfile {
		return Profile{}, fmt.Errorf("%w: '%s'", ErrImmutable, p.ID)
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = m.now().UTC().Format(time.RFC3339)
	p.IsSystemProfile = false
	m.profiles[p.ID] = p.Clone()
	return p, nil
}

func (m *Manager) Delete(id string) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrNotFound, id)
	}
	if p.IsSystemProfile {
		return fmt.Errorf("%w: '%s'", ErrImmutable, id)
	}
	delete(m.profiles, id)
	for idx, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:idx], m.order[idx+1:]...)
			break
		}
	}
	return nil
}
