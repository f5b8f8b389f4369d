package category

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

//go:embed default_mapping.yaml
var defaultMappingYAML []byte

// Mapping is the set of known categories. It is immutable after loading
// except for explicit threshold overrides.
type Mapping struct {
	locker     sync.RWMutex
	categories map[Name]Category
	names      []Name
}

type mappingFile struct {
	Categories map[Name]Config `yaml:"categories"`
}

func NewMapping(categories ...Category) (*Mapping, error) {
	m := &Mapping{
		categories: make(map[Name]Category, len(categories)),
	}

	var mErr *multierror.Error
	for _, c := range categories {
		if err := c.Validate(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("category '%s': %w", c.Name, err))
			continue
		}
		if _, ok := m.categories[c.Name]; ok {
			mErr = multierror.Append(mErr, fmt.Errorf("category '%s' is defined twice", c.Name))
			continue
		}
		if c.Priority == "" {
			c.Priority = PriorityMedium
		}
		m.categories[c.Name] = c
		m.names = append(m.names, c.Name)
	}
	if err := mErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	if len(m.categories) == 0 {
		return nil, fmt.Errorf("no categories are defined")
	}
	sort.Slice(m.names, func(i, j int) bool { return m.names[i] < m.names[j] })
	return m, nil
}

// ParseMapping reads a YAML document with a top-level "categories" map.
// Unknown fields are rejected.
func ParseMapping(r io.Reader) (*Mapping, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f mappingFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("unable to decode the category mapping: %w", err)
	}

	categories := make([]Category, 0, len(f.Categories))
	for name, cfg := range f.Categories {
		categories = append(categories, Category{Name: name, Config: cfg})
	}
	return NewMapping(categories...)
}

func LoadMapping(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the category mapping '%s': %w", path, err)
	}
	defer f.Close()

	m, err := ParseMapping(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load '%s': %w", path, err)
	}
	return m, nil
}

// DefaultMapping returns the built-in category mapping.
func DefaultMapping() *Mapping {
	m, err := ParseMapping(bytes.NewReader(defaultMappingYAML))
	if err != nil {
		panic(fmt.Errorf("the built-in category mapping is invalid: %w", err))
	}
	return m
}

func (m *Mapping) Get(name Name) (Category, bool) {
	m.locker.RLock()
	defer m.locker.RUnlock()
	c, ok := m.categories[name]
	return c, ok
}

// Names returns all categories in a stable (lexicographic) order.
func (m *Mapping) Names() []Name {
	return append([]Name(nil), m.names...)
}

func (m *Mapping) All() []Category {
	m.locker.RLock()
	defer m.locker.RUnlock()
	out := make([]Category, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.categories[name])
	}
	return out
}

func (m *Mapping) IsSafetyCritical(name Name) bool {
	c, ok := m.Get(name)
	return ok && c.SafetyOverride
}

func (m *Mapping) SafetyCritical() []Name {
	var out []Name
	for _, c := range m.All() {
		if c.SafetyOverride {
			out = append(out, c.Name)
		}
	}
	return out
}

// SetThreshold overrides the detection threshold of a category;
// nil restores the default.
func (m *Mapping) SetThreshold(name Name, threshold *float64) error {
	if threshold != nil && *threshold > 1 {
		return fmt.Errorf("detection threshold %v is above 1", *threshold)
	}

	m.locker.Lock()
	defer m.locker.Unlock()
	c, ok := m.categories[name]
	if !ok {
		return fmt.Errorf("'%s': %w", name, ErrUnknownCategory)
	}
	if threshold != nil {
		v := *threshold
		threshold = &v
	}
	c.DetectionThreshold = threshold
	m.categories[name] = c
	return nil
}

// EffectiveThreshold returns the category's own threshold if configured
// and defaultThreshold otherwise.
func (c Category) EffectiveThreshold(defaultThreshold float64) float64 {
	if c.DetectionThreshold != nil {
		return *c.DetectionThreshold
	}
	return defaultThreshold
}

// IsForced reports whether the category is suppressed regardless of detection.
func (c Category) IsForced(defaultThreshold float64) bool {
	return c.EffectiveThreshold(defaultThreshold) < 0
}
