// Package profile describes suppression profiles and provides a read-only
// profile source backed by an in-memory manager.
package profile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
)

const (
	PassThroughID = "default-passthrough"
	SchemaVersion = "1.0.0"
)

var (
	ErrNotFound  = errors.New("profile not found")
	ErrImmutable = errors.New("system profiles cannot be modified")
)

type AutoTrigger struct {
	Category  category.Name `json:"category"`
	Threshold float64       `json:"threshold"`
}

type Profile struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	SchemaVersion   string                 `json:"schemaVersion,omitempty"`
	CreatedAt       string                 `json:"created_at,omitempty"`
	UpdatedAt       string                 `json:"updated_at,omitempty"`
	Suppressions    map[category.Name]bool `json:"suppressions"`
	AutoTriggers    []AutoTrigger          `json:"autoTriggers"`
	IsSystemProfile bool                   `json:"isSystemProfile"`
	// Gains are applied when the profile becomes active; nil means unity.
	Gains *gain.Vector `json:"gains,omitempty"`
}

// PassThrough is the built-in profile that suppresses nothing.
func PassThrough() Profile {
	return Profile{
		ID:              PassThroughID,
		Name:            "Passthrough",
		Description:     "No suppression",
		SchemaVersion:   SchemaVersion,
		Suppressions:    map[category.Name]bool{},
		IsSystemProfile: true,
	}
}

// EnabledCategories returns the sorted categories the profile suppresses.
func (p Profile) EnabledCategories() []category.Name {
	var result []category.Name
	for name, enabled := range p.Suppressions {
		if enabled {
			result = append(result, name)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func (p Profile) HasAutoTriggers() bool {
	return len(p.AutoTriggers) > 0
}

func (p Profile) GainVector() gain.Vector {
	if p.Gains == nil {
		return gain.Unity()
	}
	return p.Gains.Clamp()
}

func (p Profile) Clone() Profile {
	c := p
	if p.Suppressions != nil {
		c.Suppressions = make(map[category.Name]bool, len(p.Suppressions))
		for k, v := range p.Suppressions {
			c.Suppressions[k] = v
		}
	}
	if p.AutoTriggers != nil {
		c.AutoTriggers = append([]AutoTrigger(nil), p.AutoTriggers...)
	}
	if p.Gains != nil {
		g := *p.Gains
		c.Gains = &g
	}
	return c
}

func (p Profile) Validate() error {
	var mErr *multierror.Error
	if p.ID == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("empty profile ID"))
	}
	if p.Name == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("empty profile name"))
	}
	for idx, t := range p.AutoTriggers {
		if t.Category == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("auto trigger #%d has no category", idx))
		}
		if t.Threshold < 0 || t.Threshold > 1 {
			mErr = multierror.Append(mErr, fmt.Errorf("auto trigger #%d threshold %v is out of [0, 1]", idx, t.Threshold))
		}
	}
	if p.Gains != nil {
		if err := p.Gains.Validate(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	return mErr.ErrorOrNil()
}
