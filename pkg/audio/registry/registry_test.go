package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lowFactory struct{}
type highFactory struct{}
type midFactory struct{}

func TestFactoryRegistryOrdersByPriority(t *testing.T) {
	r := newFactoryRegistry[any]("test")
	r.register(10, lowFactory{})
	r.register(100, &highFactory{})
	r.register(50, midFactory{})

	list := r.list()
	require.Len(t, list, 3)
	assert.IsType(t, &highFactory{}, list[0])
	assert.IsType(t, midFactory{}, list[1])
	assert.IsType(t, lowFactory{}, list[2])
}

func TestFactoryRegistryRejectsDuplicates(t *testing.T) {
	r := newFactoryRegistry[any]("test")
	r.register(10, lowFactory{})
	assert.Panics(t, func() {
		r.register(20, &lowFactory{})
	})
}
