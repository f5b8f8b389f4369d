//go:build !rnnoise
// +build !rnnoise

package rnnoise

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNotSupported(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, ErrNotSupported)
}
