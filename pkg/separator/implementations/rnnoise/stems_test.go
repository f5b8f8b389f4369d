package rnnoise

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

func TestStems(t *testing.T) {
	input := []float32{1, 0.5, -1}
	speech := []float32{0.75, 0.5, -0.5}

	out, err := stems(input, speech, []string{SpeechTarget})
	require.NoError(t, err)
	require.Equal(t, speech, out)

	out, err = stems(input, speech, []string{separator.BackgroundNoiseTarget})
	require.NoError(t, err)
	require.Equal(t, []float32{0.25, 0, -0.5}, out)

	out, err = stems(input, speech, Targets)
	require.NoError(t, err)
	require.Equal(t, input, out)

	_, err = stems(input, speech, []string{"Bark"})
	require.ErrorIs(t, err, separator.ErrUnknownTarget)

	_, err = stems(input, speech[:1], Targets)
	require.Error(t, err)
}
