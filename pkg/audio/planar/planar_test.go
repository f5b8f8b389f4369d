package planar

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
)

func TestPlanarize(t *testing.T) {
	in := []float32{1, 11, 2, 12, 3, 13, 4, 14}
	planes, err := Planarize(2, in)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 2, 3, 4}, {11, 12, 13, 14}}, planes, spew.Sdump(in))

	out, err := Unplanarize(planes)
	require.NoError(t, err)
	require.Equal(t, in, out, spew.Sdump(planes))
}

func TestPlanarizeMonoCopies(t *testing.T) {
	in := []float32{1, 2, 3}
	planes, err := Planarize(1, in)
	require.NoError(t, err)
	planes[0][0] = 100
	require.Equal(t, float32(1), in[0])
}

func TestPlanarizeErrors(t *testing.T) {
	_, err := Planarize(0, []float32{1})
	require.Error(t, err)

	_, err = Planarize(2, []float32{1, 2, 3})
	require.Error(t, err)

	_, err = Unplanarize(nil)
	require.Error(t, err)

	_, err = Unplanarize([][]float32{{1, 2}, {1}})
	require.Error(t, err)

	_, err = PlanarizeFrame(audio.Frame{})
	require.Error(t, err)
}
