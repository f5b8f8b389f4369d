package audio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/registry"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
)

const BufferSize = 100 * time.Millisecond

type Player struct {
	PlayerPCM
}

func NewPlayer(playerPCM PlayerPCM) *Player {
	return &Player{
		PlayerPCM: playerPCM,
	}
}

var lastSuccessfulPlayerFactory lastSuccessful[registry.PlayerPCMFactory]

// NewPlayerAuto picks the highest priority registered backend that responds
// to a ping. If none does, a dummy player is returned.
func NewPlayerAuto(
	ctx context.Context,
) *Player {
	player, err := autoSelect(
		ctx, "PCM player",
		&lastSuccessfulPlayerFactory,
		registry.PlayerFactories(),
		func(f registry.PlayerPCMFactory) (types.PlayerPCM, error) { return f.NewPlayerPCM() },
	)
	if err != nil {
		logger.Infof(ctx, "was unable to initialize any PCM player: %v", err)
		return NewPlayer(PlayerPCMDummy{})
	}
	return NewPlayer(player)
}

// PlayVorbis decodes an Ogg/Vorbis stream and plays it as float PCM.
func (a *Player) PlayVorbis(
	ctx context.Context,
	rawReader io.Reader,
) (PlayStream, error) {
	oggReader, err := oggvorbis.NewReader(rawReader)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}

	stream, err := a.PlayerPCM.PlayPCM(
		ctx,
		SampleRate(oggReader.SampleRate()),
		Channel(oggReader.Channels()),
		PCMFormatFloat32LE,
		BufferSize,
		newReaderFromFloat32Reader(oggReader),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to playback as PCM: %w", err)
	}
	return stream, nil
}

type float32Reader interface {
	Read([]float32) (int, error)
}

// readerFromFloat32Reader exposes a float sample source as a Float32LE byte stream.
type readerFromFloat32Reader struct {
	backend float32Reader
	samples []float32
	pending []byte
}

var _ io.Reader = (*readerFromFloat32Reader)(nil)

func newReaderFromFloat32Reader(backend float32Reader) *readerFromFloat32Reader {
	return &readerFromFloat32Reader{
		backend: backend,
	}
}

func (r *readerFromFloat32Reader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		want := (len(p) + 3) / 4
		if cap(r.samples) < want {
			r.samples = make([]float32, want)
		}
		n, err := r.backend.Read(r.samples[:want])
		if n == 0 {
			if err == nil {
				return 0, nil
			}
			return 0, err
		}
		r.pending = PCMFormatFloat32LE.EncodeFloat32(r.samples[:n])
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
