// Package ringbuffer provides a bounded FIFO of float32 samples that never
// blocks the writer: once full, the oldest samples are overwritten.
package ringbuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/iamcalledrob/circular"
)

const bytesPerSample = 4

var ErrNotEnoughData = errors.New("not enough data")

type RingBuffer struct {
	locker    sync.Mutex
	buffer    *circular.Buffer
	capacity  int
	available int
	overrun   uint64
	scratch   []byte
}

func New(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	return &RingBuffer{
		buffer:   newBackend(capacity),
		capacity: capacity,
	}, nil
}

func newBackend(capacity int) *circular.Buffer {
	// one spare sample of room, so that a completely full buffer is never
	// confused with an empty one by the backend
	return circular.NewBuffer((capacity + 1) * bytesPerSample)
}

func (r *RingBuffer) Capacity() int {
	return r.capacity
}

// Write appends samples, discarding the oldest ones if the capacity
// would be exceeded. It returns the amount of discarded samples.
func (r *RingBuffer) Write(samples []float32) int {
	r.locker.Lock()
	defer r.locker.Unlock()

	discarded := 0
	if len(samples) >= r.capacity {
		discarded = r.available + len(samples) - r.capacity
		samples = samples[len(samples)-r.capacity:]
		r.reset()
	} else if overflow := r.available + len(samples) - r.capacity; overflow > 0 {
		r.skip(overflow)
		discarded = overflow
	}
	r.overrun += uint64(discarded)

	p := r.scratchBytes(len(samples))
	for idx, v := range samples {
		binary.LittleEndian.PutUint32(p[idx*bytesPerSample:], math.Float32bits(v))
	}
	if _, err := r.buffer.Write(p); err != nil {
		// cannot happen while the accounting is right; start over rather than stall the writer
		r.overrun += uint64(r.available)
		r.reset()
		if _, err := r.buffer.Write(p); err != nil {
			panic(fmt.Errorf("unable to write %d samples into an empty buffer of capacity %d: %w", len(samples), r.capacity, err))
		}
	}
	r.available += len(samples)
	return discarded
}

// Read returns exactly n samples, or ErrNotEnoughData without consuming
// anything if fewer are buffered.
func (r *RingBuffer) Read(n int) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read size: %d", n)
	}

	r.locker.Lock()
	defer r.locker.Unlock()

	if n > r.available {
		return nil, fmt.Errorf("requested %d samples, %d available: %w", n, r.available, ErrNotEnoughData)
	}

	p := r.scratchBytes(n)
	if err := r.readFull(p); err != nil {
		return nil, err
	}
	r.available -= n

	out := make([]float32, n)
	for idx := range out {
		out[idx] = math.Float32frombits(binary.LittleEndian.Uint32(p[idx*bytesPerSample:]))
	}
	return out, nil
}

func (r *RingBuffer) Available() int {
	r.locker.Lock()
	defer r.locker.Unlock()
	return r.available
}

// Overrun is the total amount of samples overwritten before being read.
func (r *RingBuffer) Overrun() uint64 {
	r.locker.Lock()
	defer r.locker.Unlock()
	return r.overrun
}

func (r *RingBuffer) Clear() {
	r.locker.Lock()
	defer r.locker.Unlock()
	r.reset()
}

func (r *RingBuffer) reset() {
	r.buffer = newBackend(r.capacity)
	r.available = 0
}

func (r *RingBuffer) skip(n int) {
	p := r.scratchBytes(n)
	if err := r.readFull(p); err != nil {
		r.reset()
		return
	}
	r.available -= n
}

func (r *RingBuffer) readFull(p []byte) error {
	read := 0
	for read < len(p) {
		n, err := r.buffer.Read(p[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) && read == len(p) {
				break
			}
			return fmt.Errorf("unable to read from the circular buffer (%d/%d bytes): %w", read, len(p), err)
		}
		if n == 0 {
			return fmt.Errorf("the circular buffer returned no data (%d/%d bytes)", read, len(p))
		}
	}
	return nil
}

func (r *RingBuffer) scratchBytes(samples int) []byte {
	size := samples * bytesPerSample
	if cap(r.scratch) < size {
		r.scratch = make([]byte, size)
	}
	return r.scratch[:size]
}
