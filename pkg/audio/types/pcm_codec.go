package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// the largest float64 below 1 that still fits into int64 after scaling
const maxS64Fraction = 0.9999999999999999

// DecodeSample reads one sample of format f from the beginning of p,
// normalized to [-1, 1] for the integer formats.
func (f PCMFormat) DecodeSample(p []byte) float64 {
	switch f {
	case PCMFormatU8:
		return (float64(p[0]) - 128) / 128
	case PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case PCMFormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / 32768
	case PCMFormatS24LE:
		return float64(signExtend24(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16)) / 8388608
	case PCMFormatS24BE:
		return float64(signExtend24(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16)) / 8388608
	case PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648
	case PCMFormatS32BE:
		return float64(int32(binary.BigEndian.Uint32(p))) / 2147483648
	case PCMFormatS64LE:
		return float64(int64(binary.LittleEndian.Uint64(p))) / 9223372036854775808
	case PCMFormatS64BE:
		return float64(int64(binary.BigEndian.Uint64(p))) / 9223372036854775808
	case PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case PCMFormatFloat32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
	case PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	case PCMFormatFloat64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// EncodeSample writes v into the beginning of p, clipping the integer formats.
func (f PCMFormat) EncodeSample(p []byte, v float64) {
	switch f {
	case PCMFormatU8:
		p[0] = byte(clip(math.Round(v*128+128), 0, 255))
	case PCMFormatS16LE:
		binary.LittleEndian.PutUint16(p, uint16(int16(clip(math.Round(v*32768), -32768, 32767))))
	case PCMFormatS16BE:
		binary.BigEndian.PutUint16(p, uint16(int16(clip(math.Round(v*32768), -32768, 32767))))
	case PCMFormatS24LE:
		val := int32(clip(math.Round(v*8388608), -8388608, 8388607))
		p[0], p[1], p[2] = byte(val), byte(val>>8), byte(val>>16)
	case PCMFormatS24BE:
		val := int32(clip(math.Round(v*8388608), -8388608, 8388607))
		p[0], p[1], p[2] = byte(val>>16), byte(val>>8), byte(val)
	case PCMFormatS32LE:
		binary.LittleEndian.PutUint32(p, uint32(int32(clip(math.Round(v*2147483648), -2147483648, 2147483647))))
	case PCMFormatS32BE:
		binary.BigEndian.PutUint32(p, uint32(int32(clip(math.Round(v*2147483648), -2147483648, 2147483647))))
	case PCMFormatS64LE:
		binary.LittleEndian.PutUint64(p, uint64(int64(clip(v, -1, maxS64Fraction)*9223372036854775808)))
	case PCMFormatS64BE:
		binary.BigEndian.PutUint64(p, uint64(int64(clip(v, -1, maxS64Fraction)*9223372036854775808)))
	case PCMFormatFloat32LE:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case PCMFormatFloat32BE:
		binary.BigEndian.PutUint32(p, math.Float32bits(float32(v)))
	case PCMFormatFloat64LE:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	case PCMFormatFloat64BE:
		binary.BigEndian.PutUint64(p, math.Float64bits(v))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// DecodeFloat32 converts a whole byte buffer of format f into samples.
// A trailing partial sample is ignored.
func (f PCMFormat) DecodeFloat32(p []byte) []float32 {
	size := int(f.Size())
	out := make([]float32, len(p)/size)
	for idx := range out {
		out[idx] = float32(f.DecodeSample(p[idx*size:]))
	}
	return out
}

// EncodeFloat32 converts samples into a byte buffer of format f.
func (f PCMFormat) EncodeFloat32(samples []float32) []byte {
	size := int(f.Size())
	out := make([]byte, len(samples)*size)
	for idx, v := range samples {
		f.EncodeSample(out[idx*size:], float64(v))
	}
	return out
}

func signExtend24(v uint32) int32 {
	val := int32(v)
	if val&0x800000 != 0 {
		val |= -16777216
	}
	return val
}

func clip(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
