// Package binpack provides the fixed-width byte packing primitives the
// rest of the module builds on: little-endian float packing, IEEE-754
// half-precision conversion for compact face templates, and constant-time
// comparison for secrets (PINs, MAC/auth-tag style checks).
package binpack

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"math"
)

// ErrBufferTooShort indicates the destination/source slice is smaller
// than the fixed width the operation requires.
var ErrBufferTooShort = errors.New("binpack: buffer too short")

// PutFloat32 writes v as little-endian IEEE-754 into dst[0:4].
func PutFloat32(dst []byte, v float32) error {
	if len(dst) < 4 {
		return ErrBufferTooShort
	}
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	return nil
}

// Float32 reads a little-endian IEEE-754 float32 from src[0:4].
func Float32(src []byte) (float32, error) {
	if len(src) < 4 {
		return 0, ErrBufferTooShort
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(src)), nil
}

// PackFloats packs a whole float32 vector as consecutive little-endian
// 4-byte runs.
func PackFloats(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// UnpackFloats is the inverse of PackFloats. len(b) must be a multiple of 4.
func UnpackFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, ErrBufferTooShort
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Float32ToHalf converts a float32 to its IEEE-754 binary16 bit pattern,
// round-to-nearest-even, flushing subnormal results to zero, and
// preserving infinities and NaN.
func Float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	switch {
	case (bits>>23)&0xFF == 0xFF:
		// Infinity or NaN: preserve.
		if mant != 0 {
			return sign | 0x7E00 // quiet NaN
		}
		return sign | 0x7C00
	case exp >= 0x1F:
		// Overflow to infinity.
		return sign | 0x7C00
	case exp <= 0:
		// Underflow: flush subnormals to zero per spec.
		return sign
	default:
		// Round to nearest-even on the dropped 13 mantissa bits.
		halfMant := mant >> 13
		roundBits := mant & 0x1FFF
		const halfway = 0x1000
		if roundBits > halfway || (roundBits == halfway && halfMant&1 == 1) {
			halfMant++
			if halfMant == 0x400 {
				halfMant = 0
				exp++
				if exp >= 0x1F {
					return sign | 0x7C00
				}
			}
		}
		return sign | uint16(exp<<10) | uint16(halfMant)
	}
}

// HalfToFloat32 converts an IEEE-754 binary16 bit pattern back to float32.
func HalfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := (h >> 10) & 0x1F
	mant := uint32(h & 0x3FF)

	switch {
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half, normalize into a float32.
		e := -14
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3FF
		bits := sign | uint32(int32(127+e)<<23) | (mant << 13)
		return math.Float32frombits(bits)
	case exp == 0x1F:
		if mant == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7FC00000)
	default:
		bits := sign | uint32(int32(exp)-15+127)<<23 | (mant << 13)
		return math.Float32frombits(bits)
	}
}

// PackHalfFloats packs a float32 vector as consecutive little-endian
// 2-byte half-precision values.
func PackHalfFloats(v []float32) []byte {
	out := make([]byte, 2*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint16(out[i*2:], Float32ToHalf(f))
	}
	return out
}

// UnpackHalfFloats is the inverse of PackHalfFloats. len(b) must be a
// multiple of 2.
func UnpackHalfFloats(b []byte) ([]float32, error) {
	if len(b)%2 != 0 {
		return nil, ErrBufferTooShort
	}
	out := make([]float32, len(b)/2)
	for i := range out {
		out[i] = HalfToFloat32(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out, nil
}

// ConstantTimeCompare reports whether a and b are equal using a
// constant-time comparison, to avoid timing oracles on secret buffers
// (PINs, auth tags). Unequal lengths compare unequal.
func ConstantTimeCompare(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
