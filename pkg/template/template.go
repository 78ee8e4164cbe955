// Package template encodes a 128-dimensional face descriptor into a
// compact fixed-size template (full or half precision) and computes the
// Euclidean distance between two encoded templates for verification.
package template

import (
	"errors"
	"fmt"
	"math"

	"github.com/Effeo/idpass-lite/internal/binpack"
)

// Dimensions of a raw face descriptor, as returned by pkg/face.
const Dimensions = 128

// HalfDimensions is the number of dimensions kept in the half-precision
// template (the first 64 of the 128, per the encoding contract).
const HalfDimensions = 64

const (
	// FullSize is the encoded size of a full-precision template:
	// 128 dims * 4 bytes.
	FullSize = Dimensions * 4
	// HalfSize is the encoded size of a half-precision template:
	// 64 dims * 2 bytes.
	HalfSize = HalfDimensions * 2
)

var (
	// ErrWrongDescriptorLength indicates the input descriptor is not
	// exactly Dimensions floats.
	ErrWrongDescriptorLength = errors.New("template: descriptor must have 128 dimensions")

	// ErrWrongTemplateLength indicates a template is not 512 or 128 bytes.
	ErrWrongTemplateLength = errors.New("template: encoded template must be 512 or 128 bytes")

	// ErrLengthMismatch indicates two templates being compared are
	// encoded at different precisions.
	ErrLengthMismatch = errors.New("template: cannot compare templates of different precision")
)

// EncodeFull encodes a 128-float descriptor as 512 bytes of full-precision
// (IEEE-754 float32) values.
func EncodeFull(descriptor []float32) ([]byte, error) {
	if len(descriptor) != Dimensions {
		return nil, ErrWrongDescriptorLength
	}
	return binpack.PackFloats(descriptor), nil
}

// EncodeHalf encodes a 128-float descriptor as 128 bytes, keeping only the
// first 64 dimensions converted to IEEE-754 half precision.
func EncodeHalf(descriptor []float32) ([]byte, error) {
	if len(descriptor) != Dimensions {
		return nil, ErrWrongDescriptorLength
	}
	return binpack.PackHalfFloats(descriptor[:HalfDimensions]), nil
}

// decode returns the float vector an encoded template represents,
// regardless of which precision it was encoded at.
func decode(encoded []byte) ([]float32, error) {
	switch len(encoded) {
	case FullSize:
		return binpack.UnpackFloats(encoded)
	case HalfSize:
		return binpack.UnpackHalfFloats(encoded)
	default:
		return nil, fmt.Errorf("%w: got %d bytes", ErrWrongTemplateLength, len(encoded))
	}
}

// Distance computes the Euclidean distance between two encoded templates.
// Both must be 512 or 128 bytes and must match each other's length —
// comparing a full-precision template against a half-precision one is
// rejected rather than silently padded or truncated.
func Distance(a, b []byte) (float64, error) {
	av, err := decode(a)
	if err != nil {
		return 0, err
	}
	bv, err := decode(b)
	if err != nil {
		return 0, err
	}
	if len(av) != len(bv) {
		return 0, ErrLengthMismatch
	}

	var sum float64
	for i := range av {
		d := float64(av[i]) - float64(bv[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
