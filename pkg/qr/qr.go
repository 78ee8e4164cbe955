package qr

import (
	"errors"
	"fmt"

	"github.com/nayuki/qrcodegen"
	"github.com/nayuki/qrcodegen/qrcodeecc"
	"github.com/pion/logging"
)

// ECCLevel mirrors the SET_ECC control-channel values: 0=L, 1=M, 2=Q, 3=H.
type ECCLevel uint8

const (
	ECCLow      ECCLevel = 0
	ECCMedium   ECCLevel = 1
	ECCQuartile ECCLevel = 2
	ECCHigh     ECCLevel = 3
)

// ErrECCLevel indicates an ECCLevel outside 0..3.
var ErrECCLevel = errors.New("qr: invalid error-correction level")

func (l ECCLevel) toNayuki() (qrcodeecc.QrCodeEcc, error) {
	switch l {
	case ECCLow:
		return qrcodeecc.Low, nil
	case ECCMedium:
		return qrcodeecc.Medium, nil
	case ECCQuartile:
		return qrcodeecc.Quartile, nil
	case ECCHigh:
		return qrcodeecc.High, nil
	default:
		return qrcodeecc.Medium, ErrECCLevel
	}
}

// Encoder turns a serialized container into a scannable QR bit matrix.
// It owns no state beyond an optional logger; callers may share one
// Encoder across goroutines.
type Encoder struct {
	log logging.LeveledLogger
}

// EncoderConfig configures an Encoder.
type EncoderConfig struct {
	// LoggerFactory creates the Encoder's logger. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// NewEncoder creates an Encoder from config.
func NewEncoder(config EncoderConfig) *Encoder {
	e := &Encoder{}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("qr")
	}
	return e
}

// Encode renders container as a QR bit matrix at the given error-correction
// level. The returned *qrcodegen.QrCode exposes Size() and GetModule(x, y)
// for callers to rasterize however they like; this package never touches
// pixels itself.
func (e *Encoder) Encode(container []byte, level ECCLevel) (*qrcodegen.QrCode, error) {
	ecl, err := level.toNayuki()
	if err != nil {
		return nil, err
	}

	qc, err := qrcodegen.EncodeBinary(container, ecl)
	if err != nil {
		if e.log != nil {
			e.log.Errorf("qr: encode failed: %v", err)
		}
		return nil, fmt.Errorf("qr: encode container: %w", err)
	}

	if e.log != nil {
		e.log.Debugf("qr: encoded %d bytes at ecc=%d into version %d matrix", len(container), level, qc.Version())
	}
	return qc, nil
}

// EncodeText renders container as Base38 text, the same alphanumeric-safe
// alphabet Matter onboarding payloads use, for callers that want a printable
// fallback alongside the matrix.
func (e *Encoder) EncodeText(container []byte) string {
	return Base38Encode(container)
}

// DecodeText reverses EncodeText.
func (e *Encoder) DecodeText(s string) ([]byte, error) {
	return Base38Decode(s)
}
