package card

import (
	"encoding/binary"
	"math"

	"github.com/Effeo/idpass-lite/pkg/qr"
)

// Control channel opcodes, a single opaque byte-array command surface
// with a one-byte opcode and a payload (spec.md §4.7).
const (
	OpSetFaceDiff byte = iota
	OpGetFaceDiff
	OpSetFDim
	OpGetFDim
	OpSetECC
	OpSetACL
)

// Control dispatches a single control-channel command: cmd[0] is the
// opcode, cmd[1:] is the opcode's payload. It returns the response
// payload for read opcodes (GET_FACEDIFF, GET_FDIM) and nil otherwise.
func (c *Context) Control(cmd []byte) ([]byte, error) {
	if len(cmd) < 1 {
		return nil, ErrInvalidControlCommand
	}
	op, payload := cmd[0], cmd[1:]

	c.mu.Lock()
	defer c.mu.Unlock()

	switch op {
	case OpSetFaceDiff:
		if len(payload) != 4 {
			return nil, ErrInvalidControlCommand
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(payload))
		if c.fullDimension {
			c.fullThreshold = v
		} else {
			c.halfThreshold = v
		}
		return nil, nil

	case OpGetFaceDiff:
		v := c.halfThreshold
		if c.fullDimension {
			v = c.fullThreshold
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(v))
		return out, nil

	case OpSetFDim:
		if len(payload) != 1 {
			return nil, ErrInvalidControlCommand
		}
		c.fullDimension = payload[0] != 0
		return nil, nil

	case OpGetFDim:
		var v byte
		if c.fullDimension {
			v = 1
		}
		return []byte{v}, nil

	case OpSetECC:
		if len(payload) != 1 {
			return nil, ErrInvalidControlCommand
		}
		c.eccLevel = qr.ECCLevel(payload[0])
		return nil, nil

	case OpSetACL:
		if len(payload) != 8 {
			return nil, ErrInvalidControlCommand
		}
		c.visibleMask = binary.LittleEndian.Uint64(payload)
		return nil, nil

	default:
		return nil, ErrInvalidControlCommand
	}
}

// SetFaceThreshold, VisibilityMask, SetECCLevel, SetDimension are typed
// shims over Control for callers that prefer typed methods to the raw
// opcode surface.
func (c *Context) SetFaceThreshold(v float32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	_, err := c.Control(append([]byte{OpSetFaceDiff}, buf...))
	return err
}

func (c *Context) FaceThreshold() (float32, error) {
	out, err := c.Control([]byte{OpGetFaceDiff})
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(out)), nil
}

func (c *Context) SetDimension(full bool) error {
	var v byte
	if full {
		v = 1
	}
	_, err := c.Control([]byte{OpSetFDim, v})
	return err
}

func (c *Context) SetECCLevel(level qr.ECCLevel) error {
	_, err := c.Control([]byte{OpSetECC, byte(level)})
	return err
}

func (c *Context) VisibilityMask(mask uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, mask)
	_, err := c.Control(append([]byte{OpSetACL}, buf...))
	return err
}
