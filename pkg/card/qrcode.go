package card

import "github.com/nayuki/qrcodegen"

// EncodeQR renders a serialized container as a QR bit matrix at the
// Context's currently configured error-correction level (set via
// SetECCLevel / the SET_ECC control opcode).
func (c *Context) EncodeQR(containerBytes []byte) (*qrcodegen.QrCode, error) {
	c.mu.Lock()
	level := c.eccLevel
	enc := c.qrEnc
	c.mu.Unlock()
	return enc.Encode(containerBytes, level)
}
