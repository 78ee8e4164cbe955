package record

import (
	"bytes"
	"fmt"

	"github.com/Effeo/idpass-lite/pkg/tlv"
)

// ContextInit is the serialized initialization input a Context is built
// from: the symmetric key, the issuer's Ed25519 secret key, and the set
// of Ed25519 public keys a Context should treat as recognized signers.
type ContextInit struct {
	SymmetricKey     []byte   // 32 bytes
	IssuerPrivateKey []byte   // 64 bytes, Ed25519 seed||public
	TrustedKeys      [][]byte // each 32 bytes
}

const (
	tagInitSymmetricKey = 1
	tagInitIssuerKey    = 2
	tagInitTrustedKeys  = 3
)

// Encode serializes a ContextInit deterministically.
func (c *ContextInit) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := w.StartStructure(tlv.Anonymous()); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagInitSymmetricKey), c.SymmetricKey); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagInitIssuerKey), c.IssuerPrivateKey); err != nil {
		return nil, err
	}
	if len(c.TrustedKeys) > 0 {
		if err := w.StartArray(tlv.ContextTag(tagInitTrustedKeys)); err != nil {
			return nil, err
		}
		for _, k := range c.TrustedKeys {
			if err := w.PutBytes(tlv.Anonymous(), k); err != nil {
				return nil, err
			}
		}
		if err := w.EndContainer(); err != nil {
			return nil, err
		}
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeContextInit parses the output of ContextInit.Encode.
func DecodeContextInit(b []byte) (ContextInit, error) {
	var c ContextInit
	r := tlv.NewReader(bytes.NewReader(b))
	if err := r.Next(); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := r.EnterContainer(); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	for {
		if err := r.Next(); err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if r.IsEndOfContainer() {
			break
		}
		switch r.Tag().TagNumber() {
		case tagInitSymmetricKey:
			v, err := r.Bytes()
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.SymmetricKey = v
		case tagInitIssuerKey:
			v, err := r.Bytes()
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.IssuerPrivateKey = v
		case tagInitTrustedKeys:
			if err := r.EnterContainer(); err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			for {
				if err := r.Next(); err != nil {
					return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
				}
				if r.IsEndOfContainer() {
					break
				}
				v, err := r.Bytes()
				if err != nil {
					return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
				}
				c.TrustedKeys = append(c.TrustedKeys, v)
			}
			if err := r.ExitContainer(); err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
		default:
			if err := r.Skip(); err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
		}
	}
	if err := r.ExitContainer(); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return c, nil
}

// CertificateList is a standalone serialized list of certificates, used
// to seed a Context's trust anchors independently of a Container.
type CertificateList struct {
	Certificates []WireCertificate
}

// Encode serializes a CertificateList deterministically.
func (l *CertificateList) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := w.StartArray(tlv.Anonymous()); err != nil {
		return nil, err
	}
	for i := range l.Certificates {
		if err := writeCertificate(w, tlv.Anonymous(), &l.Certificates[i]); err != nil {
			return nil, err
		}
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCertificateList parses the output of CertificateList.Encode.
func DecodeCertificateList(b []byte) (CertificateList, error) {
	var l CertificateList
	r := tlv.NewReader(bytes.NewReader(b))
	if err := r.Next(); err != nil {
		return l, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := r.EnterContainer(); err != nil {
		return l, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	for {
		if err := r.Next(); err != nil {
			return l, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if r.IsEndOfContainer() {
			break
		}
		c, err := readCertificate(r)
		if err != nil {
			return l, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		l.Certificates = append(l.Certificates, c)
	}
	if err := r.ExitContainer(); err != nil {
		return l, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return l, nil
}
