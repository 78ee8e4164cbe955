package record

import (
	"bytes"
	"fmt"

	"github.com/Effeo/idpass-lite/pkg/tlv"
)

// --- AccessSecrets ---

const (
	tagSecretsPIN      = 1
	tagSecretsTemplate = 2
)

func writeAccessSecrets(w *tlv.Writer, tag tlv.Tag, s *AccessSecrets) error {
	if err := w.StartStructure(tag); err != nil {
		return err
	}
	if s.PIN != "" {
		if err := w.PutString(tlv.ContextTag(tagSecretsPIN), s.PIN); err != nil {
			return err
		}
	}
	if len(s.Template) > 0 {
		if err := w.PutBytes(tlv.ContextTag(tagSecretsTemplate), s.Template); err != nil {
			return err
		}
	}
	return w.EndContainer()
}

func readAccessSecrets(r *tlv.Reader) (AccessSecrets, error) {
	var s AccessSecrets
	if err := r.EnterContainer(); err != nil {
		return s, err
	}
	for {
		if err := r.Next(); err != nil {
			return s, err
		}
		if r.IsEndOfContainer() {
			break
		}
		switch r.Tag().TagNumber() {
		case tagSecretsPIN:
			v, err := r.String()
			if err != nil {
				return s, err
			}
			s.PIN = v
		case tagSecretsTemplate:
			v, err := r.Bytes()
			if err != nil {
				return s, err
			}
			s.Template = v
		default:
			if err := r.Skip(); err != nil {
				return s, err
			}
		}
	}
	return s, r.ExitContainer()
}

// --- InnerCard ---

const (
	tagInnerDetails    = 1
	tagInnerSecrets    = 2
	tagInnerPublicKey  = 3
	tagInnerPrivateKey = 4
)

// Encode serializes the InnerCard deterministically.
func (c *InnerCard) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := w.StartStructure(tlv.Anonymous()); err != nil {
		return nil, err
	}
	if err := writeCardDetails(w, tlv.ContextTag(tagInnerDetails), &c.Details); err != nil {
		return nil, fmt.Errorf("record: encode inner card: %w", err)
	}
	if err := writeAccessSecrets(w, tlv.ContextTag(tagInnerSecrets), &c.Secrets); err != nil {
		return nil, fmt.Errorf("record: encode inner card: %w", err)
	}
	if err := w.PutBytes(tlv.ContextTag(tagInnerPublicKey), c.CardPublicKey); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagInnerPrivateKey), c.CardPrivateKey); err != nil {
		return nil, err
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeInnerCard parses the output of InnerCard.Encode.
func DecodeInnerCard(b []byte) (InnerCard, error) {
	var c InnerCard
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
		case tagInnerDetails:
			d, err := readCardDetails(r)
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.Details = d
		case tagInnerSecrets:
			s, err := readAccessSecrets(r)
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.Secrets = s
		case tagInnerPublicKey:
			v, err := r.Bytes()
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.CardPublicKey = v
		case tagInnerPrivateKey:
			v, err := r.Bytes()
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.CardPrivateKey = v
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

// --- SignedInnerCard ---

const (
	tagSignedInnerCard      = 1
	tagSignedInnerSig       = 2
	tagSignedInnerIssuerKey = 3
)

// Encode serializes the SignedInnerCard deterministically. The inner card
// is embedded as a pre-serialized byte string (not re-encoded inline) so
// that the bytes the signature covers are exactly the bytes stored.
func (s *SignedInnerCard) Encode() ([]byte, error) {
	innerBytes, err := s.Inner.Encode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := w.StartStructure(tlv.Anonymous()); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagSignedInnerCard), innerBytes); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagSignedInnerSig), s.Signature); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagSignedInnerIssuerKey), s.IssuerPublicKey); err != nil {
		return nil, err
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSignedInnerCard parses the output of SignedInnerCard.Encode.
// InnerBytes is also returned so callers can re-verify the signature
// against the exact serialized form without re-encoding (re-encoding an
// already-deterministic codec is equivalent, but callers that only need
// the raw bytes should not pay for a second encode).
func DecodeSignedInnerCard(b []byte) (sign SignedInnerCard, innerBytes []byte, err error) {
	r := tlv.NewReader(bytes.NewReader(b))
	if err = r.Next(); err != nil {
		return sign, nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err = r.EnterContainer(); err != nil {
		return sign, nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	for {
		if err = r.Next(); err != nil {
			return sign, nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if r.IsEndOfContainer() {
			break
		}
		switch r.Tag().TagNumber() {
		case tagSignedInnerCard:
			innerBytes, err = r.Bytes()
		case tagSignedInnerSig:
			sign.Signature, err = r.Bytes()
		case tagSignedInnerIssuerKey:
			sign.IssuerPublicKey, err = r.Bytes()
		default:
			err = r.Skip()
		}
		if err != nil {
			return sign, nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	if err = r.ExitContainer(); err != nil {
		return sign, nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	inner, err := DecodeInnerCard(innerBytes)
	if err != nil {
		return sign, nil, err
	}
	sign.Inner = inner
	return sign, innerBytes, nil
}

// --- PublicSignedRegion ---

const (
	tagPublicDetails   = 1
	tagPublicSig       = 2
	tagPublicIssuerKey = 3
)

// Encode serializes the PublicSignedRegion deterministically.
func (p *PublicSignedRegion) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := w.StartStructure(tlv.Anonymous()); err != nil {
		return nil, err
	}
	if err := writeCardDetails(w, tlv.ContextTag(tagPublicDetails), &p.Details); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagPublicSig), p.Signature); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagPublicIssuerKey), p.IssuerPublicKey); err != nil {
		return nil, err
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDetailsOnly serializes just p.Details, the bytes the issuer
// signature is computed over.
func (p *PublicSignedRegion) EncodeDetailsOnly() ([]byte, error) {
	return p.Details.Encode()
}

// DecodePublicSignedRegion parses the output of PublicSignedRegion.Encode.
func DecodePublicSignedRegion(b []byte) (PublicSignedRegion, error) {
	var p PublicSignedRegion
	r := tlv.NewReader(bytes.NewReader(b))
	if err := r.Next(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := r.EnterContainer(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	for {
		if err := r.Next(); err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if r.IsEndOfContainer() {
			break
		}
		var err error
		switch r.Tag().TagNumber() {
		case tagPublicDetails:
			p.Details, err = readCardDetails(r)
		case tagPublicSig:
			p.Signature, err = r.Bytes()
		case tagPublicIssuerKey:
			p.IssuerPublicKey, err = r.Bytes()
		default:
			err = r.Skip()
		}
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	return p, r.ExitContainer()
}

// --- WireCertificate ---

const (
	tagCertSubjectKey = 1
	tagCertIssuerKey  = 2
	tagCertSignature  = 3
)

func writeCertificate(w *tlv.Writer, tag tlv.Tag, c *WireCertificate) error {
	if err := w.StartStructure(tag); err != nil {
		return err
	}
	if err := w.PutBytes(tlv.ContextTag(tagCertSubjectKey), c.SubjectPublicKey); err != nil {
		return err
	}
	if err := w.PutBytes(tlv.ContextTag(tagCertIssuerKey), c.IssuerPublicKey); err != nil {
		return err
	}
	if err := w.PutBytes(tlv.ContextTag(tagCertSignature), c.Signature); err != nil {
		return err
	}
	return w.EndContainer()
}

func readCertificate(r *tlv.Reader) (WireCertificate, error) {
	var c WireCertificate
	if err := r.EnterContainer(); err != nil {
		return c, err
	}
	for {
		if err := r.Next(); err != nil {
			return c, err
		}
		if r.IsEndOfContainer() {
			break
		}
		var err error
		switch r.Tag().TagNumber() {
		case tagCertSubjectKey:
			c.SubjectPublicKey, err = r.Bytes()
		case tagCertIssuerKey:
			c.IssuerPublicKey, err = r.Bytes()
		case tagCertSignature:
			c.Signature, err = r.Bytes()
		default:
			err = r.Skip()
		}
		if err != nil {
			return c, err
		}
	}
	return c, r.ExitContainer()
}

// Encode serializes a single WireCertificate.
func (c *WireCertificate) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := writeCertificate(w, tlv.Anonymous(), c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- Container ---

const (
	tagContainerPublic    = 1
	tagContainerEncrypted = 2
	tagContainerCerts     = 3
)

// Encode serializes the Container deterministically.
func (c *Container) Encode() ([]byte, error) {
	publicBytes, err := c.Public.Encode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := w.StartStructure(tlv.Anonymous()); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagContainerPublic), publicBytes); err != nil {
		return nil, err
	}
	if err := w.PutBytes(tlv.ContextTag(tagContainerEncrypted), c.EncryptedPrivate); err != nil {
		return nil, err
	}
	if len(c.Certificates) > 0 {
		if err := w.StartArray(tlv.ContextTag(tagContainerCerts)); err != nil {
			return nil, err
		}
		for i := range c.Certificates {
			if err := writeCertificate(w, tlv.Anonymous(), &c.Certificates[i]); err != nil {
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

// DecodeContainer parses the output of Container.Encode.
func DecodeContainer(b []byte) (Container, error) {
	var c Container
	r := tlv.NewReader(bytes.NewReader(b))
	if err := r.Next(); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := r.EnterContainer(); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	var publicBytes []byte
	for {
		if err := r.Next(); err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if r.IsEndOfContainer() {
			break
		}
		switch r.Tag().TagNumber() {
		case tagContainerPublic:
			v, err := r.Bytes()
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			publicBytes = v
		case tagContainerEncrypted:
			v, err := r.Bytes()
			if err != nil {
				return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
			c.EncryptedPrivate = v
		case tagContainerCerts:
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
				cert, err := readCertificate(r)
				if err != nil {
					return c, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
				}
				c.Certificates = append(c.Certificates, cert)
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
	public, err := DecodePublicSignedRegion(publicBytes)
	if err != nil {
		return c, err
	}
	c.Public = public
	return c, nil
}
