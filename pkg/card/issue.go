package card

import (
	"crypto/ed25519"
	"errors"
	"io"

	"github.com/Effeo/idpass-lite/pkg/cert"
	"github.com/Effeo/idpass-lite/pkg/face"
	"github.com/Effeo/idpass-lite/pkg/record"
	"github.com/Effeo/idpass-lite/pkg/template"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMissingCredential indicates an Identity with neither a photo nor a PIN.
var ErrMissingCredential = errors.New("card: identity needs a photo, a PIN, or both")

// ErrPhotoInPublicRegion is returned alongside a successfully issued
// container when the Context's visibility mask includes the photo bit.
// It is a diagnostic, not a failure: the spec leaves whether to publish
// a bearer's photo in the clear to the caller's judgment, but a context
// configured that way is worth flagging (SPEC_FULL.md's resolution of
// the spec's open question on this point).
var ErrPhotoInPublicRegion = errors.New("card: visibility mask exposes the photo in the public region")

// Identity is the caller-supplied input to Issue: every biographic
// field, plus an access PIN. The photo is passed separately since it is
// consumed by the face engine rather than stored as a field.
type Identity struct {
	Details record.CardDetails
	PIN     string
}

// Issue builds, signs, and encrypts a container for identity, optionally
// deriving a face template from photo. photo may be nil if identity.PIN
// is set; at least one of the two is required.
//
// With Rand held fixed, repeated calls with the same identity and photo
// under the same Context produce byte-identical containers, since
// CardDetails and the wire codec are both deterministic and the only
// other sources of variation — the per-card keypair and the AEAD nonce
// — are drawn from Rand.
func (c *Context) Issue(identity Identity, photo []byte) ([]byte, error) {
	if len(photo) == 0 && identity.PIN == "" {
		return nil, ErrMissingCredential
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var tmpl []byte
	if len(photo) > 0 {
		descriptor, err := c.describer.Describe(photo)
		if err != nil {
			return nil, err
		}
		tmpl, err = encodeTemplate(descriptor, c.fullDimension)
		if err != nil {
			return nil, err
		}
	}

	priv := privateDetails(identity.Details)
	pub := publicDetails(identity.Details, c.visibleMask)

	cardPub, cardPriv, err := ed25519.GenerateKey(c.rng)
	if err != nil {
		return nil, err
	}

	inner := record.InnerCard{
		Details:        priv,
		Secrets:        record.AccessSecrets{PIN: identity.PIN, Template: tmpl},
		CardPublicKey:  cardPub,
		CardPrivateKey: cardPriv,
	}
	innerBytes, err := inner.Encode()
	if err != nil {
		return nil, err
	}
	signedInner := record.SignedInnerCard{
		Inner:           inner,
		Signature:       ed25519.Sign(c.issuerPriv, innerBytes),
		IssuerPublicKey: c.issuerPub,
	}
	signedInnerBytes, err := signedInner.Encode()
	if err != nil {
		return nil, err
	}

	encryptedPrivate, err := c.seal(signedInnerBytes)
	if err != nil {
		return nil, err
	}

	publicRegion := record.PublicSignedRegion{Details: pub, IssuerPublicKey: c.issuerPub}
	detailsBytes, err := publicRegion.EncodeDetailsOnly()
	if err != nil {
		return nil, err
	}
	publicRegion.Signature = ed25519.Sign(c.issuerPriv, detailsBytes)

	container := record.Container{
		Public:           publicRegion,
		EncryptedPrivate: encryptedPrivate,
		Certificates:     wireCertificates(c.pool.Intermediates()),
	}
	out, err := container.Encode()
	if err != nil {
		return nil, err
	}

	if c.visibleMask&MaskPhoto != 0 {
		return out, ErrPhotoInPublicRegion
	}
	return out, nil
}

// seal encrypts plaintext under the Context's symmetric key with a
// fresh random 12-byte nonce, returning nonce||ciphertext.
func (c *Context) seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.symmetricKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(c.rng, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal.
func (c *Context) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.symmetricKey)
	if err != nil {
		return nil, err
	}
	if len(sealed) < chacha20poly1305.NonceSize {
		return nil, ErrAuthFailure
	}
	nonce, ciphertext := sealed[:chacha20poly1305.NonceSize], sealed[chacha20poly1305.NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}

func encodeTemplate(d face.Descriptor, full bool) ([]byte, error) {
	if full {
		return template.EncodeFull(d[:])
	}
	return template.EncodeHalf(d[:])
}

func wireCertificates(chain []cert.Certificate) []record.WireCertificate {
	out := make([]record.WireCertificate, len(chain))
	for i, c := range chain {
		out[i] = record.WireCertificate{SubjectPublicKey: c.Subject, IssuerPublicKey: c.Issuer, Signature: c.Signature}
	}
	return out
}

func certsFromWire(wire []record.WireCertificate) []cert.Certificate {
	out := make([]cert.Certificate, len(wire))
	for i, w := range wire {
		out[i] = cert.Certificate{Subject: w.SubjectPublicKey, Issuer: w.IssuerPublicKey, Signature: w.Signature}
	}
	return out
}
