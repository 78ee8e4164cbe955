package card

import (
	"crypto/ed25519"
	"errors"

	"github.com/Effeo/idpass-lite/internal/binpack"
	"github.com/Effeo/idpass-lite/pkg/cert"
	"github.com/Effeo/idpass-lite/pkg/face"
	"github.com/Effeo/idpass-lite/pkg/record"
	"github.com/Effeo/idpass-lite/pkg/template"
)

// ErrAuthFailure is the single outward sentinel for every verification
// failure: bad signature, failed decryption, chain-invalid (collapsed
// here per spec.md §9), PIN mismatch, or face distance over threshold.
// The module deliberately does not distinguish these outward, to avoid
// giving a verifier an oracle for which step failed.
var ErrAuthFailure = errors.New("card: verification failed")

// verifiedCard is what a container decodes and decrypts to once every
// chain, public-signature, and private-signature check has passed.
type verifiedCard struct {
	public  record.CardDetails
	private record.CardDetails
	secrets record.AccessSecrets
	cardPub ed25519.PublicKey
	cardKey ed25519.PrivateKey
}

// openContainer runs every check common to all Verify* variants: chain
// validation, public-region signature, decryption, and inner signature.
// It does not check the presented credential (face/PIN) itself.
func (c *Context) openContainer(containerBytes []byte) (verifiedCard, error) {
	var vc verifiedCard

	ctr, err := record.DecodeContainer(containerBytes)
	if err != nil {
		return vc, ErrAuthFailure
	}

	chain := certsFromWire(ctr.Certificates)
	if err := cert.ValidateChain(chain, c.pool.Roots(), c.revoked, c.trustedKeys, c.issuerPub); err != nil {
		return vc, ErrAuthFailure
	}
	// ValidateChain only confirms the chain's leaf subject is a
	// recognized signer (the context's own issuer key or a caller key);
	// it says nothing about which key actually signed this container. A
	// legitimate chain can be replayed against a forged container unless
	// the container's own signer key is pinned to that leaf here.
	if len(chain) == 0 {
		if !keysEqual(ctr.Public.IssuerPublicKey, c.issuerPub) {
			return vc, ErrAuthFailure
		}
	} else {
		leaf := chain[len(chain)-1].Subject
		if !keysEqual(ctr.Public.IssuerPublicKey, leaf) {
			return vc, ErrAuthFailure
		}
	}

	detailsBytes, err := ctr.Public.EncodeDetailsOnly()
	if err != nil {
		return vc, ErrAuthFailure
	}
	if len(ctr.Public.IssuerPublicKey) != ed25519.PublicKeySize ||
		!ed25519.Verify(ctr.Public.IssuerPublicKey, detailsBytes, ctr.Public.Signature) {
		return vc, ErrAuthFailure
	}

	signedInnerBytes, err := c.open(ctr.EncryptedPrivate)
	if err != nil {
		return vc, ErrAuthFailure
	}
	signedInner, innerBytes, err := record.DecodeSignedInnerCard(signedInnerBytes)
	if err != nil {
		return vc, ErrAuthFailure
	}
	if len(signedInner.IssuerPublicKey) != ed25519.PublicKeySize ||
		!ed25519.Verify(signedInner.IssuerPublicKey, innerBytes, signedInner.Signature) {
		return vc, ErrAuthFailure
	}
	if !keysEqual(signedInner.IssuerPublicKey, ctr.Public.IssuerPublicKey) {
		return vc, ErrAuthFailure
	}

	vc.public = ctr.Public.Details
	vc.private = signedInner.Inner.Details
	vc.secrets = signedInner.Inner.Secrets
	vc.cardPub = signedInner.Inner.CardPublicKey
	vc.cardKey = signedInner.Inner.CardPrivateKey
	return vc, nil
}

func (c *Context) thresholdFor(templateLen int) float32 {
	if templateLen == template.FullSize {
		return c.fullThreshold
	}
	return c.halfThreshold
}

// VerifyWithFace decodes and decrypts container, matches the presented
// photo's face template against the enrolled template at the Context's
// configured threshold, and returns the private details on success.
func (c *Context) VerifyWithFace(containerBytes []byte, photo []byte) (*Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	if len(vc.secrets.Template) == 0 {
		return nil, ErrAuthFailure
	}

	descriptor, err := c.describer.Describe(photo)
	if err != nil {
		return nil, err
	}
	presented, err := encodeTemplate(descriptor, len(vc.secrets.Template) == template.FullSize)
	if err != nil {
		return nil, ErrAuthFailure
	}

	return c.matchTemplate(vc, presented)
}

// VerifyWithRawDescriptor is VerifyWithFace for a caller who already ran
// the face engine and holds the raw 128-float descriptor: it skips
// Describe, encodes descriptor to match the stored template's
// precision, and applies the distance rule.
func (c *Context) VerifyWithRawDescriptor(containerBytes []byte, descriptor []float32) (*Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	if len(vc.secrets.Template) == 0 || len(descriptor) != template.Dimensions {
		return nil, ErrAuthFailure
	}

	var d face.Descriptor
	copy(d[:], descriptor)
	encoded, err := encodeTemplate(d, len(vc.secrets.Template) == template.FullSize)
	if err != nil {
		return nil, ErrAuthFailure
	}

	return c.matchTemplate(vc, encoded)
}

// VerifyWithPrecomputedTemplate is VerifyWithFace for a caller who
// already holds an encoded template (full or half precision) for the
// presented photo, skipping the face engine and the template codec.
func (c *Context) VerifyWithPrecomputedTemplate(containerBytes []byte, encoded []byte) (*Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	if len(vc.secrets.Template) == 0 {
		return nil, ErrAuthFailure
	}

	return c.matchTemplate(vc, encoded)
}

func (c *Context) matchTemplate(vc verifiedCard, encoded []byte) (*Buffer, error) {
	dist, err := template.Distance(vc.secrets.Template, encoded)
	if err != nil {
		return nil, ErrAuthFailure
	}
	if dist > float64(c.thresholdFor(len(vc.secrets.Template))) {
		return nil, ErrAuthFailure
	}
	return c.encodePrivate(vc.private)
}

// VerifyWithPIN decodes and decrypts container, and compares the
// presented PIN to the enrolled PIN in constant time.
func (c *Context) VerifyWithPIN(containerBytes []byte, pin string) (*Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	if vc.secrets.PIN == "" || !binpack.ConstantTimeCompare([]byte(vc.secrets.PIN), []byte(pin)) {
		return nil, ErrAuthFailure
	}

	return c.encodePrivate(vc.private)
}

func (c *Context) encodePrivate(d record.CardDetails) (*Buffer, error) {
	b, err := d.Encode()
	if err != nil {
		return nil, ErrAuthFailure
	}
	return c.newBuffer(b), nil
}
