// Package card implements the credential lifecycle: composing a record
// from biographic fields and a photo, partitioning it into public and
// private regions, signing and encrypting it into a serialized
// container, and later verifying that container by face, PIN, or a
// precomputed template.
//
// A Context holds everything a single issuer/verifier needs: the
// symmetric key for the private region, the issuer's own signing
// keypair, the set of additional keys it recognizes as signers, face
// match thresholds, the visibility mask, and certificate trust state.
// All Context methods are safe for concurrent use; a single mutex
// guards every mutable field except the buffer-handle table, which
// carries its own lock (see buffers.go), mirroring the teacher's
// pkg/session.SecureContext and pkg/fabric.Table.
package card

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"sync"

	"github.com/Effeo/idpass-lite/pkg/cert"
	"github.com/Effeo/idpass-lite/pkg/face"
	"github.com/Effeo/idpass-lite/pkg/qr"
	"github.com/Effeo/idpass-lite/pkg/record"
	"github.com/pion/logging"
)

// Errors surfaced at the Context-management boundary. Verification
// failures are reported through the narrower errors in verify.go;
// these are construction-time and control-channel errors.
var (
	// ErrNoTrustedKeys indicates an init record with an empty trusted-key set.
	ErrNoTrustedKeys = errors.New("card: at least one trusted key is required")
	// ErrIssuerKeyNotTrusted indicates the issuer's own public key is
	// missing from its trusted-key set, violating the Context invariant.
	ErrIssuerKeyNotTrusted = errors.New("card: issuer public key must be in the trusted key set")
	// ErrInvalidSymmetricKey indicates a symmetric key that is not 32 bytes.
	ErrInvalidSymmetricKey = errors.New("card: symmetric key must be 32 bytes")
	// ErrInvalidControlCommand indicates a malformed control-channel command.
	ErrInvalidControlCommand = errors.New("card: invalid control command")
)

// SymmetricKeySize is the size, in bytes, of the private-region AEAD key.
const SymmetricKeySize = 32

// Default full- and half-precision face-match thresholds, used when a
// Context is constructed without explicit overrides. The half-precision
// template keeps only the first HalfDimensions of a full descriptor, so
// a matching pair's Euclidean distance scales down with it; the half
// threshold is set proportionally below the full one rather than reused
// as-is.
const (
	DefaultFullThreshold = 0.6
	DefaultHalfThreshold = 0.42
)

// Config configures a new Context.
type Config struct {
	// Init is the serialized ContextInit record carrying the symmetric
	// key, the issuer's Ed25519 secret key, and the trusted key set.
	Init []byte
	// RootCertificates is an optional serialized CertificateList
	// seeding the Context's trust anchors. May be nil or empty, in
	// which case the Context has no chain-of-trust capability but
	// still issues and verifies directly-trusted cards.
	RootCertificates []byte
	// Describer supplies the face engine. Defaults to face.StubDescriber{}.
	Describer face.Describer
	// Rand seeds every random draw the Context makes (key generation,
	// nonces). Defaults to crypto/rand.Reader.
	Rand io.Reader
	// LoggerFactory builds the Context's logger, as pion/logging Configs do.
	LoggerFactory logging.LoggerFactory
}

// Context is the mutable, mutex-guarded state backing issuance and
// verification. It owns every buffer it hands back to a caller via a
// handle table (buffers.go) instead of a global registry.
type Context struct {
	mu sync.Mutex

	symmetricKey []byte
	issuerPub    ed25519.PublicKey
	issuerPriv   ed25519.PrivateKey
	trustedKeys  [][]byte

	fullThreshold float32
	halfThreshold float32
	fullDimension bool // dimension flag: true = full precision, false = half
	visibleMask   uint64
	eccLevel      qr.ECCLevel

	pool    *cert.Pool
	revoked [][]byte

	describer face.Describer
	rng       io.Reader
	log       logging.LeveledLogger
	qrEnc     *qr.Encoder

	buffers *bufferTable
}

// NewContext builds a Context from Config. The issuer signing keypair's
// public half must be present in the trusted-key set (ErrIssuerKeyNotTrusted).
func NewContext(config Config) (*Context, error) {
	init, err := record.DecodeContextInit(config.Init)
	if err != nil {
		return nil, err
	}
	if len(init.SymmetricKey) != SymmetricKeySize {
		return nil, ErrInvalidSymmetricKey
	}
	if len(init.TrustedKeys) == 0 {
		return nil, ErrNoTrustedKeys
	}
	if len(init.IssuerPrivateKey) != ed25519.PrivateKeySize {
		return nil, errors.New("card: issuer private key must be 64 bytes")
	}

	priv := ed25519.PrivateKey(init.IssuerPrivateKey)
	pub := priv.Public().(ed25519.PublicKey)

	trusted := false
	for _, k := range init.TrustedKeys {
		if keysEqual(k, pub) {
			trusted = true
			break
		}
	}
	if !trusted {
		return nil, ErrIssuerKeyNotTrusted
	}

	var roots []cert.Certificate
	if len(config.RootCertificates) > 0 {
		list, err := record.DecodeCertificateList(config.RootCertificates)
		if err != nil {
			return nil, err
		}
		roots = make([]cert.Certificate, len(list.Certificates))
		for i, w := range list.Certificates {
			roots[i] = cert.Certificate{Subject: w.SubjectPublicKey, Issuer: w.IssuerPublicKey, Signature: w.Signature}
		}
	}

	describer := config.Describer
	if describer == nil {
		describer = face.StubDescriber{}
	}
	rng := config.Rand
	if rng == nil {
		rng = rand.Reader
	}
	var logger logging.LeveledLogger
	if config.LoggerFactory != nil {
		logger = config.LoggerFactory.NewLogger("card")
	}

	return &Context{
		symmetricKey:  append([]byte(nil), init.SymmetricKey...),
		issuerPub:     pub,
		issuerPriv:    priv,
		trustedKeys:   init.TrustedKeys,
		fullThreshold: DefaultFullThreshold,
		halfThreshold: DefaultHalfThreshold,
		fullDimension: false,
		visibleMask:   0,
		eccLevel:      qr.ECCMedium,
		pool:          cert.NewPool(roots),
		describer:     describer,
		rng:           rng,
		log:           logger,
		qrEnc:         qr.NewEncoder(qr.EncoderConfig{LoggerFactory: config.LoggerFactory}),
		buffers:       newBufferTable(),
	}, nil
}

func keysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddCertificates validates chain as a chain against the Context's
// current trust anchors and intermediates and, only on success, adds it
// to the intermediate pool (spec.md §4.5).
func (c *Context) AddCertificates(serializedChain []byte) error {
	list, err := record.DecodeCertificateList(serializedChain)
	if err != nil {
		return err
	}
	chain := make([]cert.Certificate, len(list.Certificates))
	for i, w := range list.Certificates {
		chain[i] = cert.Certificate{Subject: w.SubjectPublicKey, Issuer: w.IssuerPublicKey, Signature: w.Signature}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool.AddCertificates(chain, c.revoked, c.trustedKeys, c.issuerPub)
}

// Revoke adds a public key to the Context's revocation set.
func (c *Context) Revoke(key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked = append(c.revoked, append([]byte(nil), key...))
}

// VerifyCertificateCount returns the number of certificates currently
// attached to the intermediate pool (used by tests to confirm
// add_certificates committed a chain).
func (c *Context) VerifyCertificateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pool.Intermediates())
}

// Destroy wipes the Context's secret material. After Destroy, further
// calls on c are not guaranteed to work; callers must not reuse it.
func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	wipe(c.symmetricKey)
	wipe(c.issuerPriv)
	c.buffers.freeAll()
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
