// Package cert implements the certificate and certificate-chain model
// used to delegate issuing authority: a certificate is nothing more than
// {subject public key, issuer public key, signature}, and a chain is a
// list of such certificates walked from a trust anchor down to a signer.
//
// This is a deliberate simplification of the teacher's Matter certificate
// stack (pkg/credentials), which carries X.509-style distinguished names,
// validity windows and extensions over ECDSA/P-256. Here the only key
// algorithm is Ed25519 and the only subject identity is the key itself,
// so the DN/extension machinery has no role to play.
package cert

import (
	"crypto/ed25519"
	"errors"
	"io"
)

// Errors surfaced by certificate creation and chain validation. The
// module never exposes anything finer-grained than these outward; the
// card package collapses ErrChainInvalid into its own auth-failure
// sentinel at verification time, but reports it distinctly when callers
// manage chains directly (add_certificates).
var (
	// ErrBadSignature indicates a certificate's signature does not
	// verify under its stated issuer key.
	ErrBadSignature = errors.New("cert: signature does not verify")
	// ErrRevoked indicates a subject or issuer key appears in the
	// revocation set.
	ErrRevoked = errors.New("cert: key is revoked")
	// ErrCycle indicates the chain contains a subject that repeats
	// when walked from leaf to root.
	ErrCycle = errors.New("cert: cycle detected in chain")
	// ErrForwardReference indicates a certificate's issuer does not
	// match any earlier certificate's subject.
	ErrForwardReference = errors.New("cert: issuer has no earlier ancestor in chain")
	// ErrNoRootAnchor indicates the chain's root edge does not match
	// any configured trust anchor.
	ErrNoRootAnchor = errors.New("cert: root edge does not match a trust anchor")
	// ErrLeafMismatch indicates the chain's leaf subject matches
	// neither the context's issuer key nor a caller verification key.
	ErrLeafMismatch = errors.New("cert: leaf subject is not a recognized signer")
	// ErrUntrustedAnchor indicates a supposed trust anchor is not
	// self-signed or does not verify.
	ErrUntrustedAnchor = errors.New("cert: trust anchor is not self-signed and verified")
)

// Certificate is an in-memory certificate: a delegation of signing
// authority from Issuer to Subject, witnessed by Signature.
type Certificate struct {
	Subject   []byte // 32 bytes, Ed25519 public key
	Issuer    []byte // 32 bytes, Ed25519 public key
	Signature []byte // 64 bytes, Ed25519 signature by Issuer over Subject
}

// SelfSigned creates a fresh Ed25519 keypair and returns a self-signed
// certificate over it (subject == issuer == the new public key), plus
// the private key so the caller can sign further certificates with it.
func SelfSigned(rand io.Reader) (Certificate, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return Certificate{}, nil, err
	}
	c := Certificate{Subject: pub, Issuer: pub}
	c.Signature = ed25519.Sign(priv, pub)
	return c, priv, nil
}

// SelfSignedFromKey builds a self-signed certificate over a
// caller-supplied Ed25519 secret key, whose public half becomes both
// subject and issuer.
func SelfSignedFromKey(priv ed25519.PrivateKey) Certificate {
	pub := priv.Public().(ed25519.PublicKey)
	c := Certificate{Subject: []byte(pub), Issuer: []byte(pub)}
	c.Signature = ed25519.Sign(priv, pub)
	return c
}

// Sign overwrites b's issuer with a's subject and b's signature with
// a's signature over b's subject — delegating a's authority to b's key.
// a's private key is required to produce the signature; a itself is
// otherwise only consulted for its subject (= issuer key).
func Sign(a Certificate, aPriv ed25519.PrivateKey, b Certificate) Certificate {
	out := b
	out.Issuer = append([]byte(nil), a.Subject...)
	out.Signature = ed25519.Sign(aPriv, out.Subject)
	return out
}

// Verify reports whether c's signature verifies under c.Issuer.
func (c Certificate) Verify() bool {
	if len(c.Subject) != ed25519.PublicKeySize || len(c.Issuer) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(c.Issuer), c.Subject, c.Signature)
}

// IsSelfSigned reports whether c.Subject equals c.Issuer.
func (c Certificate) IsSelfSigned() bool {
	return keyEqual(c.Subject, c.Issuer)
}

func keyEqual(a, b []byte) bool {
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

// keySet is a small membership set over raw Ed25519 public keys, used
// for trust anchors, caller verification keys and revocation checks.
type keySet [][]byte

func (s keySet) contains(key []byte) bool {
	for _, k := range s {
		if keyEqual(k, key) {
			return true
		}
	}
	return false
}
