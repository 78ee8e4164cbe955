package card

import (
	"crypto/ed25519"
	"io"

	"golang.org/x/crypto/nacl/box"
)

// SignWithCard produces a detached Ed25519 signature over payload using
// the per-card private key embedded in container. It requires the
// container to pass every check openContainer runs (chain, public
// signature, decryption, inner signature) before the card's own key is
// trusted to sign anything.
func (c *Context) SignWithCard(containerBytes, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(vc.cardKey, payload), nil
}

// VerifyWithCard verifies a signature produced by SignWithCard against
// the per-card public key embedded in container, after running the same
// full container validation.
func (c *Context) VerifyWithCard(containerBytes, payload, signature []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(vc.cardPub, payload, signature), nil
}

// EncryptWithCard encrypts payload under the card's own X25519 key
// (derived from its Ed25519 keypair), sealed to itself, returning
// nonce||ciphertext.
func (c *Context) EncryptWithCard(containerBytes, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	xPub, xPriv, err := ed25519ToX25519(vc.cardPub, vc.cardKey)
	if err != nil {
		return nil, err
	}

	var nonce [24]byte
	if _, err := io.ReadFull(c.rng, nonce[:]); err != nil {
		return nil, err
	}
	sealed := box.Seal(nonce[:], payload, &nonce, &xPub, &xPriv)
	return sealed, nil
}

// DecryptWithCard reverses EncryptWithCard.
func (c *Context) DecryptWithCard(containerBytes, sealed []byte) (*Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vc, err := c.openContainer(containerBytes)
	if err != nil {
		return nil, err
	}
	xPub, xPriv, err := ed25519ToX25519(vc.cardPub, vc.cardKey)
	if err != nil {
		return nil, err
	}

	if len(sealed) < 24 {
		return nil, ErrAuthFailure
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := box.Open(nil, sealed[24:], &nonce, &xPub, &xPriv)
	if !ok {
		return nil, ErrAuthFailure
	}
	return c.newBuffer(plaintext), nil
}
