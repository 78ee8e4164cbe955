package card

import (
	"crypto/ed25519"
	"crypto/sha512"

	"filippo.io/edwards25519"
)

// ed25519ToX25519 converts an Ed25519 keypair to its birationally
// equivalent X25519 keypair, the fixed deterministic transformation
// spec.md §4.6 names for encrypt/decrypt-with-card. The public half
// uses the standard Edwards-to-Montgomery coordinate map; the private
// half is the first 32 bytes of the SHA-512 digest of the Ed25519 seed,
// the bytes crypto/ed25519 derives its internal scalar from; it is left
// unclamped here, since X25519 clamps its scalar when the key is used.
func ed25519ToX25519(pub ed25519.PublicKey, priv ed25519.PrivateKey) (xPub, xPriv [32]byte, err error) {
	pt, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return xPub, xPriv, err
	}
	copy(xPub[:], pt.BytesMontgomery())

	h := sha512.Sum512(priv.Seed())
	copy(xPriv[:], h[:32])

	return xPub, xPriv, nil
}
