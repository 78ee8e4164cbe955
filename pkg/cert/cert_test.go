package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func TestSelfSignedVerifies(t *testing.T) {
	c, _, err := SelfSigned(rand.Reader)
	if err != nil {
		t.Fatalf("SelfSigned: %v", err)
	}
	if !c.IsSelfSigned() {
		t.Fatal("expected self-signed certificate")
	}
	if !c.Verify() {
		t.Fatal("expected self-signed certificate to verify")
	}
}

func TestSelfSignedFromKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c := SelfSignedFromKey(priv)
	if !keyEqual(c.Subject, pub) || !keyEqual(c.Issuer, pub) {
		t.Fatal("expected subject and issuer to equal the supplied key's public half")
	}
	if !c.Verify() {
		t.Fatal("expected certificate to verify")
	}
}

func TestSignOverwritesIssuerAndSignature(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)
	leafSelf, leafPriv, _ := SelfSigned(rand.Reader)

	leaf := Sign(root, rootPriv, leafSelf)
	if !keyEqual(leaf.Issuer, root.Subject) {
		t.Fatal("expected leaf issuer to be overwritten with root subject")
	}
	if !leaf.Verify() {
		t.Fatal("expected delegated signature to verify under root's key")
	}
	_ = leafPriv
}

func chainOf3(t *testing.T) (root Certificate, rootPriv ed25519.PrivateKey, chain []Certificate, leafPriv ed25519.PrivateKey) {
	t.Helper()
	root, rootPriv, err := SelfSigned(rand.Reader)
	if err != nil {
		t.Fatalf("SelfSigned root: %v", err)
	}

	aSelf, aPriv, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)

	bSelf, bPriv, _ := SelfSigned(rand.Reader)
	b := Sign(a, aPriv, bSelf)
	_ = bPriv

	return root, rootPriv, []Certificate{a, b}, bPriv
}

func TestValidateChainAccepts(t *testing.T) {
	root, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)

	err := ValidateChain(chain, []Certificate{root}, nil, nil, []byte(leafPub))
	if err != nil {
		t.Fatalf("expected chain to validate, got %v", err)
	}
}

func TestValidateChainRejectsBadSignature(t *testing.T) {
	root, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)

	tampered := append([]Certificate(nil), chain...)
	tampered[0].Signature = append([]byte(nil), tampered[0].Signature...)
	tampered[0].Signature[0] ^= 0xFF

	err := ValidateChain(tampered, []Certificate{root}, nil, nil, []byte(leafPub))
	if err != ErrBadSignature {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestValidateChainRejectsRevokedKey(t *testing.T) {
	root, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)

	err := ValidateChain(chain, []Certificate{root}, [][]byte{chain[0].Subject}, nil, []byte(leafPub))
	if err != ErrRevoked {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestValidateChainRejectsForwardReference(t *testing.T) {
	root, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)

	swapped := []Certificate{chain[1], chain[0]}
	err := ValidateChain(swapped, []Certificate{root}, nil, nil, []byte(leafPub))
	if err == nil {
		t.Fatal("expected an error for out-of-order chain")
	}
}

func TestValidateChainRejectsMissingRootAnchor(t *testing.T) {
	_, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)

	otherRoot, _, _ := SelfSigned(rand.Reader)
	err := ValidateChain(chain, []Certificate{otherRoot}, nil, nil, []byte(leafPub))
	if err != ErrNoRootAnchor {
		t.Fatalf("expected ErrNoRootAnchor, got %v", err)
	}
}

func TestValidateChainRejectsLeafMismatch(t *testing.T) {
	root, _, chain, _ := chainOf3(t)
	otherPub, _, _ := ed25519.GenerateKey(rand.Reader)

	err := ValidateChain(chain, []Certificate{root}, nil, nil, otherPub)
	if err != ErrLeafMismatch {
		t.Fatalf("expected ErrLeafMismatch, got %v", err)
	}
}

func TestValidateChainAcceptsLeafViaCallerKeys(t *testing.T) {
	root, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)
	otherIssuerPub, _, _ := ed25519.GenerateKey(rand.Reader)

	err := ValidateChain(chain, []Certificate{root}, nil, [][]byte{[]byte(leafPub)}, otherIssuerPub)
	if err != nil {
		t.Fatalf("expected chain to validate via caller key, got %v", err)
	}
}

func TestValidateChainDetectsCycle(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)

	aSelf, aPriv, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)

	bSelf, bPriv, _ := SelfSigned(rand.Reader)
	b := Sign(a, aPriv, bSelf)

	// Re-sign a under b, forming a cycle root->a->b->a.
	aCycled := Sign(b, bPriv, a)

	cycle := []Certificate{a, b, aCycled}
	err := ValidateChain(cycle, []Certificate{root}, nil, nil, a.Subject)
	if err == nil {
		t.Fatal("expected an error for a cyclic chain")
	}
}

func TestValidateChainEmptyIsValid(t *testing.T) {
	root, _, _ := SelfSigned(rand.Reader)
	if err := ValidateChain(nil, []Certificate{root}, nil, nil, root.Subject); err != nil {
		t.Fatalf("expected empty chain to be accepted at the chain-validation layer, got %v", err)
	}
}

func TestValidateChainRejectsUntrustedAnchor(t *testing.T) {
	root, _, chain, leafPriv := chainOf3(t)
	leafPub := leafPriv.Public().(ed25519.PublicKey)

	badAnchor := root
	badAnchor.Signature = append([]byte(nil), badAnchor.Signature...)
	badAnchor.Signature[0] ^= 0xFF

	err := ValidateChain(chain, []Certificate{badAnchor}, nil, nil, []byte(leafPub))
	if err != ErrUntrustedAnchor {
		t.Fatalf("expected ErrUntrustedAnchor, got %v", err)
	}
}
