package card

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/Effeo/idpass-lite/pkg/cert"
	"github.com/Effeo/idpass-lite/pkg/record"
)

// buildChain produces a two-link chain rootCA -> a -> b, where b's
// subject becomes the context's issuer keypair. It returns the chain,
// the root certificate (as a trust anchor), and the issuer keypair.
func buildChain(t *testing.T) (chain []cert.Certificate, root cert.Certificate, issuerPub ed25519.PublicKey, issuerPriv ed25519.PrivateKey, aPub ed25519.PublicKey) {
	t.Helper()
	root, rootPriv, err := cert.SelfSigned(rand.Reader)
	if err != nil {
		t.Fatalf("SelfSigned: %v", err)
	}
	aPub, aPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	a := cert.Sign(root, rootPriv, cert.Certificate{Subject: aPub})

	issuerPub, issuerPriv, err = ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b := cert.Sign(a, aPriv, cert.Certificate{Subject: issuerPub})

	return []cert.Certificate{a, b}, root, issuerPub, issuerPriv, aPub
}

func wireChain(chain []cert.Certificate) record.CertificateList {
	list := record.CertificateList{Certificates: make([]record.WireCertificate, len(chain))}
	for i, c := range chain {
		list.Certificates[i] = record.WireCertificate{SubjectPublicKey: c.Subject, IssuerPublicKey: c.Issuer, Signature: c.Signature}
	}
	return list
}

func newChainContext(t *testing.T, issuerPub ed25519.PublicKey, issuerPriv ed25519.PrivateKey, root cert.Certificate) *Context {
	t.Helper()
	init := record.ContextInit{
		SymmetricKey:     make([]byte, SymmetricKeySize),
		IssuerPrivateKey: issuerPriv,
		TrustedKeys:      [][]byte{issuerPub},
	}
	rand.Read(init.SymmetricKey)
	initBytes, err := init.Encode()
	if err != nil {
		t.Fatalf("Encode init: %v", err)
	}
	roots := record.CertificateList{Certificates: []record.WireCertificate{
		{SubjectPublicKey: root.Subject, IssuerPublicKey: root.Issuer, Signature: root.Signature},
	}}
	rootBytes, err := roots.Encode()
	if err != nil {
		t.Fatalf("Encode roots: %v", err)
	}
	c, err := NewContext(Config{Init: initBytes, RootCertificates: rootBytes})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return c
}

func TestAddCertificatesAndIssueWithChain(t *testing.T) {
	chain, root, issuerPub, issuerPriv, _ := buildChain(t)
	c := newChainContext(t, issuerPub, issuerPriv, root)

	chainBytes, err := wireChain(chain).Encode()
	if err != nil {
		t.Fatalf("Encode chain: %v", err)
	}
	if err := c.AddCertificates(chainBytes); err != nil {
		t.Fatalf("AddCertificates: %v", err)
	}
	if got := c.VerifyCertificateCount(); got != 2 {
		t.Fatalf("expected 2 certificates in the pool, got %d", got)
	}

	containerBytes, err := c.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.VerifyWithPIN(containerBytes, "1234"); err != nil {
		t.Fatalf("VerifyWithPIN: %v", err)
	}
}

func TestRevokingIntermediateBreaksFutureAddAndVerification(t *testing.T) {
	chain, root, issuerPub, issuerPriv, aPub := buildChain(t)
	c := newChainContext(t, issuerPub, issuerPriv, root)

	chainBytes, err := wireChain(chain).Encode()
	if err != nil {
		t.Fatalf("Encode chain: %v", err)
	}
	if err := c.AddCertificates(chainBytes); err != nil {
		t.Fatalf("AddCertificates: %v", err)
	}

	containerBytes, err := c.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.VerifyWithPIN(containerBytes, "1234"); err != nil {
		t.Fatalf("expected verification to succeed before revocation: %v", err)
	}

	c.Revoke(aPub)

	if _, err := c.VerifyWithPIN(containerBytes, "1234"); err != ErrAuthFailure {
		t.Fatalf("expected ErrAuthFailure after revoking an intermediate, got %v", err)
	}

	// A fresh chain reusing the now-revoked intermediate must also be rejected.
	if err := c.AddCertificates(chainBytes); err == nil {
		t.Fatal("expected AddCertificates to fail once an intermediate is revoked")
	}
}

func TestAddCertificatesFailsWithoutRootAnchors(t *testing.T) {
	chain, _, issuerPub, issuerPriv, _ := buildChain(t)

	init := record.ContextInit{
		SymmetricKey:     make([]byte, SymmetricKeySize),
		IssuerPrivateKey: issuerPriv,
		TrustedKeys:      [][]byte{issuerPub},
	}
	rand.Read(init.SymmetricKey)
	initBytes, err := init.Encode()
	if err != nil {
		t.Fatalf("Encode init: %v", err)
	}
	c, err := NewContext(Config{Init: initBytes})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	chainBytes, err := wireChain(chain).Encode()
	if err != nil {
		t.Fatalf("Encode chain: %v", err)
	}
	if err := c.AddCertificates(chainBytes); err == nil {
		t.Fatal("expected AddCertificates to fail with no configured root anchors")
	}

	// Issuance without any chain still succeeds: the card is trusted
	// directly via the context's own issuer key.
	if _, err := c.Issue(testIdentity(), nil); err != nil {
		t.Fatalf("expected issuance with zero attached certificates to succeed: %v", err)
	}
}

// TestVerifyRejectsForgedSignerWithReplayedChain guards the binding
// between a container's declared signer key and the chain's leaf
// subject. Replaying a legitimately-validated chain alongside a card
// forged and signed under a different key must not verify, even though
// the chain itself (on its own) still validates.
func TestVerifyRejectsForgedSignerWithReplayedChain(t *testing.T) {
	chain, root, issuerPub, issuerPriv, _ := buildChain(t)
	c := newChainContext(t, issuerPub, issuerPriv, root)

	chainBytes, err := wireChain(chain).Encode()
	if err != nil {
		t.Fatalf("Encode chain: %v", err)
	}
	if err := c.AddCertificates(chainBytes); err != nil {
		t.Fatalf("AddCertificates: %v", err)
	}

	containerBytes, err := c.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ctr, err := record.DecodeContainer(containerBytes)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}

	// Forge a replacement inner card and public region, signed under an
	// attacker-controlled key instead of the context's issuer key, but
	// keep the legitimately-issued chain attached unchanged.
	forgedPub, forgedPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	forgedCardPub, forgedCardPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	forgedInner := record.InnerCard{
		Details:        testIdentity().Details,
		Secrets:        record.AccessSecrets{PIN: "0000"},
		CardPublicKey:  forgedCardPub,
		CardPrivateKey: forgedCardPriv,
	}
	forgedInnerBytes, err := forgedInner.Encode()
	if err != nil {
		t.Fatalf("Encode forged inner: %v", err)
	}
	forgedSignedInner := record.SignedInnerCard{
		Inner:           forgedInner,
		Signature:       ed25519.Sign(forgedPriv, forgedInnerBytes),
		IssuerPublicKey: forgedPub,
	}
	forgedSignedInnerBytes, err := forgedSignedInner.Encode()
	if err != nil {
		t.Fatalf("Encode forged signed inner: %v", err)
	}
	forgedEncrypted, err := c.seal(forgedSignedInnerBytes)
	if err != nil {
		t.Fatalf("seal forged inner: %v", err)
	}

	forgedPublic := record.PublicSignedRegion{Details: testIdentity().Details, IssuerPublicKey: forgedPub}
	forgedDetailsBytes, err := forgedPublic.EncodeDetailsOnly()
	if err != nil {
		t.Fatalf("EncodeDetailsOnly: %v", err)
	}
	forgedPublic.Signature = ed25519.Sign(forgedPriv, forgedDetailsBytes)

	forged := record.Container{
		Public:           forgedPublic,
		EncryptedPrivate: forgedEncrypted,
		Certificates:     ctr.Certificates, // the replayed, legitimately-validated chain
	}
	forgedBytes, err := forged.Encode()
	if err != nil {
		t.Fatalf("Encode forged container: %v", err)
	}

	if _, err := c.VerifyWithPIN(forgedBytes, "0000"); err != ErrAuthFailure {
		t.Fatalf("expected ErrAuthFailure for a forged signer with a replayed chain, got %v", err)
	}
}

func TestAddCertificatesRejectsCycle(t *testing.T) {
	root, rootPriv, err := cert.SelfSigned(rand.Reader)
	if err != nil {
		t.Fatalf("SelfSigned: %v", err)
	}
	aPub, aPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	a := cert.Sign(root, rootPriv, cert.Certificate{Subject: aPub})

	bPub, bPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b := cert.Sign(a, aPriv, cert.Certificate{Subject: bPub})

	// cyc repeats a's subject key, validly signed by b: this closes a
	// cycle a -> b -> a even though every individual signature verifies.
	cyc := cert.Sign(b, bPriv, cert.Certificate{Subject: append([]byte(nil), aPub...)})

	issuerPub, issuerPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c := newChainContext(t, issuerPub, issuerPriv, root)

	chainBytes, err := wireChain([]cert.Certificate{a, b, cyc}).Encode()
	if err != nil {
		t.Fatalf("Encode chain: %v", err)
	}
	if err := c.AddCertificates(chainBytes); err == nil {
		t.Fatal("expected AddCertificates to reject a cyclic chain")
	}
}
