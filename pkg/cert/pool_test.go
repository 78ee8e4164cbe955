package cert

import (
	"crypto/rand"
	"testing"
)

func TestPoolAddCertificatesValidChain(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)
	aSelf, aPriv, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)
	bSelf, _, _ := SelfSigned(rand.Reader)
	b := Sign(a, aPriv, bSelf)

	pool := NewPool([]Certificate{root})
	if err := pool.AddCertificates([]Certificate{a, b}, nil, nil, b.Subject); err != nil {
		t.Fatalf("AddCertificates: %v", err)
	}
	if len(pool.Intermediates()) != 2 {
		t.Fatalf("expected 2 intermediates, got %d", len(pool.Intermediates()))
	}
}

func TestPoolAddCertificatesFailsWithoutRoots(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)
	aSelf, _, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)

	pool := NewPool(nil)
	if err := pool.AddCertificates([]Certificate{a}, nil, nil, a.Subject); err == nil {
		t.Fatal("expected AddCertificates to fail when the pool has no trust anchors")
	}
}

func TestPoolAddCertificatesBuildsOnExistingIntermediates(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)
	aSelf, aPriv, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)

	pool := NewPool([]Certificate{root})
	if err := pool.AddCertificates([]Certificate{a}, nil, nil, a.Subject); err != nil {
		t.Fatalf("AddCertificates (a): %v", err)
	}

	bSelf, _, _ := SelfSigned(rand.Reader)
	b := Sign(a, aPriv, bSelf)
	if err := pool.AddCertificates([]Certificate{b}, nil, nil, b.Subject); err != nil {
		t.Fatalf("AddCertificates (b): %v", err)
	}
	if len(pool.Intermediates()) != 2 {
		t.Fatalf("expected 2 accumulated intermediates, got %d", len(pool.Intermediates()))
	}
}

func TestPoolAddCertificatesFailsWhenRevoked(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)
	aSelf, _, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)

	pool := NewPool([]Certificate{root})
	if err := pool.AddCertificates([]Certificate{a}, [][]byte{a.Subject}, nil, a.Subject); err != ErrRevoked {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
	if len(pool.Intermediates()) != 0 {
		t.Fatal("expected no intermediates added after a failed add")
	}
}

func TestPoolAddCertificatesFailsOnCycle(t *testing.T) {
	root, rootPriv, _ := SelfSigned(rand.Reader)
	aSelf, aPriv, _ := SelfSigned(rand.Reader)
	a := Sign(root, rootPriv, aSelf)
	bSelf, bPriv, _ := SelfSigned(rand.Reader)
	b := Sign(a, aPriv, bSelf)
	aCycled := Sign(b, bPriv, a)

	pool := NewPool([]Certificate{root})
	err := pool.AddCertificates([]Certificate{a, b, aCycled}, nil, nil, a.Subject)
	if err == nil {
		t.Fatal("expected AddCertificates to reject a cyclic chain")
	}
}
