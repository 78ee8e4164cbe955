package card

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/Effeo/idpass-lite/pkg/record"
)

func newTestInit(t *testing.T) (record.ContextInit, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return record.ContextInit{
		SymmetricKey:     key,
		IssuerPrivateKey: priv,
		TrustedKeys:      [][]byte{pub},
	}, priv
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	init, _ := newTestInit(t)
	b, err := init.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	c, err := NewContext(Config{Init: b})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return c
}

func TestNewContextRequiresIssuerKeyInTrustedSet(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherPub, _, _ := ed25519.GenerateKey(rand.Reader)

	init := record.ContextInit{
		SymmetricKey:     make([]byte, SymmetricKeySize),
		IssuerPrivateKey: priv,
		TrustedKeys:      [][]byte{otherPub},
	}
	b, err := init.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := NewContext(Config{Init: b}); err != ErrIssuerKeyNotTrusted {
		t.Fatalf("expected ErrIssuerKeyNotTrusted, got %v", err)
	}
}

func TestNewContextRejectsEmptyTrustedSet(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	init := record.ContextInit{
		SymmetricKey:     make([]byte, SymmetricKeySize),
		IssuerPrivateKey: priv,
	}
	b, _ := init.Encode()
	if _, err := NewContext(Config{Init: b}); err != ErrNoTrustedKeys {
		t.Fatalf("expected ErrNoTrustedKeys, got %v", err)
	}
}

func TestNewContextRejectsWrongSymmetricKeySize(t *testing.T) {
	init, _ := newTestInit(t)
	init.SymmetricKey = init.SymmetricKey[:16]
	b, _ := init.Encode()
	if _, err := NewContext(Config{Init: b}); err != ErrInvalidSymmetricKey {
		t.Fatalf("expected ErrInvalidSymmetricKey, got %v", err)
	}
}

func TestFreeUnknownBufferIsNoop(t *testing.T) {
	c := newTestContext(t)
	c.Free(&Buffer{data: []byte("not tracked")})
	c.Free(&Buffer{data: []byte("not tracked")}) // double-free of a never-tracked handle
}

func TestFreeDestroysContextWhenPassedItself(t *testing.T) {
	c := newTestContext(t)
	c.Free(c)
	for _, b := range c.symmetricKey {
		if b != 0 {
			t.Fatal("expected symmetric key to be wiped after Free(context)")
		}
	}
}
