package template

import (
	"testing"
)

func sampleDescriptor() []float32 {
	v := make([]float32, Dimensions)
	for i := range v {
		v[i] = float32(i) * 0.01
	}
	return v
}

func TestEncodeFullSize(t *testing.T) {
	enc, err := EncodeFull(sampleDescriptor())
	if err != nil {
		t.Fatalf("EncodeFull: %v", err)
	}
	if len(enc) != FullSize {
		t.Fatalf("expected %d bytes, got %d", FullSize, len(enc))
	}
}

func TestEncodeHalfSize(t *testing.T) {
	enc, err := EncodeHalf(sampleDescriptor())
	if err != nil {
		t.Fatalf("EncodeHalf: %v", err)
	}
	if len(enc) != HalfSize {
		t.Fatalf("expected %d bytes, got %d", HalfSize, len(enc))
	}
}

func TestEncodeRejectsWrongDimensions(t *testing.T) {
	if _, err := EncodeFull(make([]float32, 10)); err == nil {
		t.Fatal("expected error for wrong descriptor length")
	}
	if _, err := EncodeHalf(make([]float32, 200)); err == nil {
		t.Fatal("expected error for wrong descriptor length")
	}
}

func TestDistanceZeroForIdenticalTemplates(t *testing.T) {
	d := sampleDescriptor()
	a, _ := EncodeFull(d)
	b, _ := EncodeFull(d)
	dist, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if dist != 0 {
		t.Errorf("expected 0 distance for identical templates, got %v", dist)
	}
}

func TestDistancePositiveForDifferentTemplates(t *testing.T) {
	a, _ := EncodeFull(sampleDescriptor())
	other := sampleDescriptor()
	other[0] += 10
	b, _ := EncodeFull(other)
	dist, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if dist <= 0 {
		t.Errorf("expected positive distance, got %v", dist)
	}
}

func TestDistanceRejectsMismatchedPrecision(t *testing.T) {
	full, _ := EncodeFull(sampleDescriptor())
	half, _ := EncodeHalf(sampleDescriptor())
	if _, err := Distance(full, half); err == nil {
		t.Fatal("expected error comparing templates of different precision")
	}
}

func TestDistanceRejectsInvalidLength(t *testing.T) {
	if _, err := Distance([]byte{1, 2, 3}, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for invalid template length")
	}
}
