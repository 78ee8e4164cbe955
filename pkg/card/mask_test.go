package card

import (
	"testing"

	"github.com/Effeo/idpass-lite/pkg/record"
)

func sampleFullDetails() record.CardDetails {
	return record.CardDetails{
		Surname:   "Doe",
		GivenName: "Jane",
		FullName:  "Jane Doe",
		UIN:       "123",
		Photo:     []byte("jpeg bytes"),
		Extras: []record.KV{
			{Key: "pub", Value: "1", Label: record.ExtraPublic},
			{Key: "priv", Value: "2", Label: record.ExtraPrivate},
		},
	}
}

func TestPublicDetailsHonorsMask(t *testing.T) {
	full := sampleFullDetails()
	pub := publicDetails(full, MaskSurname|MaskGivenName)
	if pub.Surname != "Doe" || pub.GivenName != "Jane" {
		t.Fatalf("expected surname/given name to be copied, got %+v", pub)
	}
	if pub.FullName != "" || pub.UIN != "" || pub.Photo != nil {
		t.Fatalf("expected fields outside the mask to stay zero, got %+v", pub)
	}
}

func TestPublicDetailsOnlyIncludesPublicExtras(t *testing.T) {
	full := sampleFullDetails()
	pub := publicDetails(full, MaskAll)
	if len(pub.Extras) != 1 || pub.Extras[0].Key != "pub" {
		t.Fatalf("expected only the public-labelled extra, got %+v", pub.Extras)
	}
}

func TestPrivateDetailsKeepsEverything(t *testing.T) {
	full := sampleFullDetails()
	priv := privateDetails(full)
	if priv.FullName != full.FullName || len(priv.Extras) != len(full.Extras) {
		t.Fatalf("expected private details to retain every field, got %+v", priv)
	}
}
