// Package record is the wire schema for every structured message this
// module serializes: identity fields, access secrets, card envelopes,
// certificates, and the top-level container. It is an opaque codec in
// the spirit of a generated protobuf/TLV schema — callers build and read
// Go structs; the wire layout (TLV tag numbers, §below) is frozen and
// additive-only, and unknown tags are ignored on decode.
//
// Encoding is deterministic: encoding the same value twice produces
// byte-identical output. Extras maps are therefore stored internally as
// an order-preserving slice, sorted by key immediately before encoding,
// since Go map iteration order is randomized.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/Effeo/idpass-lite/pkg/tlv"
)

// ErrInvalidRecord indicates malformed or truncated TLV input.
var ErrInvalidRecord = errors.New("record: invalid or truncated input")

// Gender is a well-known optional identity field.
type Gender uint8

const (
	GenderUnspecified Gender = 0
	GenderMale        Gender = 1
	GenderFemale      Gender = 2
	GenderOther       Gender = 3
)

// ExtraLabel marks a KV entry as belonging in the public or private
// region at issuance (spec.md §4.6). It has no meaning once a KV is
// already inside a built public or private CardDetails.
type ExtraLabel uint8

const (
	ExtraPrivate ExtraLabel = 0
	ExtraPublic  ExtraLabel = 1
)

// KV is one extras entry. Extras are caller-supplied key/value pairs
// labelled public or private at issuance (spec.md §3); once attached to a
// CardDetails they are just an ordered list of pairs.
type KV struct {
	Key   string
	Value string
	Label ExtraLabel
}

// PostalAddress is the structured postal address field the original
// idpass-lite Ident message carried and the distilled spec only names in
// passing (SPEC_FULL.md §5).
type PostalAddress struct {
	AddressLine string
	City        string
	PostalCode  string
	Country     string
}

func (a *PostalAddress) isEmpty() bool {
	return a == nil || (a.AddressLine == "" && a.City == "" && a.PostalCode == "" && a.Country == "")
}

// DateOfBirth is a calendar date with no timezone meaning.
type DateOfBirth struct {
	Year  int
	Month int
	Day   int
}

// CardDetails is the biographic-fields-plus-extras record. It serves as
// both the private details (always the full set) and the public details
// (only the fields selected by the issuer's visibility mask) variants
// named in spec.md §3 — the two are the same Go type populated
// differently, never two distinct schemas.
type CardDetails struct {
	Surname       string
	GivenName     string
	PlaceOfBirth  string
	DateOfBirth   DateOfBirth
	CreatedAt     int64 // unix seconds
	FullName      string
	UIN           string
	Gender        Gender
	PostalAddress *PostalAddress
	Photo         []byte
	Extras        []KV
}

// AccessSecrets holds the PIN and face template. It never leaves the
// private (encrypted) region.
type AccessSecrets struct {
	PIN      string
	Template []byte
}

// InnerCard is the private details plus access secrets plus the fresh
// per-card signing keypair (spec.md §3).
type InnerCard struct {
	Details       CardDetails
	Secrets       AccessSecrets
	CardPublicKey  []byte // 32 bytes, Ed25519
	CardPrivateKey []byte // 64 bytes, Ed25519 (seed||public)
}

// SignedInnerCard is an InnerCard plus the issuer's detached signature
// over its serialized form, plus the issuer's public key.
type SignedInnerCard struct {
	Inner           InnerCard
	Signature       []byte // 64 bytes, Ed25519
	IssuerPublicKey []byte // 32 bytes
}

// PublicSignedRegion is the public CardDetails plus the issuer's detached
// signature over its serialized form, plus the issuer's public key.
type PublicSignedRegion struct {
	Details         CardDetails
	Signature       []byte
	IssuerPublicKey []byte
}

// WireCertificate is the serialized form of a pkg/cert.Certificate.
type WireCertificate struct {
	SubjectPublicKey []byte // 32 bytes
	IssuerPublicKey  []byte // 32 bytes
	Signature        []byte // 64 bytes
}

// Container is the top-level serialized artifact carried in the QR code:
// the public signed region, the nonce-prefixed encrypted signed inner
// card, and the ordered attached certificate chain (empty when the card
// is trusted directly).
type Container struct {
	Public            PublicSignedRegion
	EncryptedPrivate  []byte // nonce (12 bytes) || AEAD ciphertext
	Certificates      []WireCertificate
}

func sortedExtras(extras []KV) []KV {
	out := make([]KV, len(extras))
	copy(out, extras)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// --- CardDetails ---

const (
	tagDetailsSurname      = 1
	tagDetailsGivenName    = 2
	tagDetailsPlaceOfBirth = 3
	tagDetailsDOBYear      = 4
	tagDetailsDOBMonth     = 5
	tagDetailsDOBDay       = 6
	tagDetailsCreatedAt    = 7
	tagDetailsFullName     = 8
	tagDetailsUIN          = 9
	tagDetailsGender       = 10
	tagDetailsPostal       = 11
	tagDetailsPhoto        = 12
	tagDetailsExtras       = 13

	tagPostalLine   = 1
	tagPostalCity   = 2
	tagPostalPostal = 3
	tagPostalCountry = 4

	tagKVKey   = 1
	tagKVValue = 2
	tagKVLabel = 3
)

func writeCardDetails(w *tlv.Writer, tag tlv.Tag, d *CardDetails) error {
	if err := w.StartStructure(tag); err != nil {
		return err
	}
	if d.Surname != "" {
		if err := w.PutString(tlv.ContextTag(tagDetailsSurname), d.Surname); err != nil {
			return err
		}
	}
	if d.GivenName != "" {
		if err := w.PutString(tlv.ContextTag(tagDetailsGivenName), d.GivenName); err != nil {
			return err
		}
	}
	if d.PlaceOfBirth != "" {
		if err := w.PutString(tlv.ContextTag(tagDetailsPlaceOfBirth), d.PlaceOfBirth); err != nil {
			return err
		}
	}
	if d.DateOfBirth.Year != 0 {
		if err := w.PutInt(tlv.ContextTag(tagDetailsDOBYear), int64(d.DateOfBirth.Year)); err != nil {
			return err
		}
	}
	if d.DateOfBirth.Month != 0 {
		if err := w.PutInt(tlv.ContextTag(tagDetailsDOBMonth), int64(d.DateOfBirth.Month)); err != nil {
			return err
		}
	}
	if d.DateOfBirth.Day != 0 {
		if err := w.PutInt(tlv.ContextTag(tagDetailsDOBDay), int64(d.DateOfBirth.Day)); err != nil {
			return err
		}
	}
	if d.CreatedAt != 0 {
		if err := w.PutInt(tlv.ContextTag(tagDetailsCreatedAt), d.CreatedAt); err != nil {
			return err
		}
	}
	if d.FullName != "" {
		if err := w.PutString(tlv.ContextTag(tagDetailsFullName), d.FullName); err != nil {
			return err
		}
	}
	if d.UIN != "" {
		if err := w.PutString(tlv.ContextTag(tagDetailsUIN), d.UIN); err != nil {
			return err
		}
	}
	if d.Gender != GenderUnspecified {
		if err := w.PutInt(tlv.ContextTag(tagDetailsGender), int64(d.Gender)); err != nil {
			return err
		}
	}
	if !d.PostalAddress.isEmpty() {
		if err := w.StartStructure(tlv.ContextTag(tagDetailsPostal)); err != nil {
			return err
		}
		a := d.PostalAddress
		if a.AddressLine != "" {
			if err := w.PutString(tlv.ContextTag(tagPostalLine), a.AddressLine); err != nil {
				return err
			}
		}
		if a.City != "" {
			if err := w.PutString(tlv.ContextTag(tagPostalCity), a.City); err != nil {
				return err
			}
		}
		if a.PostalCode != "" {
			if err := w.PutString(tlv.ContextTag(tagPostalPostal), a.PostalCode); err != nil {
				return err
			}
		}
		if a.Country != "" {
			if err := w.PutString(tlv.ContextTag(tagPostalCountry), a.Country); err != nil {
				return err
			}
		}
		if err := w.EndContainer(); err != nil {
			return err
		}
	}
	if len(d.Photo) > 0 {
		if err := w.PutBytes(tlv.ContextTag(tagDetailsPhoto), d.Photo); err != nil {
			return err
		}
	}
	if len(d.Extras) > 0 {
		if err := w.StartArray(tlv.ContextTag(tagDetailsExtras)); err != nil {
			return err
		}
		for _, kv := range sortedExtras(d.Extras) {
			if err := w.StartStructure(tlv.Anonymous()); err != nil {
				return err
			}
			if err := w.PutString(tlv.ContextTag(tagKVKey), kv.Key); err != nil {
				return err
			}
			if err := w.PutString(tlv.ContextTag(tagKVValue), kv.Value); err != nil {
				return err
			}
			if kv.Label != ExtraPrivate {
				if err := w.PutInt(tlv.ContextTag(tagKVLabel), int64(kv.Label)); err != nil {
					return err
				}
			}
			if err := w.EndContainer(); err != nil {
				return err
			}
		}
		if err := w.EndContainer(); err != nil {
			return err
		}
	}
	return w.EndContainer()
}

func readCardDetails(r *tlv.Reader) (CardDetails, error) {
	var d CardDetails
	if err := r.EnterContainer(); err != nil {
		return d, fmt.Errorf("record: card details: %w", err)
	}
	for {
		if err := r.Next(); err != nil {
			return d, fmt.Errorf("record: card details: %w", err)
		}
		if r.IsEndOfContainer() {
			break
		}
		tag := r.Tag()
		switch tag.TagNumber() {
		case tagDetailsSurname:
			v, err := r.String()
			if err != nil {
				return d, err
			}
			d.Surname = v
		case tagDetailsGivenName:
			v, err := r.String()
			if err != nil {
				return d, err
			}
			d.GivenName = v
		case tagDetailsPlaceOfBirth:
			v, err := r.String()
			if err != nil {
				return d, err
			}
			d.PlaceOfBirth = v
		case tagDetailsDOBYear:
			v, err := r.Int()
			if err != nil {
				return d, err
			}
			d.DateOfBirth.Year = int(v)
		case tagDetailsDOBMonth:
			v, err := r.Int()
			if err != nil {
				return d, err
			}
			d.DateOfBirth.Month = int(v)
		case tagDetailsDOBDay:
			v, err := r.Int()
			if err != nil {
				return d, err
			}
			d.DateOfBirth.Day = int(v)
		case tagDetailsCreatedAt:
			v, err := r.Int()
			if err != nil {
				return d, err
			}
			d.CreatedAt = v
		case tagDetailsFullName:
			v, err := r.String()
			if err != nil {
				return d, err
			}
			d.FullName = v
		case tagDetailsUIN:
			v, err := r.String()
			if err != nil {
				return d, err
			}
			d.UIN = v
		case tagDetailsGender:
			v, err := r.Int()
			if err != nil {
				return d, err
			}
			d.Gender = Gender(v)
		case tagDetailsPostal:
			a, err := readPostalAddress(r)
			if err != nil {
				return d, err
			}
			d.PostalAddress = a
		case tagDetailsPhoto:
			v, err := r.Bytes()
			if err != nil {
				return d, err
			}
			d.Photo = v
		case tagDetailsExtras:
			extras, err := readExtras(r)
			if err != nil {
				return d, err
			}
			d.Extras = extras
		default:
			if err := r.Skip(); err != nil {
				return d, err
			}
		}
	}
	if err := r.ExitContainer(); err != nil {
		return d, err
	}
	return d, nil
}

func readPostalAddress(r *tlv.Reader) (*PostalAddress, error) {
	a := &PostalAddress{}
	if err := r.EnterContainer(); err != nil {
		return nil, err
	}
	for {
		if err := r.Next(); err != nil {
			return nil, err
		}
		if r.IsEndOfContainer() {
			break
		}
		switch r.Tag().TagNumber() {
		case tagPostalLine:
			v, err := r.String()
			if err != nil {
				return nil, err
			}
			a.AddressLine = v
		case tagPostalCity:
			v, err := r.String()
			if err != nil {
				return nil, err
			}
			a.City = v
		case tagPostalPostal:
			v, err := r.String()
			if err != nil {
				return nil, err
			}
			a.PostalCode = v
		case tagPostalCountry:
			v, err := r.String()
			if err != nil {
				return nil, err
			}
			a.Country = v
		default:
			if err := r.Skip(); err != nil {
				return nil, err
			}
		}
	}
	if err := r.ExitContainer(); err != nil {
		return nil, err
	}
	return a, nil
}

func readExtras(r *tlv.Reader) ([]KV, error) {
	var out []KV
	if err := r.EnterContainer(); err != nil {
		return nil, err
	}
	for {
		if err := r.Next(); err != nil {
			return nil, err
		}
		if r.IsEndOfContainer() {
			break
		}
		if err := r.EnterContainer(); err != nil {
			return nil, err
		}
		var kv KV
		for {
			if err := r.Next(); err != nil {
				return nil, err
			}
			if r.IsEndOfContainer() {
				break
			}
			switch r.Tag().TagNumber() {
			case tagKVKey:
				v, err := r.String()
				if err != nil {
					return nil, err
				}
				kv.Key = v
			case tagKVValue:
				v, err := r.String()
				if err != nil {
					return nil, err
				}
				kv.Value = v
			case tagKVLabel:
				v, err := r.Int()
				if err != nil {
					return nil, err
				}
				kv.Label = ExtraLabel(v)
			default:
				if err := r.Skip(); err != nil {
					return nil, err
				}
			}
		}
		if err := r.ExitContainer(); err != nil {
			return nil, err
		}
		out = append(out, kv)
	}
	if err := r.ExitContainer(); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode serializes d deterministically.
func (d *CardDetails) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := tlv.NewWriter(&buf)
	if err := writeCardDetails(w, tlv.Anonymous(), d); err != nil {
		return nil, fmt.Errorf("record: encode card details: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCardDetails parses the output of CardDetails.Encode.
func DecodeCardDetails(b []byte) (CardDetails, error) {
	r := tlv.NewReader(bytes.NewReader(b))
	if err := r.Next(); err != nil {
		return CardDetails{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	d, err := readCardDetails(r)
	if err != nil {
		return CardDetails{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return d, nil
}
