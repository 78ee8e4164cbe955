package card

import "github.com/Effeo/idpass-lite/pkg/record"

// Visibility mask bits. Each bit names one CardDetails field; the
// issuer's mask selects which fields are copied into the public region
// at issuance. Unknown bits (above MaskPhoto) are accepted by the
// control channel and simply ignored, per spec.md §4.7.
const (
	MaskSurname uint64 = 1 << iota
	MaskGivenName
	MaskDateOfBirth
	MaskPlaceOfBirth
	MaskCreatedAt
	MaskFullName
	MaskUIN
	MaskGender
	MaskPostalAddress
	MaskPhoto
)

// MaskAll selects every well-known field. A freshly constructed Context
// defaults to a zero mask (everything private); callers opt into public
// fields explicitly via VisibilityMask/the SET_ACL control opcode.
const MaskAll = MaskSurname | MaskGivenName | MaskDateOfBirth | MaskPlaceOfBirth |
	MaskCreatedAt | MaskFullName | MaskUIN | MaskGender | MaskPostalAddress | MaskPhoto

// publicDetails copies from full the fields selected by mask.
func publicDetails(full record.CardDetails, mask uint64) record.CardDetails {
	var d record.CardDetails
	if mask&MaskSurname != 0 {
		d.Surname = full.Surname
	}
	if mask&MaskGivenName != 0 {
		d.GivenName = full.GivenName
	}
	if mask&MaskDateOfBirth != 0 {
		d.DateOfBirth = full.DateOfBirth
	}
	if mask&MaskPlaceOfBirth != 0 {
		d.PlaceOfBirth = full.PlaceOfBirth
	}
	if mask&MaskCreatedAt != 0 {
		d.CreatedAt = full.CreatedAt
	}
	if mask&MaskFullName != 0 {
		d.FullName = full.FullName
	}
	if mask&MaskUIN != 0 {
		d.UIN = full.UIN
	}
	if mask&MaskGender != 0 {
		d.Gender = full.Gender
	}
	if mask&MaskPostalAddress != 0 {
		d.PostalAddress = full.PostalAddress
	}
	if mask&MaskPhoto != 0 {
		d.Photo = full.Photo
	}
	for _, kv := range full.Extras {
		if kv.Label == record.ExtraPublic {
			d.Extras = append(d.Extras, kv)
		}
	}
	return d
}

// privateDetails is the full identity input, minus nothing: every field
// plus every extra (public or private) goes into the private region.
func privateDetails(full record.CardDetails) record.CardDetails {
	return full
}
