package card

import "github.com/Effeo/idpass-lite/pkg/record"

// MergeDetails field-wise unions d1 and d2: fields present in d2
// override d1, and extras are unioned by key with d2 winning on
// collisions (spec.md §4.6).
func MergeDetails(d1, d2 record.CardDetails) record.CardDetails {
	out := d1

	if d2.Surname != "" {
		out.Surname = d2.Surname
	}
	if d2.GivenName != "" {
		out.GivenName = d2.GivenName
	}
	if d2.PlaceOfBirth != "" {
		out.PlaceOfBirth = d2.PlaceOfBirth
	}
	if (d2.DateOfBirth != record.DateOfBirth{}) {
		out.DateOfBirth = d2.DateOfBirth
	}
	if d2.CreatedAt != 0 {
		out.CreatedAt = d2.CreatedAt
	}
	if d2.FullName != "" {
		out.FullName = d2.FullName
	}
	if d2.UIN != "" {
		out.UIN = d2.UIN
	}
	if d2.Gender != record.GenderUnspecified {
		out.Gender = d2.Gender
	}
	if d2.PostalAddress != nil {
		out.PostalAddress = d2.PostalAddress
	}
	if len(d2.Photo) > 0 {
		out.Photo = d2.Photo
	}

	out.Extras = mergeExtras(d1.Extras, d2.Extras)
	return out
}

func mergeExtras(e1, e2 []record.KV) []record.KV {
	merged := make(map[string]record.KV, len(e1)+len(e2))
	var order []string
	for _, kv := range e1 {
		if _, seen := merged[kv.Key]; !seen {
			order = append(order, kv.Key)
		}
		merged[kv.Key] = kv
	}
	for _, kv := range e2 {
		if _, seen := merged[kv.Key]; !seen {
			order = append(order, kv.Key)
		}
		merged[kv.Key] = kv
	}
	out := make([]record.KV, len(order))
	for i, k := range order {
		out[i] = merged[k]
	}
	return out
}
