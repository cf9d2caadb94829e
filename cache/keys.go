package cache

import "strings"

// Entity families. Every key starts with one of these.
const (
	FamilyBooking = "booking"
	FamilyEvent   = "event"
)

// Key joins a family and its qualifiers with ":", e.g.
// Key("booking", "user", id, params) -> "booking:user:<id>:<params>".
func Key(family string, parts ...string) string {
	var b strings.Builder
	b.WriteString(family)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Prefix returns the invalidation prefix covering every key of family.
func Prefix(family string) string {
	return family + ":"
}
