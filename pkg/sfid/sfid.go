// Package sfid parses the heterogeneous encodings Salesforce uses for
// relationship field values. Depending on org configuration and field type a
// student reference may arrive as a bare 15/18-character record ID, as an
// HTML anchor wrapping the ID and display text, or as a plain name.
package sfid

import "regexp"

// ContactKeyPrefix is the 3-character key prefix of Contact record IDs.
const ContactKeyPrefix = "003"

// Identity is the normalized form of a relationship field value. Either field
// may be empty; both empty means the raw value was unparseable.
type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

var (
	// 15 core characters plus an optional 3-character case-safety suffix.
	contactIDRe = regexp.MustCompile(`^003[0-9A-Za-z]{12}(?:[0-9A-Za-z]{3})?$`)

	// Anchor markup embedding a contact ID in the href and the display name as
	// inner text. Attribute order and extra attributes vary between orgs.
	anchorRe = regexp.MustCompile(`(?i)<a[^>]*href=["']/(003[0-9A-Za-z]{12}(?:[0-9A-Za-z]{3})?)["'][^>]*>([^<]+)</a>`)
)

// ParseReference normalizes a raw relationship field value. It is total: any
// input yields an Identity, never an error or panic.
func ParseReference(raw any) Identity {
	s, ok := raw.(string)
	if !ok {
		return Identity{}
	}

	if m := anchorRe.FindStringSubmatch(s); m != nil {
		return Identity{ID: m[1], DisplayName: m[2]}
	}

	if contactIDRe.MatchString(s) {
		return Identity{ID: s}
	}

	// Unrecognized shapes are treated as a display name with no ID.
	return Identity{DisplayName: s}
}

// IsContactID reports whether s is a bare contact record ID.
func IsContactID(s string) bool {
	return contactIDRe.MatchString(s)
}

// TruncateToCore15 returns the case-sensitive 15-character core of a record
// ID, discarding the case-safety suffix of the 18-character form. Identifiers
// from different fields must be compared on this core because either variant
// may have been supplied. Idempotent.
func TruncateToCore15(id string) string {
	if len(id) > 15 {
		return id[:15]
	}
	return id
}
