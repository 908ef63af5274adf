package salesforce

import "strings"

// QuoteString escapes a value for use inside a single-quoted SOQL string
// literal. SOQL has no parameter binding over REST, so every interpolated
// value must pass through here.
func QuoteString(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return "'" + replacer.Replace(value) + "'"
}

// QuoteIDList renders a list of record IDs as a SOQL IN (...) argument list.
func QuoteIDList(ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, QuoteString(id))
	}
	return strings.Join(quoted, ",")
}

// SanitizeFieldName strips anything that is not legal in a Salesforce field
// or object API name. Used for caller-supplied field overrides before they
// are interpolated into a query.
func SanitizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}
