package dialect

import "strings"

// IdentifierConfig defines how a backend quotes identifiers.
type IdentifierConfig struct {
	Open   string // opening quote: ", `, [
	Close  string // closing quote, ] for bracket quoting
	Escape string // how Close is escaped inside an identifier
}

// Quote renders name as a single quoted identifier.
func (c IdentifierConfig) Quote(name string) string {
	escaped := strings.ReplaceAll(name, c.Close, c.Escape)
	return c.Open + escaped + c.Close
}

// QuotePath renders a dotted path such as alias.column, quoting each part.
func (c IdentifierConfig) QuotePath(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = c.Quote(p)
	}
	return strings.Join(quoted, ".")
}
