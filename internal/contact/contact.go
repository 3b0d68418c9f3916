// Package contact reads the recipient list and canonicalizes phone numbers.
package contact

// Contact is one row of the contact source.
type Contact struct {
	Name      string
	RawNumber string
}

// Recipient is a Contact whose number has been normalized.
type Recipient struct {
	Name       string
	DialNumber string
}

// Normalizer canonicalizes raw numbers into a dialable digit string.
type Normalizer struct {
	// CountryCode is prepended to numbers with exactly 10 digits.
	CountryCode string
}

// Normalize strips every non-digit. If exactly 10 digits remain the country
// code is prepended; any other length passes through unchanged. Malformed
// input is not rejected here: an empty or short result fails later at send.
func (n Normalizer) Normalize(raw string) string {
	digits := make([]byte, 0, len(raw)+len(n.CountryCode))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 10 {
		return n.CountryCode + string(digits)
	}
	return string(digits)
}

// Recipients normalizes a batch, preserving source order.
func (n Normalizer) Recipients(in []Contact) []Recipient {
	out := make([]Recipient, 0, len(in))
	for _, c := range in {
		out = append(out, Recipient{Name: c.Name, DialNumber: n.Normalize(c.RawNumber)})
	}
	return out
}
