package template

import (
	"strings"

	"blkmsg/internal/pacing"
)

// Selector picks a template per send and renders it for a recipient.
type Selector struct {
	paths       []string
	store       *Store
	placeholder string
	rand        pacing.Rand
}

// NewSelector selects among paths, which must be the usable set from Check.
func NewSelector(paths []string, store *Store, placeholder string, rnd pacing.Rand) *Selector {
	if rnd == nil {
		rnd = pacing.NewRand()
	}
	return &Selector{
		paths:       append([]string(nil), paths...),
		store:       store,
		placeholder: placeholder,
		rand:        rnd,
	}
}

// Paths returns the templates the selector chooses from.
func (s *Selector) Paths() []string { return append([]string(nil), s.paths...) }

// Choose returns a uniformly random template path. Consecutive calls are
// independent, so repeats are expected.
func (s *Selector) Choose() string {
	return s.paths[s.rand.IntN(len(s.paths))]
}

// Render reads path and replaces every placeholder with name.
// CRLF line endings are folded to LF.
func (s *Selector) Render(path, name string) (string, error) {
	content, err := s.store.Read(path)
	if err != nil {
		return "", err
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if s.placeholder == "" {
		return content, nil
	}
	return strings.ReplaceAll(content, s.placeholder, name), nil
}
