// Package minting generates new, collision-free runner IDs.
package minting

import (
	"strconv"
	"strings"

	"github.com/okian/racearchive/internal/domain/idset"
	"github.com/okian/racearchive/internal/domain/normalize"
)

const (
	defaultClubTokenLength = 10
	unknownPrefix          = "unknown-runner-"
	firstCounterSuffix     = 2
)

// Minter creates runner IDs from names, falling back from name to
// name+club to name+counter.
type Minter struct {
	clubTokenLength int
}

// New creates a Minter with configuration options.
func New(opts ...Option) *Minter {
	m := &Minter{clubTokenLength: defaultClubTokenLength}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mint returns a new ID for name that is not in ids, and records it in ids.
// club is optional and only used to break a collision on the name slug.
func (m *Minter) Mint(name, club string, ids idset.Set) string {
	base := normalize.Slug(name)
	if base == "" {
		for n := 1; ; n++ {
			id := unknownPrefix + strconv.Itoa(n)
			if !ids.SeenAndRecord(id) {
				return id
			}
		}
	}

	if !ids.SeenAndRecord(base) {
		return base
	}

	if tok := m.ClubToken(club); tok != "" {
		id := base + "-" + tok
		if !ids.SeenAndRecord(id) {
			return id
		}
	}

	for n := firstCounterSuffix; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if !ids.SeenAndRecord(id) {
			return id
		}
	}
}

// ClubToken returns the first word of the club slug, truncated to the
// configured length. "Omagh Harriers" yields "omagh".
func (m *Minter) ClubToken(club string) string {
	slug := normalize.Slug(club)
	if slug == "" {
		return ""
	}
	tok, _, _ := strings.Cut(slug, "-")
	if len(tok) > m.clubTokenLength {
		tok = tok[:m.clubTokenLength]
	}
	return tok
}
