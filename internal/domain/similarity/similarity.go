// Package similarity scores how alike two runner names are and decides
// whether a score may be trusted for matching.
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/domain/normalize"
)

const (
	defaultFirstNameLength = 3
	defaultMaxTimeVariance = 0.40
)

// Similarity returns 1 - levenshtein(a', b') / max(len(a'), len(b')) over
// the normalized keys a' and b'. Identical keys score 1; an empty key
// against a non-empty one scores 0.
func Similarity(a, b string) float64 {
	return KeySimilarity(normalize.Key(a), normalize.Key(b))
}

// KeySimilarity is Similarity over keys that are already normalized.
func KeySimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	maxLen := max(la, lb)
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(maxLen)
}

// Profile is the pre-computed comparison view of one name.
type Profile struct {
	Name   string
	Key    string
	First  string
	Gender model.Gender
}

// NewProfile builds a Profile for name and gender.
func NewProfile(name string, gender model.Gender) Profile {
	return Profile{
		Name:   name,
		Key:    normalize.Key(name),
		First:  normalize.FirstToken(name),
		Gender: gender,
	}
}

// Scorer applies the gates that must pass before a similarity is trusted.
type Scorer struct {
	firstNameLength int
	maxTimeVariance float64
}

// New creates a Scorer with configuration options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		firstNameLength: defaultFirstNameLength,
		maxTimeVariance: defaultMaxTimeVariance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FirstNameLength returns the prefix length used by the first-name gate.
func (s *Scorer) FirstNameLength() int { return s.firstNameLength }

// MaxTimeVariance returns the relative time difference above which a match is rejected.
func (s *Scorer) MaxTimeVariance() float64 { return s.maxTimeVariance }

// FirstNameGate reports whether the first tokens of both names share the
// configured prefix. A blank name never passes.
func (s *Scorer) FirstNameGate(a, b Profile) bool {
	if a.Key == "" || b.Key == "" {
		return false
	}
	return normalize.Prefix(a.First, s.firstNameLength) == normalize.Prefix(b.First, s.firstNameLength)
}

// GenderGate reports false only when both genders are known and differ.
func GenderGate(a, b model.Gender) bool {
	if !a.Known() || !b.Known() {
		return true
	}
	return a == b
}

// Compatible reports whether both the first-name and gender gates pass.
func (s *Scorer) Compatible(a, b Profile) bool {
	return GenderGate(a.Gender, b.Gender) && s.FirstNameGate(a, b)
}

// Score returns the key similarity of a and b.
func (s *Scorer) Score(a, b Profile) float64 {
	return KeySimilarity(a.Key, b.Key)
}

// TimePlausible reports whether a finish time of seconds is within the
// allowed relative variance of the mean of reference. Missing data on
// either side passes.
func (s *Scorer) TimePlausible(seconds int, ok bool, reference []int) bool {
	if !ok || seconds <= 0 || len(reference) == 0 {
		return true
	}
	sum := 0
	for _, r := range reference {
		sum += r
	}
	mean := float64(sum) / float64(len(reference))
	if mean <= 0 {
		return true
	}
	diff := float64(seconds) - mean
	if diff < 0 {
		diff = -diff
	}
	return diff/mean <= s.maxTimeVariance
}
