package similarity

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithFirstNameLength sets how many leading runes of the first name must match.
func WithFirstNameLength(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.firstNameLength = n
		}
	}
}

// WithMaxTimeVariance sets the relative finish-time difference above which
// a match is rejected.
func WithMaxTimeVariance(v float64) Option {
	return func(s *Scorer) {
		if v > 0 {
			s.maxTimeVariance = v
		}
	}
}
