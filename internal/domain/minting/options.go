package minting

// Option applies a configuration option to the Minter.
type Option func(*Minter)

// WithClubTokenLength caps the length of the club disambiguator.
func WithClubTokenLength(n int) Option {
	return func(m *Minter) {
		if n > 0 {
			m.clubTokenLength = n
		}
	}
}
