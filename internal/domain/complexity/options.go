package complexity

// DefaultRounds is the number of synchronous rounds run when no option overrides it.
const DefaultRounds = 20

type settings struct {
	rounds    int
	tolerance float64
}

func newSettings(opts []Option) settings {
	s := settings{rounds: DefaultRounds}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures the iteration.
type Option func(*settings)

// WithRounds sets the number of rounds. Negative values are ignored.
func WithRounds(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.rounds = n
		}
	}
}

// WithTolerance enables early stopping once no index moves by more than tol
// within a round. It changes numeric output and is off by default.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		if tol > 0 {
			s.tolerance = tol
		}
	}
}
