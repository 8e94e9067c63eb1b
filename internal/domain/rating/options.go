package rating

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithMu sets the initial mean.
func WithMu(mu float64) Option {
	return func(m *Model) { m.mu = mu }
}

// WithSigma sets the initial uncertainty.
func WithSigma(sigma float64) Option {
	return func(m *Model) {
		if sigma > 0 {
			m.sigma = sigma
		}
	}
}

// WithBeta sets the performance noise.
func WithBeta(beta float64) Option {
	return func(m *Model) {
		if beta > 0 {
			m.beta = beta
		}
	}
}

// WithTau sets the dynamics factor added to sigma before each update.
func WithTau(tau float64) Option {
	return func(m *Model) {
		if tau >= 0 {
			m.tau = tau
		}
	}
}

// WithDrawProbability sets the prior draw probability used for the draw margin.
func WithDrawProbability(p float64) Option {
	return func(m *Model) { m.drawProbability = p }
}
