package fingerprint

import "codeberg.org/thomiel/adored/internal/errors"

// Algorithm selectors accepted in the configuration.
const (
	AlgorithmEchoprint   = "echoprint"
	AlgorithmChromaprint = "chromaprint"
)

type Config struct {
	Algorithm string
}

func DefaultConfig() Config {
	return Config{Algorithm: AlgorithmEchoprint}
}

// New selects the fingerprinting variant by configuration value. Both
// variants satisfy the same Algorithm contract and are never mixed within
// one deployment.
func New(cfg Config) (Algorithm, error) {
	errFactory := errors.New()

	switch cfg.Algorithm {
	case AlgorithmEchoprint:
		return &echoprintAlgorithm{}, nil
	case AlgorithmChromaprint:
		return &chromaprintAlgorithm{}, nil
	default:
		return nil, errFactory.WithData(ErrUnknownAlgorithm, cfg.Algorithm)
	}
}
