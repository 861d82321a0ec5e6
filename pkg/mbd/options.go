package mbd

// Option configures an Index at construction time.
type Option func(*Index)

// WithStrategy sets the rank-counting strategy used by queries.
// The default is StrategyAuto.
func WithStrategy(s Strategy) Option {
	return func(ix *Index) {
		ix.strategy = s
	}
}
