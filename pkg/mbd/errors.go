package mbd

import "errors"

var (
	// ErrDimensionMismatch is returned when a curve or flat buffer does not
	// have the length implied by the index dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidInput is returned for empty ensembles, zero timepoints,
	// ragged curves, oversized ensembles and NaN values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateReferenceSet is returned by queries against an index
	// holding fewer than two reference curves, where C(N,2) is zero.
	ErrDegenerateReferenceSet = errors.New("degenerate reference set")
)
