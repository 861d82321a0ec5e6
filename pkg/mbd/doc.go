// Package mbd computes the Modified Band Depth of curves relative to a
// reference ensemble.
//
// index.go builds the Index: for every timepoint the N reference values are
// sorted ascending and stored contiguously (column-major), so a query touches
// one contiguous block per timepoint.
//
// partition.go counts how many values of a sorted block are below, equal to
// and above a query value. Two strategies are provided, a linear scan and a
// binary search with equal-run expansion; they always return the same triple.
//
// query.go accumulates, per timepoint, the number of reference pairs whose
// band encloses the query value and normalises the total by T·C(N,2).
// Counts are accumulated as uint64, so splitting the timepoint loop across
// goroutines (QueryConcurrent) never changes the result.
//
// An Index is immutable after construction and safe for concurrent use.
package mbd
