package storage

import "errors"

var (
	ErrUnreachable       = errors.New("chunk store unreachable")
	ErrSimilaritySearch  = errors.New("similarity search failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
