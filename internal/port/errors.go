package port

import "errors"

// Sentinel errors used across ports. Adapters wrap these with %w so
// services can branch on the failure kind with errors.Is.
var (
	ErrEmbeddingUnavailable  = errors.New("embedding capability unavailable")
	ErrRankingUnavailable    = errors.New("ranking capability unavailable")
	ErrGenerationUnavailable = errors.New("generation capability unavailable")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrPartialWrite          = errors.New("partial write")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
)
