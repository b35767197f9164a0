package citeqa

import "github.com/kailas-cloud/citeqa/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrDecomposition          = domain.ErrDecomposition
	ErrProviderInit           = domain.ErrProviderInit
	ErrGeneration             = domain.ErrGeneration
	ErrCredentialMissing      = domain.ErrCredentialMissing
	ErrRetryableTransient     = domain.ErrRetryableTransient
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
