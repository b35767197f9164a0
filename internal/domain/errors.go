package domain

import "errors"

var (
	// ErrDocumentNotFound signals a missing or unindexed document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidRequest signals a malformed caller request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDecomposition signals input that cannot be parsed as text at all.
	ErrDecomposition = errors.New("decomposition failed")
	// ErrProviderInit signals a non-credential failure while resolving the answer provider.
	ErrProviderInit = errors.New("provider init failed")
	// ErrRetryableTransient marks rate-limit, quota, network and timeout failures.
	ErrRetryableTransient = errors.New("retryable transient failure")
	// ErrCredentialMissing marks a missing or rejected provider credential.
	ErrCredentialMissing = errors.New("provider credential missing or invalid")
	// ErrGeneration signals that answer generation failed for good.
	ErrGeneration = errors.New("generation failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
