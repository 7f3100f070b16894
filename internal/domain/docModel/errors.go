package docModel

import "errors"

var (
	// ErrConfig marks an invalid startup configuration (overlap >= size,
	// non-positive dimension). Fatal at boot, never per-request.
	ErrConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch fails a single ingestion when an embedding's length
	// differs from the store's fixed dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound reports an unknown document id on delete/content/scope.
	ErrNotFound = errors.New("document not found")

	// ErrNoHits signals that retrieval ran but nothing survived the similarity
	// threshold. Internal only; it selects the keyword fallback branch.
	ErrNoHits = errors.New("no retrieval hits")

	// ErrIndexCorruption marks a state where the vector index and the document
	// registry would disagree. Never swallowed.
	ErrIndexCorruption = errors.New("vector index and registry inconsistent")
)
