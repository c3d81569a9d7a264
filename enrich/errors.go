package enrich

import "errors"

var (
	// ErrCatalogRequired is returned when no catalog repository is provided.
	ErrCatalogRequired = errors.New("catalog repository is required")

	// ErrAnnotationsRequired is returned when no annotation repository is provided.
	ErrAnnotationsRequired = errors.New("annotation repository is required")

	// ErrOracleRequired is returned when no oracle is provided.
	ErrOracleRequired = errors.New("oracle is required")

	// ErrAlreadyRunning is returned when a run is started while another is active.
	ErrAlreadyRunning = errors.New("enrichment run already in progress")

	// ErrEmptyKeywords marks an oracle response with no usable keywords.
	ErrEmptyKeywords = errors.New("oracle returned no keywords")
)
