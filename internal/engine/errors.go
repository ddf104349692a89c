package engine

import "errors"

// Per-document failure conditions. All are caught at the document boundary;
// one failing document never aborts the run. Repeated provider failures are
// the single escalation path (see providerFailureLimit).
var (
	// ErrEmptyDocument marks content too short to analyze. The document is
	// skipped without a model call.
	ErrEmptyDocument = errors.New("empty document")

	// ErrProviderUnavailable wraps any completion provider failure.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUnparsable marks a completion with no recognizable glyph grammar.
	// The document is retried up to the attempt bound, then skipped.
	ErrUnparsable = errors.New("unparsable response")
)

// Reason strings recorded on audit records.
const (
	ReasonEmptyDocument       = "empty_document"
	ReasonAlreadyProcessed    = "already_processed"
	ReasonCorruptHeader       = "corrupt_header"
	ReasonProviderUnavailable = "provider_unavailable"
	ReasonUnparsableResponse  = "unparsable_response"
	ReasonReadError           = "read_error"
	ReasonWriteError          = "write_error"
)
