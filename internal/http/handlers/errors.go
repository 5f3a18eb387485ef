package handlers

// Error codes of the compact error envelope. Location endpoints answer with
// apierr variants instead; these cover transport failures around them.
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
)
