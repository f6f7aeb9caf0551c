package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrInputFormat
	ErrValidation
	ErrStore
	ErrStoreConnection
	ErrIrrelevant
	ErrUploadFailed
	ErrAIUnavailable
)
