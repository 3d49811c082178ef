package router

// Problem codes returned in the "code" field of error responses.
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrPayloadTooLargeCode    = "PAYLOAD_TOO_LARGE"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
	ErrNotReadyCode           = "MODEL_NOT_READY"
	ErrAuthorRequiredCode     = "AUTHOR_REQUIRED"
)

// Error messages
const (
	ErrMsgAppStateNotInitialized = "application state not initialized"
)
