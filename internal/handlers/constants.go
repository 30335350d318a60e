package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgInvalidDocumentID  = "Invalid document ID"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgInternal           = "Internal server error"
)

// API path constants
const (
	DocumentsAPIBasePath = "/api/v1/correspondences"
)
