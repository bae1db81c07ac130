package api

import "time"

// CaptureMealRequest is the request body for capturing a meal photo. Image
// accepts either a bare base64 payload or a data URI.
type CaptureMealRequest struct {
	Image    string     `json:"image" binding:"required"`
	MimeType string     `json:"mime_type,omitempty"`
	LoggedAt *time.Time `json:"logged_at,omitempty"`
}

// ErrorResponse is the common error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
