package handler

// Result is the response body of the contact endpoint and of every
// failure.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// Field names the offending input on validation failures.
	Field string `json:"field,omitempty"`
}

// TokenResponse is the response body of GET /api/csrf-token.
// DoubleSubmitToken is null when double-submit protection is disabled.
type TokenResponse struct {
	Success           bool    `json:"success"`
	CSRFToken         string  `json:"csrf_token"`
	DoubleSubmitToken *string `json:"double_submit_token"`
	Timestamp         int64   `json:"timestamp"`
}

// HealthResponse is the response body of /health and /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Error  string `json:"error,omitempty"`
}
