package model

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	Category    string `json:"category,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`
}

// ErrorsResponse represents response for GET /wallet/errors
type ErrorsResponse struct {
	Errors []FailureRecord `json:"errors"`
}
