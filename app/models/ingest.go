package models

// IngestRequest is the body of POST /api/parse-todos.
type IngestRequest struct {
	Text    string `json:"text"`
	OwnerID string `json:"ownerId"`
}

// IngestResponse is returned when a free-form description was turned into tasks.
type IngestResponse struct {
	Success bool   `json:"success"`
	Items   []Task `json:"items"`
	Count   int    `json:"count"`
}

// ErrorResponse is the JSON error envelope used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
