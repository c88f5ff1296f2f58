package models

// RateLimitExceededResponse is the 429 body for the generic limiter middleware.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// LoginLockedResponse is the 429 body for login brute-force denials.
type LoginLockedResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	RetryAfter     int    `json:"retry_after"`
	RetryAfterText string `json:"retry_after_text"`
}
