package types

// SuccessEnvelope is the shape of every 2xx response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the shape of every non-2xx response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
