package types

// SuccessEnvelope wraps every 2xx payload under a data key, so cart views,
// orders and list pages all share one response shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a pkg/errors code: the stable machine-readable
// code, a human message, and optional structured details (for example the
// missing cart item ids a checkout reports).
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an error key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
