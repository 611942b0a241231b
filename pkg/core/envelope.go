package core

import "net/http"

// StatusMessage is the structured failure message carried by envelopes.
type StatusMessage struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

// Envelope is the uniform four-field result contract every operation
// resolves to at the serialization boundary (CLI output, JSON APIs).
// Inside Go code the same information travels as (payload, error);
// Success and Failure convert between the two representations.
type Envelope struct {
	OK         bool           `json:"success"`
	Message    *StatusMessage `json:"message,omitempty"`
	Payload    any            `json:"payload,omitempty"`
	StatusCode int            `json:"status_code"`
}

// Success wraps a payload in a successful envelope.
func Success(payload any) Envelope {
	return Envelope{
		OK:         true,
		Payload:    payload,
		StatusCode: http.StatusOK,
	}
}

// Failure wraps an error in a failed envelope.
func Failure(err error) Envelope {
	code := StatusOf(err)
	return Envelope{
		OK: false,
		Message: &StatusMessage{
			StatusCode: code,
			StatusMsg:  err.Error(),
		},
		StatusCode: code,
	}
}

// Enclose folds a (payload, error) pair into an envelope.
func Enclose(payload any, err error) Envelope {
	if err != nil {
		return Failure(err)
	}
	return Success(payload)
}
