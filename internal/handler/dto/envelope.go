// Package dto provides the request bodies and the response envelope of
// the HTTP API.
package dto

// Envelope wraps every response body.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// emptyData serializes as [] so clients always see a JSON value.
var emptyData = []any{}

// OK builds a successful envelope. A nil data becomes [].
func OK(status int, data any, message string) Envelope {
	if data == nil {
		data = emptyData
	}
	return Envelope{Success: true, Data: data, Message: message, Status: status}
}

// Fail builds an error envelope.
func Fail(status int, message string) Envelope {
	return Envelope{Success: false, Data: emptyData, Message: message, Status: status}
}
