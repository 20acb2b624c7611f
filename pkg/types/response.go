package types

import "encoding/json"

// SuccessEnvelope wraps every 2xx body written by the canteen API.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// RawEnvelope is the client side of SuccessEnvelope. Data stays raw until
// the caller knows whether it holds an order, an order page or the menu.
type RawEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// HasData is false for an absent or null payload.
func (e RawEnvelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
