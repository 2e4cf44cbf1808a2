package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyPayload is returned by Decode when a message needs a body.
var ErrEmptyPayload = errors.New("empty payload")

// Encode marshals an outbound payload. A nil payload encodes as JSON null.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals an inbound payload, rejecting unknown fields and
// trailing data.
func Decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyPayload
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode payload: trailing data")
	}
	return nil
}
