package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// CommandField is the frame key that names the handler.
const CommandField = "_command"

var api = sonic.ConfigStd

// ErrNotObject is returned when a payload does not encode to a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

type envelope struct {
	Command string `json:"_command"`
}

// Marshal encodes v with the wire codec.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal decodes data into v with the wire codec.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Encode builds a frame for command. A nil payload yields a frame with only
// the command field.
func Encode(command string, payload any) ([]byte, error) {
	head := []byte(fmt.Sprintf(`{%q:%q`, CommandField, command))
	if payload == nil {
		return append(head, '}'), nil
	}

	body, err := api.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", command, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: %w", command, ErrNotObject)
	}

	inner := bytes.TrimSpace(body[1 : len(body)-1])
	if len(inner) == 0 {
		return append(head, '}'), nil
	}
	frame := make([]byte, 0, len(head)+len(inner)+2)
	frame = append(frame, head...)
	frame = append(frame, ',')
	frame = append(frame, inner...)
	return append(frame, '}'), nil
}

// Command extracts the command name from a frame.
func Command(frame []byte) (string, error) {
	var env envelope
	if err := api.Unmarshal(frame, &env); err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	if env.Command == "" {
		return "", fmt.Errorf("decode frame: missing %s", CommandField)
	}
	return env.Command, nil
}
