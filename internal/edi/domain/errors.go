package edi

import (
	"errors"
	"fmt"
)

// ErrMalformedInterchange marks structural framing failures. Such failures are
// fatal to the whole interchange; the sender must resend a corrected one.
var ErrMalformedInterchange = errors.New("edi: malformed interchange")

// ErrUnknownMessageType is returned when no grammar exists for a message type.
var ErrUnknownMessageType = errors.New("edi: unknown message type")

// MalformedInterchangeError reports why an interchange could not be framed.
type MalformedInterchangeError struct {
	Reason string
}

func (e *MalformedInterchangeError) Error() string {
	return fmt.Sprintf("edi: malformed interchange: %s", e.Reason)
}

// Is lets errors.Is match the malformed sentinel.
func (e *MalformedInterchangeError) Is(target error) bool {
	return target == ErrMalformedInterchange
}

func malformedf(format string, args ...any) error {
	return &MalformedInterchangeError{Reason: fmt.Sprintf(format, args...)}
}
