package core

import "errors"

// Protocol errors. Each aborts the command in flight and is answered with NOK.
var (
	ErrFramingTimeout     = errors.New("framing timeout")
	ErrInvalidLeadingByte = errors.New("invalid leading byte")
	ErrMissingSeparator   = errors.New("missing separator")
	ErrInvalidKey         = errors.New("invalid key")
	ErrInvalidDigit       = errors.New("invalid digit")
	ErrEmptyValue         = errors.New("empty value")
	ErrUnexpectedEnd      = errors.New("unexpected end of line")
)

// MinimumError reports a SET value below its parameter's minimum. Its reply
// names the parameter and the minimum, e.g. "min_offset=2".
type MinimumError struct {
	Param Param
}

func (e *MinimumError) Error() string {
	return "min_" + e.Param.String() + "=" + utoa(e.Param.Spec().Min)
}
