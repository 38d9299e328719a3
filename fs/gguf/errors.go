// Package gguf - Fehlerwerte des Containerparsers
package gguf

import "errors"

// Sentinel errors per spec.md §4.1/§4.12.
var (
	ErrInvalidMagic       = errors.New("gguf: invalid magic")
	ErrUnsupportedVersion = errors.New("gguf: unsupported version")
	ErrUnsupportedType    = errors.New("gguf: unsupported tensor type")
	ErrMalformedContainer = errors.New("gguf: malformed container")
)
