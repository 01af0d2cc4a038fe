package model

import "github.com/rotisserie/eris"

// ErrInvalidConfiguration marks caller errors in optimization inputs:
// malformed geometry, negative buffers or weights, degenerate bounds.
// Detected before any solver work begins.
var ErrInvalidConfiguration = eris.New("invalid configuration")
