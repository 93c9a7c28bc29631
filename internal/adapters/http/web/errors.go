package web

import "errors"

// Sentinel kinds for console HTTP errors.
var (
	ErrTemplate   = errors.New("template render failed")
	ErrBadRequest = errors.New("bad request")
)
