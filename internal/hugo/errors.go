package hugo

import "errors"

var (
	// ErrHugoBinaryNotFound indicates the hugo executable was not detected on PATH.
	ErrHugoBinaryNotFound = errors.New("hugo binary not found")
	// ErrHugoExecutionFailed indicates the hugo command returned a non-zero exit status.
	ErrHugoExecutionFailed = errors.New("hugo execution failed")
)
