package model

import "errors"

var (
	// ErrMissingIdentity is returned when a record carries no attribute
	// whose name contains "id"
	ErrMissingIdentity = errors.New("record has no identity attribute")
)
