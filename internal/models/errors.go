package models

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrUnknownKind       = errors.New("unknown entity kind")
	ErrMissingOwner      = errors.New("owner is required")
	ErrEmptyTitle        = errors.New("title is required")
	ErrMissingParent     = errors.New("child entity requires a parent list")
)
