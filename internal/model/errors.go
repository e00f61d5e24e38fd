package model

import "errors"

// Store error classes. Stores wrap failures that a retry cannot fix with
// one of these so callers can tell them apart from transient ones.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrCorruptRecord  = errors.New("corrupt record")
)
