package model

import "errors"

// Sentinel error kinds shared by the gameplay packages. Both are local
// precondition violations: the action is rejected and state is left untouched.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrIllegalState = errors.New("illegal state")
)
