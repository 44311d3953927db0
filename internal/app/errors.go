package service

import (
	"errors"
	"fmt"

	"github.com/okian/crease/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrBackpressure    = errors.New("result queue is full")
	ErrUnknownPlayer   = fmt.Errorf("%w: unknown player", model.ErrInvalidInput)
)
