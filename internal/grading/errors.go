package grading

import (
	"errors"

	"github.com/Yiteng-CHEN/snaplearn/internal/ai"
)

var (
	// ErrValidation reports malformed caller input, rejected before grading.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports a missing question, answer, homework or result.
	ErrNotFound = errors.New("not found")
	// ErrPermission reports a caller lacking teacher verification or ownership.
	ErrPermission = errors.New("permission denied")
	// ErrConflict reports a homework file that was already imported.
	ErrConflict = errors.New("conflict")
	// ErrAIBackend reports an AI endpoint failure on a path that propagates it.
	ErrAIBackend = ai.ErrBackend
)
