package types

import "errors"

// Domain errors for entity validation
var (
	// Seeker errors
	ErrInvalidSeeker     = errors.New("invalid seeker profile")
	ErrInvalidSeekerID   = errors.New("seeker ID must be positive")
	ErrInvalidWorkStyle  = errors.New("unknown work style")
	ErrInvalidExperience = errors.New("unknown experience level")
	ErrInvalidVisibility = errors.New("unknown visibility")

	// Job errors
	ErrInvalidJob     = errors.New("invalid job")
	ErrInvalidJobID   = errors.New("job ID must be positive")
	ErrEmptyJobTitle  = errors.New("job title cannot be empty")
	ErrInvalidJobType = errors.New("unknown job type")

	// Shared
	ErrInvalidSalaryRange = errors.New("salary minimum exceeds maximum")
	ErrInvalidScore       = errors.New("score must be between 0 and 100")
)
