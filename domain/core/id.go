package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	IntroductionID ID
	CheckInID      ID
	FlagID         ID
)

func (id IntroductionID) String() string { return ID(id).String() }
func (id CheckInID) String() string      { return ID(id).String() }
func (id FlagID) String() string         { return ID(id).String() }

// ParseIntroductionID parses a string into IntroductionID
func ParseIntroductionID(s string) (IntroductionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("introduction ID cannot be empty")
	}
	return IntroductionID(s), nil
}

// ParseCheckInID parses a string into CheckInID
func ParseCheckInID(s string) (CheckInID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("check-in ID cannot be empty")
	}
	return CheckInID(s), nil
}

// ParseFlagID parses a string into FlagID
func ParseFlagID(s string) (FlagID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("flag ID cannot be empty")
	}
	return FlagID(s), nil
}
