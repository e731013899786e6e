package validation

import (
	"errors"
	"strings"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
)

// ValidateNewTask checks the creation form. Descriptions may later be edited to "",
// but a new task needs both fields. The title is stored as typed.
func ValidateNewTask(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}

	if strings.TrimSpace(description) == "" {
		return ErrDescriptionRequired
	}

	return nil
}
