package session

import (
	"errors"
	"fmt"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notice is a message shown at the top of a section.
type Notice struct {
	Level   Level
	Message string
}

func Success(format string, args ...any) Notice {
	return Notice{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)}
}

func Info(format string, args ...any) Notice {
	return Notice{Level: LevelInfo, Message: fmt.Sprintf(format, args...)}
}

func Warning(format string, args ...any) Notice {
	return Notice{Level: LevelWarning, Message: fmt.Sprintf(format, args...)}
}

// AddedNotice reports a successful submission.
func AddedNotice(e core.Expense) Notice {
	return Success("Expense added under '%s' category.", e.Category)
}

// IsUserError reports whether err was caused by the user's input and should
// be shown as a warning rather than treated as a failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyDescription,
		core.ErrNegativeAmount,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		store.ErrRowOutOfRange,
		store.ErrNoCategoryColumn,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UserMessage returns the warning text for a user error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		return "Please enter a description."
	case errors.Is(err, core.ErrNegativeAmount):
		return "Amount must be zero or more."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid amount."
	case errors.Is(err, core.ErrInvalidDate):
		return "Please enter a valid date (YYYY-MM-DD)."
	case errors.Is(err, store.ErrRowOutOfRange):
		return "That row number does not exist."
	case errors.Is(err, store.ErrNoCategoryColumn):
		return "The store has no category column to update."
	default:
		return err.Error()
	}
}
