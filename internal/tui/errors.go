package tui

import (
	"context"
	"errors"
	"os"
	"strings"

	"vibe-terminal/internal/clipboard"
	"vibe-terminal/internal/export"
)

// FriendlyError pairs a stable code with text fit to show the user.
type FriendlyError struct {
	Code    string
	Message string
	Cause   error
}

func (e *FriendlyError) Error() string {
	return e.Message
}

func (e *FriendlyError) Unwrap() error { return e.Cause }

func mapClipboardError(err error) *FriendlyError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FriendlyError{Code: "CLIPBOARD_TIMEOUT", Message: "The clipboard did not respond in time.", Cause: err}
	case errors.Is(err, clipboard.ErrTooLarge):
		return &FriendlyError{Code: "CLIPBOARD_TOO_LARGE", Message: "The code is too large for the terminal clipboard.", Cause: err}
	case isPermissionError(err):
		return &FriendlyError{Code: "CLIPBOARD_PERMISSION_DENIED", Message: "Permission to write the clipboard was denied.", Cause: err}
	case errors.Is(err, clipboard.ErrUnavailable):
		return &FriendlyError{Code: "CLIPBOARD_UNAVAILABLE", Message: "No clipboard is available in this terminal.", Cause: err}
	}
	return &FriendlyError{Code: "CLIPBOARD_WRITE_FAILED", Message: "Copying to the clipboard failed.", Cause: err}
}

func mapExportError(err error) *FriendlyError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, export.ErrInvalidName):
		return &FriendlyError{Code: "EXPORT_INVALID_NAME", Message: "The download file name is not valid.", Cause: err}
	case isPermissionError(err):
		return &FriendlyError{Code: "EXPORT_PERMISSION_DENIED", Message: "Permission to write the download was denied.", Cause: err}
	}
	return &FriendlyError{Code: "EXPORT_FAILED", Message: "Saving the download failed.", Cause: err}
}

func isPermissionError(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission denied")
}
