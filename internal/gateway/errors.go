package gateway

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// FriendlyError is the JSON error body returned to browser clients.
type FriendlyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *FriendlyError) Error() string {
	return e.Message
}

func (e *FriendlyError) Unwrap() error { return e.Cause }

func mapLaunchError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrInvalidRequest, ErrSessionNotFound, ErrSessionClosed, ErrCapacity} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &FriendlyError{Code: "EDITOR_EXIT", Message: "The editor process terminated unexpectedly.", Cause: err}
	}
	if isMissingExecutableError(err) {
		return &FriendlyError{Code: "EDITOR_BINARY_NOT_FOUND", Message: "The editor binary is missing on the server.", Cause: err}
	}
	if errors.Is(err, os.ErrClosed) {
		return &FriendlyError{Code: "EDITOR_CLOSED", Message: "The editor session has already ended.", Cause: err}
	}
	return &FriendlyError{Code: "SESSION_IO_FAILURE", Message: "Editor session I/O failed.", Cause: err}
}

func isMissingExecutableError(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errors.Is(pathErr.Err, os.ErrNotExist) && strings.Contains(pathErr.Op, "exec") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "executable file not found")
}
