package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorCode classifies media pipeline failures so callers can map them without string matching.
type ErrorCode string

const (
	CodeNotFound   ErrorCode = "not_found"
	CodeState      ErrorCode = "state"
	CodeEmptyData  ErrorCode = "empty_data"
	CodeProvider   ErrorCode = "provider"
	CodeDownload   ErrorCode = "download"
	CodeUpload     ErrorCode = "upload"
	CodePackaging  ErrorCode = "packaging"
	CodeValidation ErrorCode = "validation"
	CodeInternal   ErrorCode = "internal"
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	// UnitID is set for per-sentence failures (provider, download, upload).
	UnitID uuid.UUID
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	if e.UnitID != uuid.Nil {
		msg = strings.TrimSpace(fmt.Sprintf("sentence %s: %s", e.UnitID, msg))
	}
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with a code. It returns nil for a nil err.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// UnitError builds a per-sentence failure.
func UnitError(code ErrorCode, op string, unitID uuid.UUID, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Op: op, Message: msg, UnitID: unitID, Cause: err}
}

func IsCode(err error, code ErrorCode) bool {
	var mErr *Error
	if !errors.As(err, &mErr) {
		return false
	}
	return mErr.Code == code
}

func CodeOf(err error) ErrorCode {
	var mErr *Error
	if !errors.As(err, &mErr) {
		return ""
	}
	return mErr.Code
}

// ExportError is the single error surfaced by a failed chapter export.
type ExportError struct {
	ChapterID uuid.UUID
	Err       error
}

func (e *ExportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("export chapter %s failed", e.ChapterID)
	}
	return fmt.Sprintf("export chapter %s: %v", e.ChapterID, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// AsExportError wraps err for chapterID unless it already is an ExportError.
func AsExportError(chapterID uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		return err
	}
	return &ExportError{ChapterID: chapterID, Err: err}
}
