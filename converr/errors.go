package converr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeExtraction  ErrorType = "ExtractionError"
	TypeUnsupported ErrorType = "UnsupportedFileError"
	TypeConversion  ErrorType = "ConversionError"
	TypeOutput      ErrorType = "OutputError"
)

// ConvertError is the interface for all conversion-related errors.
type ConvertError interface {
	error
	Type() ErrorType
}

// BaseError provides common fields for conversion errors.
type BaseError struct {
	Msg     string
	ErrType ErrorType
}

func (e *BaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

func (e *BaseError) Type() ErrorType {
	return e.ErrType
}

// FileError is an error tied to a single input or output file.
type FileError struct {
	BaseError
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.ErrType, e.Path, e.Msg)
	}
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// MultiError collects the failures of a batch run.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) occurred:\n", len(m.Errors)))
	for _, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("- %v\n", err))
	}
	return sb.String()
}

func (m *MultiError) Type() ErrorType {
	if len(m.Errors) > 0 {
		var ce ConvertError
		if errors.As(m.Errors[0], &ce) {
			return ce.Type()
		}
	}
	return "MultiError"
}

// Append adds err to the collection; nil errors are ignored.
func (m *MultiError) Append(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns m when it holds at least one error.
func (m *MultiError) ErrorOrNil() error {
	if m == nil || len(m.Errors) == 0 {
		return nil
	}
	return m
}

func newFileError(t ErrorType, path, msg string, err error) *FileError {
	return &FileError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: t,
		},
		Path: path,
		Err:  err,
	}
}

// NewExtractionError creates an error for a container that could not be read.
func NewExtractionError(path string, err error) *FileError {
	msg := "extraction failed"
	if err != nil {
		msg = err.Error()
	}
	return newFileError(TypeExtraction, path, msg, err)
}

// NewUnsupportedFileError creates an error for an input extension outside
// the supported set.
func NewUnsupportedFileError(path, ext string) *FileError {
	return newFileError(TypeUnsupported, path, fmt.Sprintf("unsupported file format: %s", ext), nil)
}

// NewConversionError creates an error raised while converting a module.
func NewConversionError(path, msg string) *FileError {
	return newFileError(TypeConversion, path, msg, nil)
}

// NewOutputError creates an error for generated text that could not be written.
func NewOutputError(path string, err error) *FileError {
	return newFileError(TypeOutput, path, err.Error(), err)
}

// IsType reports whether any error in err's chain has the given type.
func IsType(err error, t ErrorType) bool {
	var ce ConvertError
	if errors.As(err, &ce) {
		return ce.Type() == t
	}
	return false
}
