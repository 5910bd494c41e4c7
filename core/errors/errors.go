// Package errors provides the error taxonomy for provtrace.
//
// Every fatal condition of a trace maps to one of the typed errors below, and
// each type unwraps to a sentinel so callers can branch with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrConfiguration indicates bad caller input or an unusable setting
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound indicates a provenance record was not found
	ErrNotFound = errors.New("not found")
	// ErrOrder indicates scripts were supplied out of execution order
	ErrOrder = errors.New("execution order mismatch")
	// ErrTool indicates an unknown or unavailable execution backend
	ErrTool = errors.New("tool error")
	// ErrInvalidInput indicates malformed data, e.g. an unparseable record
	ErrInvalidInput = errors.New("invalid input")
	// ErrIO indicates a failed read or write outside reconciliation
	ErrIO = errors.New("i/o error")
)

// ConfigurationError reports an empty script list, a bad script name, an
// unusable list file or an unresolved provenance directory.
type ConfigurationError struct {
	Setting string // Setting or argument at fault (e.g., "scripts", "prov-dir")
	Message string // Human-readable explanation
	Err     error  // Underlying error, if any
}

func (e *ConfigurationError) Error() string {
	if e.Setting != "" {
		return fmt.Sprintf("invalid %s: %s", e.Setting, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfiguration
}

// Is lets errors.Is match ErrConfiguration even when Err is set.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NotFoundError represents a missing provenance record.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "provenance")
	ID       string // Identifier of the resource
	Where    string // Location searched, if known
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	switch {
	case e.ID != "" && e.Where != "":
		return fmt.Sprintf("%s not found: %s (searched %s)", e.Resource, e.ID, e.Where)
	case e.ID != "":
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// Is lets errors.Is match ErrNotFound even when Err is set.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// OrderError reports two adjacent scripts whose recorded execution
// timestamps run backwards.
type OrderError struct {
	Earlier     string // Script supplied first
	Later       string // Script supplied second
	EarlierTime string // Execution timestamp of Earlier
	LaterTime   string // Execution timestamp of Later
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("scripts out of execution order: %s (executed %s) is listed before %s (executed %s)",
		e.Earlier, e.EarlierTime, e.Later, e.LaterTime)
}

func (e *OrderError) Unwrap() error {
	return ErrOrder
}

// ToolError reports an unrecognized or unavailable execution backend.
type ToolError struct {
	Tool   string // Backend name as requested
	Reason string // Why it cannot be used
	Err    error  // Underlying error, if any
}

func (e *ToolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tool %q unavailable: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("tool %q unavailable", e.Tool)
}

func (e *ToolError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrTool
}

// Is lets errors.Is match ErrTool even when Err is set.
func (e *ToolError) Is(target error) bool {
	return target == ErrTool
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrIO as well as the wrapped error.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "PROV-JSON", "PROV-XML")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is lets errors.Is match ErrInvalidInput even when Err is set.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Helper functions for creating common errors

// NewConfiguration creates a ConfigurationError
func NewConfiguration(setting, message string) *ConfigurationError {
	return &ConfigurationError{
		Setting: setting,
		Message: message,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewOrder creates an OrderError
func NewOrder(earlier, earlierTime, later, laterTime string) *OrderError {
	return &OrderError{
		Earlier:     earlier,
		Later:       later,
		EarlierTime: earlierTime,
		LaterTime:   laterTime,
	}
}

// NewTool creates a ToolError
func NewTool(tool, reason string) *ToolError {
	return &ToolError{
		Tool:   tool,
		Reason: reason,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
