// Package validation checks script names and reads script-list files.
package validation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/core/provenance"
)

// Limits on caller-supplied names and files.
const (
	// MaxListSize is the maximum size of a script-list file (1 MB).
	MaxListSize = 1 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrMissingSuffix    = errors.New("script name must end in .R")
)

// Injectable functions for testing.
var osOpen = func(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// ValidatePath checks for dangerous patterns, length limits and invalid
// characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// IsScriptName reports whether name looks like an R script or the console.
func IsScriptName(name string) bool {
	if name == provenance.Console {
		return true
	}
	ext := filepath.Ext(name)
	return (ext == ".R" || ext == ".r") && len(name) > len(ext)
}

// ValidateScriptName rejects empty names, unsafe paths and names lacking
// the .R suffix.
func ValidateScriptName(name string) error {
	if err := ValidatePath(name); err != nil {
		return &perrors.ConfigurationError{Setting: "scripts", Message: fmt.Sprintf("bad script name %q", name), Err: err}
	}
	if !IsScriptName(name) {
		return &perrors.ConfigurationError{Setting: "scripts", Message: fmt.Sprintf("%q is not an R script", name), Err: ErrMissingSuffix}
	}
	return nil
}

// ReadScriptList reads a newline-delimited list of script names. Blank
// lines and lines starting with # are skipped. A list that cannot be read
// or names nothing is a configuration error.
func ReadScriptList(path string) ([]string, error) {
	f, err := osOpen(path)
	if err != nil {
		return nil, &perrors.ConfigurationError{Setting: "script list", Message: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(io.LimitReader(f, MaxListSize))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &perrors.ConfigurationError{Setting: "script list", Message: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	if len(names) == 0 {
		return nil, perrors.NewConfiguration("script list", fmt.Sprintf("%s names no scripts", path))
	}
	return names, nil
}

// ResolveScripts turns command-line arguments into validated script
// names. A single argument that is not a script name is read as a list
// file.
func ResolveScripts(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, perrors.NewConfiguration("scripts", "no scripts given")
	}

	names := args
	if len(args) == 1 && args[0] != "" && !IsScriptName(args[0]) {
		list, err := ReadScriptList(args[0])
		if err != nil {
			return nil, err
		}
		names = list
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if err := ValidateScriptName(name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}
