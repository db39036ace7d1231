// Package errors provides standardized error types and helpers for the xmlflat codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrConfiguration indicates an unusable run configuration
	ErrConfiguration = errors.New("configuration error")
	// ErrStructure indicates a malformed template document or tag name
	ErrStructure = errors.New("structure error")
	// ErrOptimization indicates a violated packing invariant (always a defect)
	ErrOptimization = errors.New("optimization fault")
	// ErrExtraction indicates a data document diverging from the parser contract
	ErrExtraction = errors.New("extraction error")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
)

// ConfigurationError reports a run configuration that cannot produce output,
// such as a tracked-field set left empty after filtering.
type ConfigurationError struct {
	Setting string // Setting that is unusable (e.g., "filters", "output")
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ConfigurationError) Error() string {
	if e.Setting != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Setting, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfiguration
}

// StructureError reports a malformed tag name or a parse failure during
// schema inference. It aborts the whole run: without a schema nothing
// downstream can proceed.
type StructureError struct {
	Path    string // Template document path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *StructureError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("bad XML structure in %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("bad XML structure: %s", e.Message)
}

func (e *StructureError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrStructure
}

// OptimizationFault reports a violated packing invariant: a destination-cell
// collision or an unmatched buffer marker. It is always a defect, never a
// data error, and is fatal for the current document.
type OptimizationFault struct {
	Parent  string // Tracked-parent XPath of the span being packed
	Message string // Error details
}

func (e *OptimizationFault) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("optimization fault in <%s> span: %s", e.Parent, e.Message)
	}
	return fmt.Sprintf("optimization fault: %s", e.Message)
}

func (e *OptimizationFault) Unwrap() error {
	return ErrOptimization
}

// ExtractionError reports a data document that failed to parse or diverged
// from the parser contract. It is scoped to one document; the caller decides
// whether to continue with the remaining inputs.
type ExtractionError struct {
	Path string // Data document path, if applicable
	Err  error  // Underlying error
}

func (e *ExtractionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrExtraction
}

// Helper functions for creating common errors

// NewConfiguration creates a ConfigurationError
func NewConfiguration(setting, message string) *ConfigurationError {
	return &ConfigurationError{
		Setting: setting,
		Message: message,
	}
}

// NewStructure creates a StructureError
func NewStructure(path, message string) *StructureError {
	return &StructureError{
		Path:    path,
		Message: message,
	}
}

// NewOptimization creates an OptimizationFault
func NewOptimization(parent, message string) *OptimizationFault {
	return &OptimizationFault{
		Parent:  parent,
		Message: message,
	}
}

// NewExtraction creates an ExtractionError
func NewExtraction(path string, err error) *ExtractionError {
	return &ExtractionError{
		Path: path,
		Err:  err,
	}
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers don't need to import both error packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// Re-exported so callers don't need to import both error packages.
func As(err error, target any) bool {
	return errors.As(err, target)
}
