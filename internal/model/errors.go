package model

import "fmt"

// ResourceError reports that a path's physical disk could not be resolved,
// typically because the path does not exist on any mounted device.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("cannot resolve disk for %q: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ConflictError reports a mutation that would violate a uniqueness or
// status-ordering invariant, e.g. staging a duplicate path or marking a
// transfer done before its source was hashed.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// Conflictf builds a ConflictError from a format string.
func Conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a path-or-alias reference that resolved to nothing.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no source or target matches %q", e.Ref)
}

// AliasConflictError reports a reference that matched more than one entity,
// e.g. an alias shared between a source and a target.
type AliasConflictError struct {
	Ref string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("reference %q is ambiguous", e.Ref)
}

// PersistenceError reports that the state file could not be read, parsed or
// written. It is fatal for the invocation.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state file %q: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PipelineError reports that a stage executor failed for one specific
// operation. It is caught per operation: only direct dependents are blocked.
type PipelineError struct {
	Op  OpKey
	Err error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
