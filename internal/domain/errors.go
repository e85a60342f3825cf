package domain

import (
	"errors"
	"fmt"
)

// Sentinel categories, matched with errors.Is. The typed errors below carry
// the detail callers need to correct the request; none of them is retryable.
var (
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrStructural    = errors.New("structural violation")
	ErrOrder         = errors.New("order violation")
)

// StructuralErrorCode enumerates tree invariant violations.
type StructuralErrorCode string

const (
	MaxDepthExceeded StructuralErrorCode = "max_depth_exceeded"
	InvalidParent    StructuralErrorCode = "invalid_parent"
)

// OrderErrorCode enumerates learning-path invariant violations.
type OrderErrorCode string

const (
	CircularReference OrderErrorCode = "circular_reference"
	AlreadyTargeted   OrderErrorCode = "already_targeted"
	AlreadySourced    OrderErrorCode = "already_sourced"
	InvalidStartItem  OrderErrorCode = "invalid_start_item"
	InvalidTargetItem OrderErrorCode = "invalid_target_item"
	InvalidSourceItem OrderErrorCode = "invalid_source_item"
)

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateConflictError names the snapshot's current status and the action that
// was refused, so the caller can see exactly why the mutation was rejected.
type StateConflictError struct {
	Status string
	Action string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s while snapshot is %s", e.Action, e.Status)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

type StructuralError struct {
	Code   StructuralErrorCode
	Detail string
}

func (e *StructuralError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

type OrderError struct {
	Code   OrderErrorCode
	Detail string
}

func (e *OrderError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *OrderError) Is(target error) bool { return target == ErrOrder }
