package splist

import (
	"errors"
	"fmt"
)

// ErrEmptyList matches (errors.Is) a NotFoundError raised because a list exists but has no items.
var ErrEmptyList = errors.New("there are no items in the list")

type NotFoundError struct {
	Kind   string // "list" | "item" | "items"
	Key    string
	Reason string
}

func (e NotFoundError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrEmptyList && e.Kind == "items"
}

func errListNotFound(title string) error {
	return NotFoundError{Kind: "list", Key: title, Reason: "there is no such list"}
}

func errItemNotFound(id int) error {
	return NotFoundError{Kind: "item", Key: fmt.Sprint(id), Reason: fmt.Sprintf("there is no item with id %d", id)}
}

func errNoItems(title string) error {
	return NotFoundError{Kind: "items", Key: title, Reason: ErrEmptyList.Error()}
}

type CreateError struct {
	Reason string
}

func (e CreateError) Error() string {
	return "create failed: " + e.Reason
}

type PreconditionFailedError struct {
	ID int
}

func (e PreconditionFailedError) Error() string {
	return fmt.Sprintf("item %d was changed since it was read (ETag mismatch)", e.ID)
}

// NetworkError wraps a transport failure (dial, TLS, timeout, body read).
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API %d", e.Status)
}
