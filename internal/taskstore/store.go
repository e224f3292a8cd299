// Package taskstore keeps every task under users/{uid}/tasks/{taskId} and
// scopes each operation to the authenticated caller's subtree.
package taskstore

import (
	"context"
	"errors"
	"strings"

	"github.com/af-corp/taskmind/internal/types"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

var (
	ErrNotFound      = errors.New("task not found")
	ErrForbidden     = errors.New("path not accessible to caller")
	ErrInvalidTaskID = errors.New("invalid task id")
	ErrEmptyUpdate   = errors.New("update has no fields")
	ErrNoIdentity    = errors.New("no authenticated identity")
)

// Document is a stored task together with its store-assigned id.
type Document struct {
	ID   string
	Data types.Task
}

// Store is a hierarchical document store holding tasks per user. Implementations
// address users/{uid}/tasks and never look outside it.
type Store interface {
	// Add stores task under a new, store-assigned id and returns it.
	Add(ctx context.Context, uid string, task types.Task) (string, error)

	// List returns a snapshot of every task of uid. Order is store-defined.
	List(ctx context.Context, uid string) ([]Document, error)

	// Update merges fields into the existing task. Returns ErrNotFound if the
	// task does not exist.
	Update(ctx context.Context, uid, taskID string, fields types.Task) error
}

// CollectionPath returns users/{uid}/tasks.
func CollectionPath(uid string) string {
	return usersCollection + "/" + uid + "/" + tasksCollection
}

// DocumentPath returns users/{uid}/tasks/{taskID}.
func DocumentPath(uid, taskID string) string {
	return CollectionPath(uid) + "/" + taskID
}

// ValidateTaskID rejects ids that would not address exactly one document
// directly under the task collection.
func ValidateTaskID(taskID string) error {
	if taskID == "" || taskID == "." || taskID == ".." || strings.Contains(taskID, "/") {
		return ErrInvalidTaskID
	}
	return nil
}
