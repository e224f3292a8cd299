package taskstore

import (
	"context"
	"fmt"

	"github.com/af-corp/taskmind/internal/auth"
	"github.com/af-corp/taskmind/internal/types"
)

// Operations reported to the Authorizer.
const (
	OpCreate = "create"
	OpList   = "list"
	OpUpdate = "update"
)

// Authorizer decides whether uid may perform op on a store path.
type Authorizer interface {
	Authorize(ctx context.Context, uid, op, path string) error
}

// Gateway derives every store path from the caller's identity. It never
// re-authenticates; callers pass an identity resolved by auth.Authenticate.
type Gateway struct {
	store Store
	authz Authorizer
}

// NewGateway creates a gateway over store. authz may be nil.
func NewGateway(store Store, authz Authorizer) *Gateway {
	return &Gateway{store: store, authz: authz}
}

// CreateTask appends body as a new task of the caller and returns its id.
func (g *Gateway) CreateTask(ctx context.Context, id *auth.Identity, body types.Task) (string, error) {
	uid, err := uidOf(id)
	if err != nil {
		return "", err
	}
	if err := g.authorize(ctx, uid, OpCreate, CollectionPath(uid)); err != nil {
		return "", err
	}
	if body == nil {
		body = types.Task{}
	}

	taskID, err := g.store.Add(ctx, uid, body)
	if err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	return taskID, nil
}

// ListTasks returns every task of the caller as {"id": taskID, ...fields}.
// Stored fields are spread after the id, so a stored "id" field wins.
func (g *Gateway) ListTasks(ctx context.Context, id *auth.Identity) ([]types.Task, error) {
	uid, err := uidOf(id)
	if err != nil {
		return nil, err
	}
	if err := g.authorize(ctx, uid, OpList, CollectionPath(uid)); err != nil {
		return nil, err
	}

	docs, err := g.store.List(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]types.Task, 0, len(docs))
	for _, doc := range docs {
		task := make(types.Task, len(doc.Data)+1)
		task["id"] = doc.ID
		for k, v := range doc.Data {
			task[k] = v
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// UpdateTask merges fields into the caller's task taskID.
func (g *Gateway) UpdateTask(ctx context.Context, id *auth.Identity, taskID string, fields types.Task) error {
	uid, err := uidOf(id)
	if err != nil {
		return err
	}
	if err := ValidateTaskID(taskID); err != nil {
		return fmt.Errorf("%w: %q", err, taskID)
	}
	if len(fields) == 0 {
		return ErrEmptyUpdate
	}
	if err := g.authorize(ctx, uid, OpUpdate, DocumentPath(uid, taskID)); err != nil {
		return err
	}

	if err := g.store.Update(ctx, uid, taskID, fields); err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	return nil
}

func (g *Gateway) authorize(ctx context.Context, uid, op, path string) error {
	if g.authz == nil {
		return nil
	}
	if err := g.authz.Authorize(ctx, uid, op, path); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrForbidden, op, path, err)
	}
	return nil
}

func uidOf(id *auth.Identity) (string, error) {
	if id == nil || id.UID == "" {
		return "", ErrNoIdentity
	}
	return id.UID, nil
}
