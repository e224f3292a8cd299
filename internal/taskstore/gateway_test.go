package taskstore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/af-corp/taskmind/internal/auth"
	"github.com/af-corp/taskmind/internal/config"
	"github.com/af-corp/taskmind/internal/policy"
	"github.com/af-corp/taskmind/internal/types"
)

// recordingAuthorizer records every authorization request and optionally denies.
type recordingAuthorizer struct {
	deny  error
	calls []string
}

func (r *recordingAuthorizer) Authorize(ctx context.Context, uid, op, path string) error {
	r.calls = append(r.calls, op+" "+path)
	return r.deny
}

func identity(uid string) *auth.Identity { return &auth.Identity{UID: uid} }

func TestGateway_RoundTrip(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)

	id, err := g.CreateTask(ctx, identity("alice"), types.Task{"x": int64(1)})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if len(id) != autoIDLength {
		t.Errorf("expected %d-char id, got %q", autoIDLength, id)
	}

	tasks, err := g.ListTasks(ctx, identity("alice"))
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	want := types.Task{"id": id, "x": int64(1)}
	if !reflect.DeepEqual(tasks[0], want) {
		t.Errorf("task = %v, want %v", tasks[0], want)
	}
}

func TestGateway_TasksAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)

	aliceID, err := g.CreateTask(ctx, identity("alice"), types.Task{"title": "alice's"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.CreateTask(ctx, identity("bob"), types.Task{"title": "bob's"}); err != nil {
		t.Fatal(err)
	}

	bobTasks, err := g.ListTasks(ctx, identity("bob"))
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range bobTasks {
		if task["id"] == aliceID {
			t.Error("alice's task is visible in bob's listing")
		}
	}
	if len(bobTasks) != 1 {
		t.Errorf("expected bob to see 1 task, got %d", len(bobTasks))
	}

	// Bob cannot update alice's task: under his own subtree it does not exist.
	err = g.UpdateTask(ctx, identity("bob"), aliceID, types.Task{"title": "hijacked"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating another user's task, got %v", err)
	}

	aliceTasks, _ := g.ListTasks(ctx, identity("alice"))
	if aliceTasks[0]["title"] != "alice's" {
		t.Errorf("alice's task was modified: %v", aliceTasks[0])
	}
}

func TestGateway_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)

	id, err := g.CreateTask(ctx, identity("alice"), types.Task{"a": int64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.UpdateTask(ctx, identity("alice"), id, types.Task{"b": int64(2)}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if err := g.UpdateTask(ctx, identity("alice"), id, types.Task{"c": int64(3)}); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	tasks, _ := g.ListTasks(ctx, identity("alice"))
	want := types.Task{"id": id, "a": int64(1), "b": int64(2), "c": int64(3)}
	if !reflect.DeepEqual(tasks[0], want) {
		t.Errorf("task = %v, want %v", tasks[0], want)
	}
}

func TestGateway_UpdateMissingTask(t *testing.T) {
	g := NewGateway(NewMemoryStore(), nil)

	err := g.UpdateTask(context.Background(), identity("alice"), "doesNotExist", types.Task{"a": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGateway_UpdateRejectsBadInput(t *testing.T) {
	store := NewMemoryStore()
	store.UpdateErr = errors.New("store must not be called")
	g := NewGateway(store, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		taskID string
		fields types.Task
		want   error
	}{
		{"empty id", "", types.Task{"a": 1}, ErrInvalidTaskID},
		{"nested path id", "x/sub/y", types.Task{"a": 1}, ErrInvalidTaskID},
		{"dot-dot id", "..", types.Task{"a": 1}, ErrInvalidTaskID},
		{"nil updates", "abc", nil, ErrEmptyUpdate},
		{"empty updates", "abc", types.Task{}, ErrEmptyUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.UpdateTask(ctx, identity("alice"), tt.taskID, tt.fields)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGateway_ListEmptyIsNonNil(t *testing.T) {
	tasks, err := NewGateway(NewMemoryStore(), nil).ListTasks(context.Background(), identity("nobody"))
	if err != nil {
		t.Fatal(err)
	}
	if tasks == nil {
		t.Error("expected empty non-nil slice")
	}
}

func TestGateway_StoredIDFieldWins(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)

	if _, err := g.CreateTask(ctx, identity("alice"), types.Task{"id": "client-side"}); err != nil {
		t.Fatal(err)
	}
	tasks, _ := g.ListTasks(ctx, identity("alice"))
	if tasks[0]["id"] != "client-side" {
		t.Errorf("expected stored id field to override, got %v", tasks[0]["id"])
	}
}

func TestGateway_CreateNilBodyStoresEmptyTask(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)

	id, err := g.CreateTask(ctx, identity("alice"), nil)
	if err != nil {
		t.Fatal(err)
	}
	tasks, _ := g.ListTasks(ctx, identity("alice"))
	if !reflect.DeepEqual(tasks[0], types.Task{"id": id}) {
		t.Errorf("unexpected task %v", tasks[0])
	}
}

func TestGateway_RequiresIdentity(t *testing.T) {
	store := NewMemoryStore()
	store.AddErr = errors.New("store must not be called")
	store.ListErr = store.AddErr
	g := NewGateway(store, nil)
	ctx := context.Background()

	if _, err := g.CreateTask(ctx, nil, types.Task{}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("CreateTask: expected ErrNoIdentity, got %v", err)
	}
	if _, err := g.ListTasks(ctx, &auth.Identity{}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("ListTasks: expected ErrNoIdentity, got %v", err)
	}
	if err := g.UpdateTask(ctx, nil, "abc", types.Task{"a": 1}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("UpdateTask: expected ErrNoIdentity, got %v", err)
	}
}

func TestGateway_AuthorizerSeesScopedPaths(t *testing.T) {
	ctx := context.Background()
	authz := &recordingAuthorizer{}
	g := NewGateway(NewMemoryStore(), authz)

	id, err := g.CreateTask(ctx, identity("alice"), types.Task{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.ListTasks(ctx, identity("alice")); err != nil {
		t.Fatal(err)
	}
	if err := g.UpdateTask(ctx, identity("alice"), id, types.Task{"b": 2}); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"create users/alice/tasks",
		"list users/alice/tasks",
		"update users/alice/tasks/" + id,
	}
	if !reflect.DeepEqual(authz.calls, want) {
		t.Errorf("authorizer calls = %v, want %v", authz.calls, want)
	}
}

func TestGateway_AuthorizerDenialSkipsStore(t *testing.T) {
	store := NewMemoryStore()
	store.AddErr = errors.New("store must not be called")
	g := NewGateway(store, &recordingAuthorizer{deny: errors.New("nope")})

	_, err := g.CreateTask(context.Background(), identity("alice"), types.Task{})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestGateway_WithDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	evaluator := policy.NewEvaluator(func() config.PolicyConfig {
		return config.PolicyConfig{Enabled: true, EvaluationTimeout: time.Second}
	})
	if err := evaluator.Load(); err != nil {
		t.Fatalf("load policy: %v", err)
	}
	g := NewGateway(NewMemoryStore(), evaluator)

	id, err := g.CreateTask(ctx, identity("alice"), types.Task{"a": int64(1)})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := g.UpdateTask(ctx, identity("alice"), id, types.Task{"b": int64(2)}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	tasks, err := g.ListTasks(ctx, identity("alice"))
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0]["b"] != int64(2) {
		t.Errorf("unexpected tasks %v", tasks)
	}
}

func TestGateway_StoreErrorsAreWrapped(t *testing.T) {
	cause := errors.New("unavailable")
	store := NewMemoryStore()
	store.ListErr = cause
	g := NewGateway(store, nil)

	_, err := g.ListTasks(context.Background(), identity("alice"))
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
