package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/af-corp/taskmind/internal/config"
	"github.com/open-policy-agent/opa/v1/rego"
)

const query = "[data.taskmind.authz.allow, data.taskmind.authz.reason]"

// ErrDenied is returned by Authorize when the policy rejects an access.
var ErrDenied = errors.New("denied by policy")

// Input is the document sent to OPA for evaluation.
type Input struct {
	Caller    Caller `json:"caller"`
	Operation string `json:"operation"`
	Path      string `json:"path"`
}

type Caller struct {
	UID string `json:"uid"`
}

// Evaluator decides whether a caller may access a store path.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
}

// NewEvaluator creates a policy evaluator. Call Load() to compile policies.
func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Load compiles Rego modules from the bundle path, or the built-in policy when
// no bundle path is configured.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	modules := DefaultModules()
	if cfg.BundlePath != "" {
		loaded, err := LoadRegoFiles(cfg.BundlePath)
		if err != nil {
			return fmt.Errorf("load rego files: %w", err)
		}
		if len(loaded) == 0 {
			slog.Warn("no rego files found, using built-in policy", "path", cfg.BundlePath)
		} else {
			modules = loaded
		}
	}

	if err := e.LoadFromModules(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules))
	return nil
}

// LoadFromModules compiles policies from provided module sources.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	opts := []func(*rego.Rego){rego.Query(query)}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy against the given input.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		// No policies loaded, fail closed
		return false, "no policies loaded", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, "", fmt.Errorf("evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	// Result is [allow, reason]
	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}

	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)

	return allowed, reason, nil
}

// Authorize returns nil when uid may perform op on path.
func (e *Evaluator) Authorize(ctx context.Context, uid, op, path string) error {
	allowed, reason, err := e.Evaluate(ctx, Input{
		Caller:    Caller{UID: uid},
		Operation: op,
		Path:      path,
	})
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrDenied, reason)
	}
	return nil
}
