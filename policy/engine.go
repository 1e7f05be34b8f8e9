// Package policy evaluates admin authorization decisions with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine for admin actions.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego module.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.admin_policy.allow"),
		rego.Module("admin_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input describes one attempted admin action.
type Input struct {
	Role   string `json:"role"`
	Action string `json:"action"`
}

// Authorize reports whether the role may perform the action. Unknown roles
// and actions are denied by the policy's default rule.
func (e *Engine) Authorize(ctx context.Context, role, action string) (bool, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(Input{Role: role, Action: action}))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, nil
	}
	return allowed, nil
}

// DefaultPolicy is the shipped admin policy: super admins can do anything,
// admins everything except granting roles, moderators and support may only
// view users.
const DefaultPolicy = `
package admin_policy

default allow = false

allow {
	input.role == "super_admin"
}

allow {
	input.role == "admin"
	input.action != "grant_role"
}

allow {
	input.role == "moderator"
	input.action == "view_users"
}

allow {
	input.role == "support"
	input.action == "view_users"
}
`
