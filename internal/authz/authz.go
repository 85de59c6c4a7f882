package authz

import (
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"leavedesk/internal/domain"
	"leavedesk/internal/shared/apperror"
)

// The role policy is fixed, not configured at runtime. Managers and admins
// decide requests; only admins may touch archival and deletion.
var policy = map[string][]string{
	domain.ActionApprove:    {domain.RoleManager, domain.RoleAdmin},
	domain.ActionDeny:       {domain.RoleManager, domain.RoleAdmin},
	domain.ActionArchive:    {domain.RoleAdmin},
	domain.ActionUnarchive:  {domain.RoleAdmin},
	domain.ActionSoftDelete: {domain.RoleAdmin},
	domain.ActionRestore:    {domain.RoleAdmin},
}

const modelText = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

//go:generate mockgen -source=authz.go -destination=mock/authz_mock.go -package=mock
type Gate interface {
	// Authorize reports whether a role may perform an action. An unknown
	// action is a programming error and fails the caller, never a silent
	// deny.
	Authorize(action, role string) (bool, error)
	// RequiredRoles lists the roles allowed to perform an action, for
	// audit context on denials.
	RequiredRoles(action string) []string
}

type gate struct {
	enforcer *casbin.Enforcer
}

func NewGate() (Gate, error) {
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for action, roles := range policy {
		for _, role := range roles {
			if _, err := enforcer.AddPolicy(role, action); err != nil {
				return nil, err
			}
		}
	}

	return &gate{enforcer: enforcer}, nil
}

func (g *gate) Authorize(action, role string) (bool, error) {
	if _, known := policy[action]; !known {
		return false, apperror.Wrap(
			fmt.Errorf("unknown action %q", action),
			apperror.CodeInternalError,
			"An unexpected error occurred",
			http.StatusInternalServerError,
		)
	}

	allowed, err := g.enforcer.Enforce(role, action)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeInternalError, "An unexpected error occurred", http.StatusInternalServerError)
	}
	return allowed, nil
}

func (g *gate) RequiredRoles(action string) []string {
	return policy[action]
}
