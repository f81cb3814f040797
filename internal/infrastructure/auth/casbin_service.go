package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// DefaultModel is used when no model file is configured; config/rbac_model.conf holds the same text
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// RoleSubject converts an application role into its Casbin subject
func RoleSubject(role domain.Role) string {
	return "role_" + string(role)
}

// defaultPolicies are seeded when the policy table is empty
var defaultPolicies = [][]string{
	{"role_farmer", "/auth/me", "(GET|PATCH)"},
	{"role_farmer", "/auth/logout", "POST"},
	{"role_farmer", "/conversations", "(GET|POST)"},
	{"role_farmer", "/conversations/:id/messages", "(GET|POST)"},
	{"role_farmer", "/conversations/:id/read", "POST"},
	{"role_farmer", "/notifications", "GET"},
	{"role_farmer", "/notifications/:id/read", "POST"},
	{"role_farmer", "/realtime/v1/websocket", "GET"},
	{"role_admin", "/admin/*", "(GET|POST|PUT|PATCH|DELETE)"},
}

// defaultGroupings make admin a vet and vet a farmer
var defaultGroupings = [][]string{
	{"role_vet", "role_farmer"},
	{"role_admin", "role_vet"},
}

type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService builds an enforcer backed by the gorm adapter.
// An empty modelPath selects DefaultModel.
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}

	var m model.Model
	if modelPath != "" {
		m, err = model.NewModelFromFile(modelPath)
	} else {
		m, err = model.NewModelFromString(DefaultModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	E, err := casbin.NewEnforcer(m, adp)
	if err != nil {
		return nil, err
	}
	if err := E.LoadPolicy(); err != nil {
		return nil, err
	}
	return &CasbinService{E}, nil
}

// SeedDefaults installs the default policies and role hierarchy when none exist.
// It returns true when anything was written.
func (s *CasbinService) SeedDefaults() (bool, error) {
	existing, err := s.E.GetPolicy()
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	if _, err := s.E.AddPolicies(defaultPolicies); err != nil {
		return false, fmt.Errorf("failed to seed policies: %w", err)
	}
	if _, err := s.E.AddGroupingPolicies(defaultGroupings); err != nil {
		return false, fmt.Errorf("failed to seed role hierarchy: %w", err)
	}
	return true, nil
}
