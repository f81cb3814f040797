package mocks

import (
	"strings"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockCasbinEnforcer implements the CasbinEnforcer interface for testing
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)
	SavePolicyFunc   func() error
	policies         [][]string
	saves            int
}

// Compile-time interface compliance verification
var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer creates a new MockCasbinEnforcer with default behaviors
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{
		policies: [][]string{
			{"role_admin", "/admin/*", "GET"},
			{"role_farmer", "/auth/me", "GET"},
			{"role_farmer", "/auth/logout", "POST"},
		},
	}
}

// AddPolicy adds a new policy rule
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}

	policy := toStrings(params)
	if len(policy) < 3 || m.indexOf(policy) >= 0 {
		return false, nil
	}
	m.policies = append(m.policies, policy)
	return true, nil
}

// RemovePolicy removes a policy rule
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}

	i := m.indexOf(toStrings(params))
	if i < 0 {
		return false, nil
	}
	m.policies = append(m.policies[:i], m.policies[i+1:]...)
	return true, nil
}

// Enforce checks if a request should be allowed
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}

	// Default behavior: exact subject and action, resource exact or trailing wildcard
	req := toStrings(rvals)
	if len(req) < 3 {
		return false, nil
	}
	for _, p := range m.policies {
		if p[0] != req[0] || p[2] != req[2] {
			continue
		}
		if p[1] == req[1] || (strings.HasSuffix(p[1], "*") && strings.HasPrefix(req[1], strings.TrimSuffix(p[1], "*"))) {
			return true, nil
		}
	}
	return false, nil
}

// GetPolicy returns all policies
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	// Return copy of internal policies
	result := make([][]string, len(m.policies))
	for i, policy := range m.policies {
		result[i] = append([]string(nil), policy...)
	}
	return result, nil
}

// SavePolicy saves all policies
func (m *MockCasbinEnforcer) SavePolicy() error {
	m.saves++
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc()
	}
	return nil
}

// Saves reports how many times SavePolicy was called (test helper)
func (m *MockCasbinEnforcer) Saves() int {
	return m.saves
}

// SetPolicies sets the internal policies (test helper)
func (m *MockCasbinEnforcer) SetPolicies(policies [][]string) {
	m.policies = make([][]string, len(policies))
	for i, policy := range policies {
		m.policies[i] = append([]string(nil), policy...)
	}
}

func (m *MockCasbinEnforcer) indexOf(target []string) int {
	for i, policy := range m.policies {
		if len(policy) != len(target) {
			continue
		}
		match := true
		for j := range policy {
			if policy[j] != target[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func toStrings(params []interface{}) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		if s, ok := p.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
