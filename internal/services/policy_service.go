package services

import (
	"context"

	"github.com/casbin/casbin/v2"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// CasbinEnforcerWrapper wraps the real Casbin enforcer to implement our interface
type CasbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcerWrapper creates a wrapper for the real Casbin enforcer
func NewCasbinEnforcerWrapper(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &CasbinEnforcerWrapper{enforcer: enforcer}
}

func (w *CasbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *CasbinEnforcerWrapper) RemovePolicy(params ...interface{}) (bool, error) {
	return w.enforcer.RemovePolicy(params...)
}

func (w *CasbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

func (w *CasbinEnforcerWrapper) GetPolicy() ([][]string, error) {
	return w.enforcer.GetPolicy()
}

func (w *CasbinEnforcerWrapper) SavePolicy() error {
	return w.enforcer.SavePolicy()
}

// PolicyServiceImpl implements domain.PolicyService using Casbin for rules and the
// profiles table for role assignment
type PolicyServiceImpl struct {
	enforcer    domain.CasbinEnforcer
	accountRepo domain.AccountRepository
	audit       domain.AuditLogger
}

// NewPolicyService creates a new policy service
func NewPolicyService(enforcer *casbin.Enforcer, accountRepo domain.AccountRepository, audit domain.AuditLogger) *PolicyServiceImpl {
	return NewPolicyServiceWithEnforcer(NewCasbinEnforcerWrapper(enforcer), accountRepo, audit)
}

// NewPolicyServiceWithEnforcer creates a new policy service with a CasbinEnforcer interface (for testing)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer, accountRepo domain.AccountRepository, audit domain.AuditLogger) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		enforcer:    enforcer,
		accountRepo: accountRepo,
		audit:       audit,
	}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	_, err := p.enforcer.AddPolicy(role, resource, action)
	if err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// RemovePolicy implements domain.PolicyService
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	_, err := p.enforcer.RemovePolicy(role, resource, action)
	if err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}

// SetProfileRole implements domain.PolicyService.
// Sessions already issued keep their role claim until they are refreshed.
func (p *PolicyServiceImpl) SetProfileRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	profile, err := p.accountRepo.SetRole(ctx, userID, role)
	if err != nil {
		p.audit.LogEvent(ctx, domain.NewAuditEvent(domain.RoleChangedEvent).
			WithUser(userID).
			WithMetadata("role", string(role)).
			WithError(err))
		return nil, err
	}

	p.audit.LogEvent(ctx, domain.NewAuditEvent(domain.RoleChangedEvent).
		WithUser(userID).
		WithMetadata("role", string(role)))
	return profile, nil
}
