// Package permissions holds the policies that decide whether one user may
// hijack another. The PERMISSION_CHECK setting selects one by identifier.
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	SuperusersOnly     = "hijack.permissions.superusers_only"
	SuperusersAndStaff = "hijack.permissions.superusers_and_staff"
)

// ErrUnknownPolicy is returned by Resolve for unregistered identifiers.
var ErrUnknownPolicy = errors.New("unknown permission policy")

// User is the subset of account state the policies inspect.
type User struct {
	ID          string `json:"id"`
	IsActive    bool   `json:"is_active"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Check reports whether hijacker may act as hijacked.
type Check func(hijacker, hijacked User) bool

// Registry maps policy identifiers to checks.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewRegistry returns a Registry holding the built-in policies.
func NewRegistry() *Registry {
	return &Registry{checks: map[string]Check{
		SuperusersOnly:     superusersOnly,
		SuperusersAndStaff: superusersAndStaff,
	}}
}

// Register adds or replaces the policy under id.
func (r *Registry) Register(id string, check Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[id] = check
}

// Resolve returns the policy registered under id. The returned Check
// refuses self-hijacks and inactive hijackers before consulting the policy.
func (r *Registry) Resolve(id string) (Check, error) {
	r.mu.RLock()
	check, ok := r.checks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, id)
	}

	return func(hijacker, hijacked User) bool {
		if hijacker.ID == hijacked.ID || !hijacker.IsActive {
			return false
		}
		return check(hijacker, hijacked)
	}, nil
}

// IDs lists the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.checks))
	for id := range r.checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func superusersOnly(hijacker, hijacked User) bool {
	return hijacker.IsSuperuser && hijacked.IsActive
}

func superusersAndStaff(hijacker, hijacked User) bool {
	if !hijacked.IsActive {
		return false
	}
	if hijacker.IsSuperuser {
		return true
	}
	// staff may only take over plain users
	return hijacker.IsStaff && !hijacked.IsStaff && !hijacked.IsSuperuser
}
