package tracking

import "sync"

// Permissions are the two runtime grants the engine depends on.
type Permissions struct {
	Steps    bool `json:"steps"`
	Location bool `json:"location"`
}

// PermissionChecker is consulted on every Start.
type PermissionChecker interface {
	Permissions() Permissions
}

// PermissionSwitch is a PermissionChecker whose grants can be changed at
// runtime, e.g. from the HTTP API.
type PermissionSwitch struct {
	mu sync.Mutex
	p  Permissions
}

// NewPermissionSwitch returns a switch with the given initial grants.
func NewPermissionSwitch(p Permissions) *PermissionSwitch {
	return &PermissionSwitch{p: p}
}

// GrantAll returns a switch with both permissions granted.
func GrantAll() *PermissionSwitch {
	return NewPermissionSwitch(Permissions{Steps: true, Location: true})
}

func (s *PermissionSwitch) Permissions() Permissions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// Set replaces the grants. A running session is not affected until the
// next Start.
func (s *PermissionSwitch) Set(p Permissions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
}
