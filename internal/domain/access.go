package domain

import (
	"slices"
	"time"
)

type PermissionKey string

type RoleKey string

// PageAccessRule narrows a permission to a subset of pages and sections.
type PageAccessRule struct {
	Permission      PermissionKey `json:"permission"`
	AllowedPages    []int         `json:"allowedPages,omitempty"`
	MaxPages        *int          `json:"maxPages,omitempty"`
	SectionsAllowed []string      `json:"sectionsAllowed,omitempty"`
}

type UserAccess struct {
	UserID                 string           `json:"userId"`
	Roles                  []RoleKey        `json:"roles"`
	PermsExtra             []PermissionKey  `json:"permsExtra"`
	PermsDenied            []PermissionKey  `json:"permsDenied"`
	HomeRoute              *string          `json:"homeRoute,omitempty"`
	PageAccess             []PageAccessRule `json:"pageAccess"`
	DepartmentRestrictions []string         `json:"departmentRestrictions"`
	SectionRestrictions    []string         `json:"sectionRestrictions"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// PageRule returns the page restriction configured for permission, if any.
func (a *UserAccess) PageRule(permission PermissionKey) *PageAccessRule {
	if a == nil {
		return nil
	}
	for i := range a.PageAccess {
		if a.PageAccess[i].Permission == permission {
			return &a.PageAccess[i]
		}
	}
	return nil
}

type PermissionSet map[PermissionKey]struct{}

func (s PermissionSet) Has(key PermissionKey) bool {
	_, ok := s[key]
	return ok
}

func (s PermissionSet) HasAny(keys ...PermissionKey) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// Sorted returns the keys in lexical order, for stable responses.
func (s PermissionSet) Sorted() []PermissionKey {
	out := make([]PermissionKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

type EffectiveAccess struct {
	Permissions PermissionSet
	Roles       []RoleKey
	HomeRoute   *string
}

// ComputeEffectivePermissions combines role grants and extra grants, then
// removes denials. Unknown role keys are ignored. A nil record grants nothing.
func ComputeEffectivePermissions(access *UserAccess, roles []Role) EffectiveAccess {
	if access == nil {
		return EffectiveAccess{Permissions: PermissionSet{}, Roles: []RoleKey{}}
	}
	byKey := make(map[RoleKey]Role, len(roles))
	for _, r := range roles {
		byKey[r.Key] = r
	}
	set := PermissionSet{}
	for _, rk := range access.Roles {
		role, ok := byKey[rk]
		if !ok {
			continue
		}
		for _, p := range role.Permissions {
			set[p] = struct{}{}
		}
	}
	for _, p := range access.PermsExtra {
		set[p] = struct{}{}
	}
	for _, p := range access.PermsDenied {
		delete(set, p)
	}
	assigned := access.Roles
	if assigned == nil {
		assigned = []RoleKey{}
	}
	return EffectiveAccess{Permissions: set, Roles: assigned, HomeRoute: access.HomeRoute}
}

const (
	RouteSupportTickets = "/support/tickets"
	RouteContentIdeas   = "/content/ideas"
	RouteOperations     = "/operations"
	RouteManagement     = "/management"
	RouteDashboard      = "/dashboard"
)

var homeRoutePriority = []struct {
	permission PermissionKey
	route      string
}{
	{PermSupportTickets, RouteSupportTickets},
	{PermContentIdeas, RouteContentIdeas},
	{PermOperationsView, RouteOperations},
	{PermManagementView, RouteManagement},
	{PermDashboardView, RouteDashboard},
}

// DefaultHomeRoute picks the landing route by fixed priority; the fallback
// is the dashboard.
func DefaultHomeRoute(set PermissionSet) string {
	for _, candidate := range homeRoutePriority {
		if set.Has(candidate.permission) {
			return candidate.route
		}
	}
	return RouteDashboard
}

// HomeRouteOrDefault prefers the explicit override on the access record.
func (e EffectiveAccess) HomeRouteOrDefault() string {
	if e.HomeRoute != nil && *e.HomeRoute != "" {
		return *e.HomeRoute
	}
	return DefaultHomeRoute(e.Permissions)
}

// CanAccessPage requires the base permission, then applies every configured
// page and section restriction of the matching rule.
func CanAccessPage(access *UserAccess, roles []Role, permission PermissionKey, page int, section string) bool {
	effective := ComputeEffectivePermissions(access, roles)
	if !effective.Permissions.Has(permission) {
		return false
	}
	rule := access.PageRule(permission)
	if rule == nil {
		return true
	}
	if len(rule.AllowedPages) > 0 && !slices.Contains(rule.AllowedPages, page) {
		return false
	}
	if rule.MaxPages != nil && page > *rule.MaxPages {
		return false
	}
	if section != "" && len(rule.SectionsAllowed) > 0 && !slices.Contains(rule.SectionsAllowed, section) {
		return false
	}
	return true
}

// ResourceScope locates a resource in the organisation. Empty fields are unknown.
type ResourceScope struct {
	DepartmentID string
	SectionID    string
}

// InScope applies department and section restrictions. A resource whose
// department or section is unknown is not restricted in that dimension.
func InScope(access *UserAccess, scope ResourceScope) bool {
	if access == nil {
		return false
	}
	if scope.DepartmentID != "" && len(access.DepartmentRestrictions) > 0 &&
		!slices.Contains(access.DepartmentRestrictions, scope.DepartmentID) {
		return false
	}
	if scope.SectionID != "" && len(access.SectionRestrictions) > 0 &&
		!slices.Contains(access.SectionRestrictions, scope.SectionID) {
		return false
	}
	return true
}
