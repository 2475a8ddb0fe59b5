package application

import (
	"context"
	"errors"
	"time"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type AccessService struct {
	accessRepo ports.UserAccessRepository
	userRepo   ports.UserRepository
	registry   *RegistryService
}

func NewAccessService(accessRepo ports.UserAccessRepository, userRepo ports.UserRepository, registry *RegistryService) *AccessService {
	return &AccessService{accessRepo: accessRepo, userRepo: userRepo, registry: registry}
}

// Load fetches the access record and role catalog. A missing record yields
// a nil access without error.
func (s *AccessService) Load(ctx context.Context, userID string) (*domain.UserAccess, []domain.Role, error) {
	if userID == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	record, err := s.accessRepo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	roles, err := s.registry.ListRoles(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &record, roles, nil
}

func (s *AccessService) Effective(ctx context.Context, userID string) (domain.EffectiveAccess, error) {
	access, roles, err := s.Load(ctx, userID)
	if err != nil {
		return domain.EffectiveAccess{}, err
	}
	return domain.ComputeEffectivePermissions(access, roles), nil
}

func (s *AccessService) RequireAll(ctx context.Context, userID string, keys ...domain.PermissionKey) error {
	eff, err := s.Effective(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !eff.Permissions.Has(k) {
			return &domain.ForbiddenError{Required: keys}
		}
	}
	return nil
}

func (s *AccessService) RequireAny(ctx context.Context, userID string, keys ...domain.PermissionKey) error {
	eff, err := s.Effective(ctx, userID)
	if err != nil {
		return err
	}
	if !eff.Permissions.HasAny(keys...) {
		return &domain.ForbiddenError{Required: keys}
	}
	return nil
}

func (s *AccessService) RequirePage(ctx context.Context, userID string, permission domain.PermissionKey, page int, section string) error {
	access, roles, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}
	if !domain.ComputeEffectivePermissions(access, roles).Permissions.Has(permission) {
		return &domain.ForbiddenError{Required: []domain.PermissionKey{permission}}
	}
	if !domain.CanAccessPage(access, roles, permission, page, section) {
		return &domain.PageAccessDeniedError{Permission: permission, Page: page, Section: section}
	}
	return nil
}

type UserAccessView struct {
	User   domain.User        `json:"user"`
	Access *domain.UserAccess `json:"access"`
}

func (s *AccessService) GetUserAccess(ctx context.Context, userID string) (UserAccessView, error) {
	if userID == "" {
		return UserAccessView{}, domain.ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return UserAccessView{}, err
	}
	view := UserAccessView{User: user}
	record, err := s.accessRepo.Get(ctx, userID)
	switch {
	case err == nil:
		view.Access = &record
	case errors.Is(err, domain.ErrNotFound):
	default:
		return UserAccessView{}, err
	}
	return view, nil
}

// AccessPatch carries the fields of an access update. Nil fields are left
// untouched.
type AccessPatch struct {
	Roles                  *[]domain.RoleKey
	PermsExtra             *[]domain.PermissionKey
	PermsDenied            *[]domain.PermissionKey
	HomeRoute              *string
	PageAccess             *[]domain.PageAccessRule
	DepartmentRestrictions *[]string
	SectionRestrictions    *[]string
}

// UpsertUserAccess creates the record on first edit. Every supplied role and
// permission key must exist in the registry.
func (s *AccessService) UpsertUserAccess(ctx context.Context, userID string, patch AccessPatch) (domain.UserAccess, error) {
	if userID == "" {
		return domain.UserAccess{}, domain.ErrInvalidInput
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return domain.UserAccess{}, err
	}
	if err := s.checkKeys(ctx, patch); err != nil {
		return domain.UserAccess{}, err
	}
	if err := checkPageRules(patch.PageAccess); err != nil {
		return domain.UserAccess{}, err
	}

	access := domain.UserAccess{UserID: userID}
	current, err := s.accessRepo.Get(ctx, userID)
	switch {
	case err == nil:
		access = current
	case errors.Is(err, domain.ErrNotFound):
	default:
		return domain.UserAccess{}, err
	}

	if patch.Roles != nil {
		access.Roles = *patch.Roles
	}
	if patch.PermsExtra != nil {
		access.PermsExtra = *patch.PermsExtra
	}
	if patch.PermsDenied != nil {
		access.PermsDenied = *patch.PermsDenied
	}
	if patch.HomeRoute != nil {
		if *patch.HomeRoute == "" {
			access.HomeRoute = nil
		} else {
			route := *patch.HomeRoute
			access.HomeRoute = &route
		}
	}
	if patch.PageAccess != nil {
		access.PageAccess = *patch.PageAccess
	}
	if patch.DepartmentRestrictions != nil {
		access.DepartmentRestrictions = *patch.DepartmentRestrictions
	}
	if patch.SectionRestrictions != nil {
		access.SectionRestrictions = *patch.SectionRestrictions
	}
	access.UpdatedAt = time.Now().UTC()
	if err := s.accessRepo.Put(ctx, access); err != nil {
		return domain.UserAccess{}, err
	}
	return access, nil
}

func (s *AccessService) checkKeys(ctx context.Context, patch AccessPatch) error {
	unknown := &domain.UnknownKeysError{}
	if patch.Roles != nil && len(*patch.Roles) > 0 {
		known, err := s.registry.knownRoles(ctx)
		if err != nil {
			return err
		}
		unknown.InvalidRoles = domain.UnknownKeys(*patch.Roles, known)
	}
	var perms []domain.PermissionKey
	if patch.PermsExtra != nil {
		perms = append(perms, *patch.PermsExtra...)
	}
	if patch.PermsDenied != nil {
		perms = append(perms, *patch.PermsDenied...)
	}
	if patch.PageAccess != nil {
		for _, rule := range *patch.PageAccess {
			perms = append(perms, rule.Permission)
		}
	}
	if len(perms) > 0 {
		known, err := s.registry.knownPermissions(ctx)
		if err != nil {
			return err
		}
		unknown.InvalidPerms = domain.UnknownKeys(perms, known)
	}
	if len(unknown.InvalidRoles) > 0 || len(unknown.InvalidPerms) > 0 {
		return unknown
	}
	return nil
}

func checkPageRules(rules *[]domain.PageAccessRule) error {
	if rules == nil {
		return nil
	}
	verr := &domain.ValidationError{}
	seen := map[domain.PermissionKey]bool{}
	for _, rule := range *rules {
		if seen[rule.Permission] {
			verr.Add("pageAccess", "duplicate", "more than one rule for "+string(rule.Permission))
		}
		seen[rule.Permission] = true
		if rule.MaxPages != nil && *rule.MaxPages < 1 {
			verr.Add("pageAccess", "invalid_value", "maxPages must be at least 1")
		}
		for _, page := range rule.AllowedPages {
			if page < 1 {
				verr.Add("pageAccess", "invalid_value", "allowedPages must be positive")
				break
			}
		}
	}
	return verr.OrNil()
}

// PageRestriction returns the page rule for permission, or nil when the user
// has no record or no rule for it.
func (s *AccessService) PageRestriction(ctx context.Context, userID string, permission domain.PermissionKey) (*domain.PageAccessRule, error) {
	if userID == "" || permission == "" {
		return nil, domain.ErrInvalidInput
	}
	record, err := s.accessRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.PageRule(permission), nil
}
