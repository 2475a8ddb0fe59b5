package application

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type RegistryService struct {
	permRepo ports.PermissionRepository
	roleRepo ports.RoleRepository
}

func NewRegistryService(permRepo ports.PermissionRepository, roleRepo ports.RoleRepository) *RegistryService {
	return &RegistryService{permRepo: permRepo, roleRepo: roleRepo}
}

func (s *RegistryService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	perms, err := s.permRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(perms, func(a, b domain.Permission) int {
		return cmp.Or(cmp.Compare(a.Group, b.Group), cmp.Compare(a.Key, b.Key))
	})
	return perms, nil
}

// GroupedPermissions buckets the catalog by group, in catalog order.
func (s *RegistryService) GroupedPermissions(ctx context.Context) (map[string][]domain.Permission, error) {
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	grouped := map[string][]domain.Permission{}
	for _, p := range perms {
		group := p.Group
		if group == "" {
			group = "other"
		}
		grouped[group] = append(grouped[group], p)
	}
	return grouped, nil
}

func (s *RegistryService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roleRepo.List(ctx)
}

func (s *RegistryService) CreateRole(ctx context.Context, role domain.Role) error {
	if role.Key == "" || role.Label == "" {
		return domain.ErrInvalidInput
	}
	if err := s.checkPermissionKeys(ctx, role.Permissions); err != nil {
		return err
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now
	return s.roleRepo.Create(ctx, role)
}

func (s *RegistryService) UpdateRole(ctx context.Context, role domain.Role) error {
	if role.Key == "" || role.Label == "" {
		return domain.ErrInvalidInput
	}
	if err := s.checkPermissionKeys(ctx, role.Permissions); err != nil {
		return err
	}
	role.UpdatedAt = time.Now().UTC()
	return s.roleRepo.Update(ctx, role)
}

// Seed upserts the catalog. Existing roles are overwritten with the preset.
func (s *RegistryService) Seed(ctx context.Context, perms []domain.Permission, roles []domain.Role) error {
	now := time.Now().UTC()
	for _, p := range perms {
		p.CreatedAt = now
		if err := s.permRepo.Put(ctx, p); err != nil {
			return err
		}
	}
	for _, r := range roles {
		r.CreatedAt = now
		r.UpdatedAt = now
		if err := s.roleRepo.Put(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *RegistryService) knownPermissions(ctx context.Context) (map[domain.PermissionKey]struct{}, error) {
	perms, err := s.permRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[domain.PermissionKey]struct{}, len(perms))
	for _, p := range perms {
		known[p.Key] = struct{}{}
	}
	return known, nil
}

func (s *RegistryService) knownRoles(ctx context.Context) (map[domain.RoleKey]struct{}, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[domain.RoleKey]struct{}, len(roles))
	for _, r := range roles {
		known[r.Key] = struct{}{}
	}
	return known, nil
}

func (s *RegistryService) checkPermissionKeys(ctx context.Context, keys []domain.PermissionKey) error {
	if len(keys) == 0 {
		return nil
	}
	known, err := s.knownPermissions(ctx)
	if err != nil {
		return err
	}
	if missing := domain.UnknownKeys(keys, known); len(missing) > 0 {
		return &domain.UnknownKeysError{InvalidPerms: missing}
	}
	return nil
}
