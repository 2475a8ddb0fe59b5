// Package registry holds the built-in permission catalog and role presets
// that seed a fresh table.
package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Catalog struct {
	Groups      []string
	Permissions []domain.Permission
	Roles       []domain.Role
}

type permissionEntry struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

type roleEntry struct {
	Key         string   `yaml:"key"`
	Label       string   `yaml:"label"`
	Description string   `yaml:"description"`
	All         bool     `yaml:"all"`
	Permissions []string `yaml:"permissions"`
}

type catalogFile struct {
	// Kept as a node so groups stay in file order.
	Permissions yaml.Node   `yaml:"permissions"`
	Roles       []roleEntry `yaml:"roles"`
}

// Default returns the embedded catalog.
func Default() (Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(data []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if file.Permissions.Kind != yaml.MappingNode {
		return Catalog{}, fmt.Errorf("catalog permissions must be a mapping of groups")
	}

	var cat Catalog
	known := map[domain.PermissionKey]struct{}{}
	nodes := file.Permissions.Content
	for i := 0; i+1 < len(nodes); i += 2 {
		group := nodes[i].Value
		var entries []permissionEntry
		if err := nodes[i+1].Decode(&entries); err != nil {
			return Catalog{}, fmt.Errorf("group %s: %w", group, err)
		}
		cat.Groups = append(cat.Groups, group)
		for _, e := range entries {
			key := domain.PermissionKey(e.Key)
			if e.Key == "" || e.Label == "" {
				return Catalog{}, fmt.Errorf("group %s: permission needs key and label", group)
			}
			if _, dup := known[key]; dup {
				return Catalog{}, fmt.Errorf("duplicate permission %s", key)
			}
			known[key] = struct{}{}
			cat.Permissions = append(cat.Permissions, domain.Permission{
				Key:         key,
				Label:       e.Label,
				Group:       group,
				Description: e.Description,
			})
		}
	}

	seenRoles := map[domain.RoleKey]struct{}{}
	for _, r := range file.Roles {
		key := domain.RoleKey(r.Key)
		if r.Key == "" || r.Label == "" {
			return Catalog{}, fmt.Errorf("role needs key and label")
		}
		if _, dup := seenRoles[key]; dup {
			return Catalog{}, fmt.Errorf("duplicate role %s", key)
		}
		seenRoles[key] = struct{}{}

		role := domain.Role{Key: key, Label: r.Label, Description: r.Description}
		if r.All {
			for _, p := range cat.Permissions {
				role.Permissions = append(role.Permissions, p.Key)
			}
		} else {
			for _, p := range r.Permissions {
				role.Permissions = append(role.Permissions, domain.PermissionKey(p))
			}
			if missing := domain.UnknownKeys(role.Permissions, known); len(missing) > 0 {
				return Catalog{}, fmt.Errorf("role %s references unknown permissions %v", key, missing)
			}
		}
		cat.Roles = append(cat.Roles, role)
	}
	return cat, nil
}

func (c Catalog) Role(key domain.RoleKey) (domain.Role, bool) {
	for _, r := range c.Roles {
		if r.Key == key {
			return r, true
		}
	}
	return domain.Role{}, false
}
