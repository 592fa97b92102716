package storage

import (
	"context"

	"github.com/zond/wizmud"
	"github.com/zond/wizmud/perms"
	"github.com/zond/wizmud/structs"
)

const (
	groupColumns  = "group_key, description, permissions"
	groupCacheKey = "groups"
)

// ListGroups returns all permission groups ordered by key. The result is
// shared with the cache and must not be modified.
func (s *Storage) ListGroups(ctx context.Context) ([]*structs.PermissionGroup, error) {
	if groups, found := s.groupCache.Get(groupCacheKey); found {
		return groups, nil
	}
	result := []*structs.PermissionGroup{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+groupColumns+" FROM permission_groups ORDER BY group_key"); err != nil {
		return nil, storageErr(err)
	}
	s.groupCache.Set(groupCacheKey, result, 0)
	return result, nil
}

// Checker returns a permission checker over the current groups.
func (s *Storage) Checker(ctx context.Context) (*perms.Checker, error) {
	groups, err := s.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return perms.New(groups), nil
}

func (s *Storage) LoadGroup(ctx context.Context, key string) (*structs.PermissionGroup, error) {
	group := &structs.PermissionGroup{}
	if err := s.db.GetContext(ctx, group, "SELECT "+groupColumns+" FROM permission_groups WHERE group_key = ?", key); err != nil {
		return nil, storageErr(err)
	}
	return group, nil
}

// StoreGroup inserts or replaces the group with the same key.
func (s *Storage) StoreGroup(ctx context.Context, group *structs.PermissionGroup) error {
	if err := wizmud.ValidateName(group.Key, "group key"); err != nil {
		return err
	}
	if group.Permissions == nil {
		group.Permissions = structs.Permissions{}
	}
	defer s.groupCache.Purge()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO permission_groups (group_key, description, permissions) VALUES (:group_key, :description, :permissions)
ON CONFLICT(group_key) DO UPDATE SET description = excluded.description, permissions = excluded.permissions`, group)
	return storageErr(err)
}

func (s *Storage) DeleteGroup(ctx context.Context, key string) error {
	defer s.groupCache.Purge()
	res, err := s.db.ExecContext(ctx, "DELETE FROM permission_groups WHERE group_key = ?", key)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}
