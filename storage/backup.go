package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/zond/wizmud/structs"
)

// Backup holds the configuration tables and the permission groups.
type Backup struct {
	Groups         []*structs.PermissionGroup `json:"groups" yaml:"groups"`
	CommandAliases []structs.CommandAlias     `json:"command_aliases" yaml:"command_aliases"`
	ConfigValues   []structs.ConfigValue      `json:"config_values" yaml:"config_values"`
	ConnectScreens []structs.ConnectScreen    `json:"connect_screens" yaml:"connect_screens"`
}

func (s *Storage) Backup(ctx context.Context) (*Backup, error) {
	result := &Backup{
		Groups:         []*structs.PermissionGroup{},
		CommandAliases: []structs.CommandAlias{},
		ConfigValues:   []structs.ConfigValue{},
		ConnectScreens: []structs.ConnectScreen{},
	}
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &result.Groups, "SELECT "+groupColumns+" FROM permission_groups ORDER BY group_key"); err != nil {
			return storageErr(err)
		}
		if err := tx.SelectContext(ctx, &result.CommandAliases, "SELECT "+aliasColumns+" FROM command_aliases ORDER BY user_input, id"); err != nil {
			return storageErr(err)
		}
		if err := tx.SelectContext(ctx, &result.ConfigValues, "SELECT "+configColumns+" FROM config_values ORDER BY conf_key, id"); err != nil {
			return storageErr(err)
		}
		if err := tx.SelectContext(ctx, &result.ConnectScreens, "SELECT "+screenColumns+" FROM connect_screens ORDER BY id"); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Restore replaces the configuration tables and permission groups with
// the contents of b. Ids are reassigned.
func (s *Storage) Restore(ctx context.Context, b *Backup) error {
	defer s.aliasCache.Purge()
	defer s.groupCache.Purge()
	defer s.configCache.Purge()
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"permission_groups", "command_aliases", "config_values", "connect_screens"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return storageErr(err)
			}
		}
		for _, g := range b.Groups {
			if g.Permissions == nil {
				g.Permissions = structs.Permissions{}
			}
			if _, err := tx.NamedExecContext(ctx, "INSERT INTO permission_groups (group_key, description, permissions) VALUES (:group_key, :description, :permissions)", g); err != nil {
				return storageErr(err)
			}
		}
		for _, a := range b.CommandAliases {
			if _, err := tx.NamedExecContext(ctx, "INSERT INTO command_aliases (user_input, equiv_command) VALUES (:user_input, :equiv_command)", a); err != nil {
				return storageErr(err)
			}
		}
		for _, v := range b.ConfigValues {
			if _, err := tx.NamedExecContext(ctx, "INSERT INTO config_values (conf_key, conf_value) VALUES (:conf_key, :conf_value)", v); err != nil {
				return storageErr(err)
			}
		}
		for _, c := range b.ConnectScreens {
			if _, err := tx.NamedExecContext(ctx, "INSERT INTO connect_screens (name, text, is_active) VALUES (:name, :text, :is_active)", c); err != nil {
				return storageErr(err)
			}
		}
		return nil
	})
}
