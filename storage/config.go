package storage

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/wizmud/structs"
)

const (
	aliasColumns  = "id, user_input, equiv_command"
	configColumns = "id, conf_key, conf_value"
	screenColumns = "id, name, text, is_active"

	aliasCacheKey = "aliases"
)

// CommandAliases returns all aliases ordered by user input. The result is
// shared with the cache and must not be modified.
func (s *Storage) CommandAliases(ctx context.Context) ([]structs.CommandAlias, error) {
	if aliases, found := s.aliasCache.Get(aliasCacheKey); found {
		return aliases, nil
	}
	result := []structs.CommandAlias{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+aliasColumns+" FROM command_aliases ORDER BY user_input, id"); err != nil {
		return nil, storageErr(err)
	}
	s.aliasCache.Set(aliasCacheKey, result, 0)
	return result, nil
}

// CommandAlias returns the first alias for input.
func (s *Storage) CommandAlias(ctx context.Context, input string) (*structs.CommandAlias, error) {
	aliases, err := s.CommandAliases(ctx)
	if err != nil {
		return nil, err
	}
	for _, alias := range aliases {
		if alias.UserInput == input {
			return &alias, nil
		}
	}
	return nil, storageErr(ErrNotFound)
}

func (s *Storage) CreateCommandAlias(ctx context.Context, alias *structs.CommandAlias) error {
	alias.UserInput = strings.TrimSpace(alias.UserInput)
	alias.EquivCommand = strings.TrimSpace(alias.EquivCommand)
	if alias.UserInput == "" || alias.EquivCommand == "" || strings.ContainsAny(alias.UserInput, " \t") {
		return invalidf("alias input must be a single word and the command non-empty")
	}
	defer s.aliasCache.Purge()
	res, err := s.db.NamedExecContext(ctx, "INSERT INTO command_aliases (user_input, equiv_command) VALUES (:user_input, :equiv_command)", alias)
	if err != nil {
		return storageErr(err)
	}
	if alias.Id, err = res.LastInsertId(); err != nil {
		return storageErr(err)
	}
	return nil
}

// DeleteCommandAliases removes every alias for input.
func (s *Storage) DeleteCommandAliases(ctx context.Context, input string) error {
	defer s.aliasCache.Purge()
	res, err := s.db.ExecContext(ctx, "DELETE FROM command_aliases WHERE user_input = ?", input)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) DeleteCommandAlias(ctx context.Context, id int64) error {
	defer s.aliasCache.Purge()
	res, err := s.db.ExecContext(ctx, "DELETE FROM command_aliases WHERE id = ?", id)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) ConfigValues(ctx context.Context) ([]structs.ConfigValue, error) {
	result := []structs.ConfigValue{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+configColumns+" FROM config_values ORDER BY conf_key, id"); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

// ConfigValue returns the first value stored for key.
func (s *Storage) ConfigValue(ctx context.Context, key string) (*structs.ConfigValue, error) {
	if value, found := s.configCache.Get(key); found {
		return &value, nil
	}
	value := structs.ConfigValue{}
	if err := s.db.GetContext(ctx, &value, "SELECT "+configColumns+" FROM config_values WHERE conf_key = ? ORDER BY id LIMIT 1", key); err != nil {
		return nil, storageErr(err)
	}
	s.configCache.Set(key, value, 0)
	return &value, nil
}

// ConfigString returns the value for key, or def if there is none.
func (s *Storage) ConfigString(ctx context.Context, key string, def string) (string, error) {
	value, err := s.ConfigValue(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	} else if err != nil {
		return "", err
	}
	return value.Value, nil
}

// SetConfigValue updates the first value for key, or inserts one.
func (s *Storage) SetConfigValue(ctx context.Context, key string, value string) (*structs.ConfigValue, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalidf("config key must not be empty")
	}
	defer s.configCache.Invalidate(key)
	result := &structs.ConfigValue{Key: key, Value: value}
	err := s.db.GetContext(ctx, &result.Id, "SELECT id FROM config_values WHERE conf_key = ? ORDER BY id LIMIT 1", key)
	switch {
	case err == nil:
		if _, err := s.db.ExecContext(ctx, "UPDATE config_values SET conf_value = ? WHERE id = ?", value, result.Id); err != nil {
			return nil, storageErr(err)
		}
	case errors.Is(storageErr(err), ErrNotFound):
		res, err := s.db.NamedExecContext(ctx, "INSERT INTO config_values (conf_key, conf_value) VALUES (:conf_key, :conf_value)", result)
		if err != nil {
			return nil, storageErr(err)
		}
		if result.Id, err = res.LastInsertId(); err != nil {
			return nil, storageErr(err)
		}
	default:
		return nil, storageErr(err)
	}
	return result, nil
}

// DeleteConfigValue removes every value for key.
func (s *Storage) DeleteConfigValue(ctx context.Context, key string) error {
	defer s.configCache.Invalidate(key)
	res, err := s.db.ExecContext(ctx, "DELETE FROM config_values WHERE conf_key = ?", key)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) ConnectScreens(ctx context.Context) ([]structs.ConnectScreen, error) {
	result := []structs.ConnectScreen{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+screenColumns+" FROM connect_screens ORDER BY id"); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

func (s *Storage) CreateConnectScreen(ctx context.Context, screen *structs.ConnectScreen) error {
	if strings.TrimSpace(screen.Name) == "" {
		return invalidf("connect screen name must not be empty")
	}
	res, err := s.db.NamedExecContext(ctx, "INSERT INTO connect_screens (name, text, is_active) VALUES (:name, :text, :is_active)", screen)
	if err != nil {
		return storageErr(err)
	}
	if screen.Id, err = res.LastInsertId(); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Storage) SetConnectScreenActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE connect_screens SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) DeleteConnectScreen(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM connect_screens WHERE id = ?", id)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

// RandomActiveConnectScreen picks one of the active screens uniformly.
func (s *Storage) RandomActiveConnectScreen(ctx context.Context) (*structs.ConnectScreen, error) {
	active := []structs.ConnectScreen{}
	if err := s.db.SelectContext(ctx, &active, "SELECT "+screenColumns+" FROM connect_screens WHERE is_active ORDER BY id"); err != nil {
		return nil, storageErr(err)
	}
	if len(active) == 0 {
		return nil, storageErr(ErrNotFound)
	}
	return &active[rand.IntN(len(active))], nil
}
