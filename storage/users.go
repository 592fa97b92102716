package storage

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/structs"
)

const (
	userColumns   = "id, name, password_hash, digest_ha1, created_at, last_login"
	playerColumns = "id, user_id, name, character_id, superuser, permissions"
)

var (
	ErrNameTaken = errors.New("name already in use")
)

// CreateAccount stores a new user together with its player and a character
// in Limbo. The first account ever created becomes superuser.
func (s *Storage) CreateAccount(ctx context.Context, user *structs.User) (*structs.Player, error) {
	if err := wizmud.ValidateName(user.Name, "user name"); err != nil {
		return nil, err
	}
	player := &structs.Player{
		Name:        user.Name,
		Permissions: structs.Permissions{"Players"},
	}
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		taken := 0
		if err := tx.GetContext(ctx, &taken, "SELECT COUNT(*) FROM users WHERE name = ? COLLATE NOCASE", user.Name); err != nil {
			return storageErr(err)
		}
		if taken > 0 {
			return errors.WithStack(ErrNameTaken)
		}
		players := 0
		if err := tx.GetContext(ctx, &players, "SELECT COUNT(*) FROM players"); err != nil {
			return storageErr(err)
		}
		player.Superuser = players == 0

		user.CreatedAt = time.Now().UnixNano()
		res, err := tx.NamedExecContext(ctx, "INSERT INTO users (name, password_hash, digest_ha1, created_at, last_login) VALUES (:name, :password_hash, :digest_ha1, :created_at, :last_login)", user)
		if err != nil {
			return storageErr(err)
		}
		if user.Id, err = res.LastInsertId(); err != nil {
			return storageErr(err)
		}

		limbo := int64(0)
		if err := tx.GetContext(ctx, &limbo, "SELECT id FROM objects WHERE kind = ? ORDER BY id LIMIT 1", structs.KindRoom); err != nil {
			return storageErr(err)
		}
		character := &structs.Object{
			Key:         user.Name,
			Kind:        structs.KindCharacter,
			Location:    limbo,
			Permissions: structs.Permissions{},
		}
		if err := insertObject(ctx, tx, character); err != nil {
			return err
		}

		player.User = user.Id
		player.Character = character.Id
		res, err = tx.NamedExecContext(ctx, "INSERT INTO players (user_id, name, character_id, superuser, permissions) VALUES (:user_id, :name, :character_id, :superuser, :permissions)", player)
		if err != nil {
			return storageErr(err)
		}
		if player.Id, err = res.LastInsertId(); err != nil {
			return storageErr(err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE objects SET player_id = ? WHERE id = ?", player.Id, character.Id); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.AuditLog(ctx, "USER_CREATE", AuditUserCreate{
		User: Ref(user.Id, user.Name),
	})
	return player, nil
}

// LoadUser finds a user by case-insensitive name.
func (s *Storage) LoadUser(ctx context.Context, name string) (*structs.User, error) {
	user := &structs.User{}
	if err := s.db.GetContext(ctx, user, "SELECT "+userColumns+" FROM users WHERE name = ? COLLATE NOCASE", name); err != nil {
		return nil, storageErr(err)
	}
	return user, nil
}

func (s *Storage) LoadUserByID(ctx context.Context, id int64) (*structs.User, error) {
	user := &structs.User{}
	if err := s.db.GetContext(ctx, user, "SELECT "+userColumns+" FROM users WHERE id = ?", id); err != nil {
		return nil, storageErr(err)
	}
	return user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]structs.User, error) {
	result := []structs.User{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+userColumns+" FROM users ORDER BY name"); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

// SetPassword replaces the credentials of the user.
func (s *Storage) SetPassword(ctx context.Context, userID int64, passwordHash string, digestHA1 string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ?, digest_ha1 = ? WHERE id = ?", passwordHash, digestHA1, userID)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) UpdateLastLogin(ctx context.Context, user *structs.User) error {
	user.SetLastLogin(time.Now())
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", user.LastLoginAt, user.Id)
	return storageErr(err)
}

// DeleteUser removes the credential record. Its player, if any, goes with it.
func (s *Storage) DeleteUser(ctx context.Context, userID int64) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE objects SET player_id = 0 WHERE player_id IN (SELECT id FROM players WHERE user_id = ?)", userID); err != nil {
			return storageErr(err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID)
		if err != nil {
			return storageErr(err)
		}
		return requireAffected(res)
	})
}

func (s *Storage) LoadPlayer(ctx context.Context, id int64) (*structs.Player, error) {
	player := &structs.Player{}
	if err := s.db.GetContext(ctx, player, "SELECT "+playerColumns+" FROM players WHERE id = ?", id); err != nil {
		return nil, storageErr(err)
	}
	return player, nil
}

func (s *Storage) LoadPlayerByUser(ctx context.Context, userID int64) (*structs.Player, error) {
	player := &structs.Player{}
	if err := s.db.GetContext(ctx, player, "SELECT "+playerColumns+" FROM players WHERE user_id = ?", userID); err != nil {
		return nil, storageErr(err)
	}
	return player, nil
}

// FindPlayers returns the players whose name equals name, ignoring case, or
// if there are none, the players whose name starts with it.
func (s *Storage) FindPlayers(ctx context.Context, name string) ([]*structs.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	result := []*structs.Player{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+playerColumns+" FROM players WHERE name = ? COLLATE NOCASE ORDER BY id", name); err != nil {
		return nil, storageErr(err)
	}
	if len(result) > 0 {
		return result, nil
	}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+playerColumns+" FROM players WHERE name LIKE ? ESCAPE '\\' ORDER BY id", likePrefix(name)); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*structs.Player, error) {
	result := []*structs.Player{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+playerColumns+" FROM players ORDER BY name"); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

func (s *Storage) SetPlayerPermissions(ctx context.Context, player *structs.Player) error {
	res, err := s.db.ExecContext(ctx, "UPDATE players SET permissions = ? WHERE id = ?", player.Permissions, player.Id)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) SetSuperuser(ctx context.Context, playerID int64, superuser bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE players SET superuser = ? WHERE id = ?", superuser, playerID)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

// DeletePlayer removes the player and its credential record, and the
// character it controls when deleteCharacter is set.
func (s *Storage) DeletePlayer(ctx context.Context, player *structs.Player, deleteCharacter bool) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		if deleteCharacter && player.Character != 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM objects WHERE id = ?", player.Character); err != nil {
				return storageErr(err)
			}
		}
		if _, err := tx.ExecContext(ctx, "UPDATE objects SET player_id = 0 WHERE player_id = ?", player.Id); err != nil {
			return storageErr(err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM players WHERE id = ?", player.Id)
		if err != nil {
			return storageErr(err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", player.User); err != nil {
			return storageErr(err)
		}
		return nil
	})
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if n == 0 {
		return storageErr(ErrNotFound)
	}
	return nil
}

func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s) + "%"
}
