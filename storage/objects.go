package storage

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/zond/wizmud/structs"
)

const (
	objectColumns = "id, name, kind, location_id, player_id, permissions"
)

func insertObject(ctx context.Context, tx sqlx.ExtContext, object *structs.Object) error {
	if !object.Kind.Valid() {
		return invalidf("invalid object kind %q", object.Kind)
	}
	if object.Permissions == nil {
		object.Permissions = structs.Permissions{}
	}
	res, err := sqlx.NamedExecContext(ctx, tx, "INSERT INTO objects (name, kind, location_id, player_id, permissions) VALUES (:name, :kind, :location_id, :player_id, :permissions)", object)
	if err != nil {
		return storageErr(err)
	}
	if object.Id, err = res.LastInsertId(); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Storage) CreateObject(ctx context.Context, object *structs.Object) error {
	return insertObject(ctx, s.db, object)
}

func (s *Storage) LoadObject(ctx context.Context, id int64) (*structs.Object, error) {
	object := &structs.Object{}
	if err := s.db.GetContext(ctx, object, "SELECT "+objectColumns+" FROM objects WHERE id = ?", id); err != nil {
		return nil, storageErr(err)
	}
	return object, nil
}

// Contents returns the objects located in location.
func (s *Storage) Contents(ctx context.Context, location int64) ([]*structs.Object, error) {
	result := []*structs.Object{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+objectColumns+" FROM objects WHERE location_id = ? ORDER BY id", location); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

// FindObjects returns objects whose name equals name ignoring case, or if
// there are none, those whose name starts with it.
func (s *Storage) FindObjects(ctx context.Context, name string) ([]*structs.Object, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	result := []*structs.Object{}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+objectColumns+" FROM objects WHERE name = ? COLLATE NOCASE ORDER BY id", name); err != nil {
		return nil, storageErr(err)
	}
	if len(result) > 0 {
		return result, nil
	}
	if err := s.db.SelectContext(ctx, &result, "SELECT "+objectColumns+" FROM objects WHERE name LIKE ? ESCAPE '\\' ORDER BY id", likePrefix(name)); err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

func (s *Storage) SetObjectPermissions(ctx context.Context, object *structs.Object) error {
	res, err := s.db.ExecContext(ctx, "UPDATE objects SET permissions = ? WHERE id = ?", object.Permissions, object.Id)
	if err != nil {
		return storageErr(err)
	}
	return requireAffected(res)
}

func (s *Storage) MoveObject(ctx context.Context, object *structs.Object, location int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE objects SET location_id = ? WHERE id = ?", location, object.Id)
	if err != nil {
		return storageErr(err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	object.Location = location
	return nil
}

// Puppet moves control of player from its current character to target.
func (s *Storage) Puppet(ctx context.Context, player *structs.Player, target *structs.Object) error {
	if !target.IsCharacter() {
		return errors.Errorf("%s is not a character", target.Ref())
	}
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE objects SET player_id = 0 WHERE player_id = ?", player.Id); err != nil {
			return storageErr(err)
		}
		res, err := tx.ExecContext(ctx, "UPDATE objects SET player_id = ? WHERE id = ?", player.Id, target.Id)
		if err != nil {
			return storageErr(err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE players SET character_id = 0 WHERE character_id = ? AND id != ?", target.Id, player.Id); err != nil {
			return storageErr(err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE players SET character_id = ? WHERE id = ?", target.Id, player.Id); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	player.Character = target.Id
	target.Player = player.Id
	return nil
}
