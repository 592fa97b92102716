package storage

import (
	"context"
	"database/sql"
	"fmt"
	_ "embed"
	"os"
	"path/filepath"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/perms"
	"github.com/zond/wizmud/structs"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is os.ErrNotExist, returned when a record doesn't exist.
var ErrNotFound = os.ErrNotExist

const (
	cacheTTL = time.Minute
	// LimboName is the room new characters start in.
	LimboName = "Limbo"
)

type Storage struct {
	db    *sqlx.DB
	audit *AuditLogger

	aliasCache  cache.Cache[string, []structs.CommandAlias]
	groupCache  cache.Cache[string, []*structs.PermissionGroup]
	configCache cache.Cache[string, structs.ConfigValue]
}

const dbFile = "wizmud.sqlite"

// DSN returns the data source name for the database in dir. The pragmas
// apply to every connection the pool opens.
func DSN(dir string) string {
	return filepath.Join(dir, dbFile) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// New opens (creating if necessary) the database and audit log in dir.
func New(ctx context.Context, dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, storageErr(err)
	}
	db, err := sqlx.Open("sqlite", DSN(dir))
	if err != nil {
		return nil, storageErr(err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, storageErr(err)
	}
	s := &Storage{
		db:          db,
		audit:       NewAuditLogger(filepath.Join(dir, "audit.log")),
		aliasCache:  cache.NewCache[string, []structs.CommandAlias]().WithTTL(cacheTTL),
		groupCache:  cache.NewCache[string, []*structs.PermissionGroup]().WithTTL(cacheTTL),
		configCache: cache.NewCache[string, structs.ConfigValue]().WithTTL(cacheTTL).WithMaxKeys(1024),
	}
	if err := s.seed(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) seed(ctx context.Context) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		groups := 0
		if err := tx.GetContext(ctx, &groups, "SELECT COUNT(*) FROM permission_groups"); err != nil {
			return storageErr(err)
		}
		if groups == 0 {
			for _, g := range perms.DefaultGroups() {
				if _, err := tx.NamedExecContext(ctx, "INSERT INTO permission_groups (group_key, description, permissions) VALUES (:group_key, :description, :permissions)", g); err != nil {
					return storageErr(err)
				}
			}
		}
		rooms := 0
		if err := tx.GetContext(ctx, &rooms, "SELECT COUNT(*) FROM objects WHERE kind = ?", structs.KindRoom); err != nil {
			return storageErr(err)
		}
		if rooms == 0 {
			if _, err := tx.ExecContext(ctx, "INSERT INTO objects (name, kind) VALUES (?, ?)", LimboName, structs.KindRoom); err != nil {
				return storageErr(err)
			}
		}
		return nil
	})
}

func (s *Storage) Close() error {
	if err := s.audit.Close(); err != nil {
		s.db.Close()
		return err
	}
	return storageErr(s.db.Close())
}

// AuditLog records a security relevant event.
func (s *Storage) AuditLog(ctx context.Context, event string, data AuditData) {
	s.audit.Log(ctx, event, data)
}

func (s *Storage) tx(ctx context.Context, f func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	if err := f(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Wrap(err, rerr.Error())
		}
		return err
	}
	return storageErr(tx.Commit())
}

// storageErr adds a stack to err, translating missing rows to os.ErrNotExist.
func storageErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return wizmud.WithStack(os.ErrNotExist)
	}
	return wizmud.WithStack(err)
}

// ValidationError is returned for records that can't be stored as given.
type ValidationError string

func (v ValidationError) Error() string {
	return string(v)
}

func invalidf(format string, args ...any) error {
	return errors.WithStack(ValidationError(fmt.Sprintf(format, args...)))
}
