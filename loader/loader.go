// wizmud-loader backs up and restores the configuration tables and
// permission groups as JSON or YAML, chosen by the file extension.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/zond/wizmud/storage"
	"gopkg.in/yaml.v3"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func encode(path string, b *storage.Backup) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(b)
	}
	return json.MarshalIndent(b, "", "  ")
}

func decode(path string, data []byte) (*storage.Backup, error) {
	b := &storage.Backup{}
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, b)
	} else {
		err = json.Unmarshal(data, b)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return b, nil
}

func backup(ctx context.Context, store *storage.Storage, path string) error {
	b, err := store.Backup(ctx)
	if err != nil {
		return err
	}
	data, err := encode(path, b)
	if err != nil {
		return errors.Wrap(err, "encoding data")
	}
	return os.WriteFile(path, data, 0600)
}

func restore(ctx context.Context, store *storage.Storage, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b, err := decode(path, data)
	if err != nil {
		return err
	}
	if err := store.Restore(ctx, b); err != nil {
		return err
	}
	store.AuditLog(ctx, "RESTORE", storage.AuditConfigChange{
		Caller: storage.SystemRef(),
		Table:  "*",
		Key:    path,
	})
	return nil
}

func main() {
	home, _ := os.UserHomeDir()
	dir := pflag.String("dir", filepath.Join(home, ".wizmud"), "Where to save database and settings.")
	dataPath := pflag.String("data", "", "Path to the JSON or YAML backup file.")
	doRestore := pflag.Bool("restore", false, "XOR 'backup': Load data from the data path into the database.")
	doBackup := pflag.Bool("backup", false, "XOR 'restore': Write data from the database to the data path.")
	pflag.Parse()

	if *dataPath == "" || (*doRestore == *doBackup) {
		pflag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, *dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Close()

	if *doRestore {
		err = restore(ctx, store, *dataPath)
	} else {
		err = backup(ctx, store, *dataPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
