package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
)

func TestBackupRestoreFormats(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"backup.json", "backup.yaml", "backup.YML"} {
		t.Run(name, func(t *testing.T) {
			src, err := storage.New(ctx, t.TempDir())
			require.NoError(t, err)
			defer src.Close()
			require.NoError(t, src.CreateCommandAlias(ctx, &structs.CommandAlias{UserInput: "sh", EquivCommand: "@wall"}))
			_, err = src.SetConfigValue(ctx, "motd", "multi\nline: value")
			require.NoError(t, err)
			require.NoError(t, src.StoreGroup(ctx, &structs.PermissionGroup{Key: "Guards", Desc: "Keep watch.", Permissions: structs.Permissions{"cmd:boot"}}))

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, backup(ctx, src, path))

			dst, err := storage.New(ctx, t.TempDir())
			require.NoError(t, err)
			defer dst.Close()
			require.NoError(t, restore(ctx, dst, path))

			motd, err := dst.ConfigString(ctx, "motd", "")
			require.NoError(t, err)
			assert.Equal(t, "multi\nline: value", motd)
			alias, err := dst.CommandAlias(ctx, "sh")
			require.NoError(t, err)
			assert.Equal(t, "@wall", alias.EquivCommand)
			group, err := dst.LoadGroup(ctx, "Guards")
			require.NoError(t, err)
			assert.Equal(t, structs.Permissions{"cmd:boot"}, group.Permissions)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("x.json", []byte("{"))
	assert.Error(t, err)
	_, err = decode("x.yaml", []byte("groups: [unterminated"))
	assert.Error(t, err)
}
