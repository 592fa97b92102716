package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildkite/shellwords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCommands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		buf := &bytes.Buffer{}
		require.NoError(t, database(ctx, buf, dir, args))
		return buf.String()
	}

	assert.Equal(t, "Created alias #1.\n", run("alias-add", "sh", "@wall"))
	assert.Contains(t, run("aliases"), "@wall")
	run("alias-del", "1")
	assert.NotContains(t, run("aliases"), "@wall")

	run("config-set", "motd", "hello world")
	assert.Contains(t, run("config"), "hello world")
	run("config-del", "motd")
	assert.NotContains(t, run("config"), "hello world")

	screenFile := filepath.Join(t.TempDir(), "screen.txt")
	require.NoError(t, os.WriteFile(screenFile, []byte("Welcome\nto wizmud"), 0600))
	assert.Equal(t, "Created connect screen #1.\n", run("screen-add", "default", screenFile))
	run("screen-active", "1", "false")
	assert.Contains(t, run("screens"), "false")
	run("screen-del", "1")

	assert.Error(t, database(ctx, &bytes.Buffer{}, dir, []string{"alias-add", "only-input"}))
	assert.Error(t, database(ctx, &bytes.Buffer{}, dir, []string{"alias-del", "x"}))
	assert.Error(t, database(ctx, &bytes.Buffer{}, dir, []string{"config-del", "missing"}))
	assert.Error(t, database(ctx, &bytes.Buffer{}, dir, []string{"frobnicate"}))
}

func TestControl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.sock")
	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer l.Close()

	received := make(chan string, 2)
	go func() {
		for _, response := range []string{"OK\nBooted 1 session.\n", "ERROR: bob has no connected session\n"} {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(conn).ReadString('\n')
			received <- line
			fmt.Fprint(conn, response)
			conn.Close()
		}
	}()

	buf := &bytes.Buffer{}
	require.NoError(t, control(buf, path, []string{"boot", "bob", "too much spam"}))
	words, err := shellwords.SplitPosix(strings.TrimSpace(<-received))
	require.NoError(t, err)
	assert.Equal(t, []string{"BOOT", "bob", "too much spam"}, words)
	assert.Equal(t, "Booted 1 session.\n", buf.String())

	err = control(&bytes.Buffer{}, path, []string{"boot", "bob"})
	<-received
	assert.EqualError(t, err, "bob has no connected session")
}
