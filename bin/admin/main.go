// wizmud-admin is the operator tool for wizmud servers. Session commands go
// to a running server via its control socket, table commands go directly to
// the database.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/buildkite/shellwords"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/spf13/pflag"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
)

const usage = `Usage: %s [options] <command> [args...]

Server commands (via control socket):
  sessions                     List connected sessions
  wall <message>               Announce a message to every session
  boot <player> [reason]       Disconnect every session of a player

Database commands:
  aliases                      List command aliases
  alias-add <input> <command>  Add a command alias
  alias-del <id>               Delete a command alias
  config                       List config values
  config-set <key> <value>     Set a config value
  config-del <key>             Delete a config value
  screens                      List connect screens
  screen-add <name> <file>     Add an active connect screen from a file
  screen-active <id> <bool>    Activate or deactivate a connect screen
  screen-del <id>              Delete a connect screen

Options:
`

func main() {
	home, _ := os.UserHomeDir()
	dir := pflag.String("dir", filepath.Join(home, ".wizmud"), "Database and settings directory.")
	socket := pflag.String("socket", "", "Control socket path, defaults to control.sock in --dir.")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 1 {
		pflag.Usage()
		os.Exit(1)
	}
	if *socket == "" {
		*socket = filepath.Join(*dir, "control.sock")
	}

	var err error
	switch args[0] {
	case "sessions", "wall", "boot":
		err = control(os.Stdout, *socket, args)
	default:
		err = database(context.Background(), os.Stdout, *dir, args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// control sends one command to the control socket and prints the output.
func control(w io.Writer, socketPath string, args []string) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return errors.Wrapf(err, "connecting to control socket %s", socketPath)
	}
	defer conn.Close()

	words := []string{strings.ToUpper(args[0])}
	for _, arg := range args[1:] {
		words = append(words, shellwords.QuotePosix(arg))
	}
	if _, err := fmt.Fprintln(conn, strings.Join(words, " ")); err != nil {
		return errors.Wrap(err, "sending command")
	}
	response, err := io.ReadAll(conn)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	status, output, _ := strings.Cut(string(response), "\n")
	if msg, found := strings.CutPrefix(status, "ERROR: "); found {
		return errors.New(msg)
	}
	if status != "OK" {
		return errors.Errorf("unexpected response: %s", status)
	}
	fmt.Fprint(w, output)
	return nil
}

func need(args []string, n int) error {
	if len(args) != n+1 {
		return errors.Errorf("%s takes %d arguments", args[0], n)
	}
	return nil
}

func database(ctx context.Context, w io.Writer, dir string, args []string) error {
	store, err := storage.New(ctx, dir)
	if err != nil {
		return err
	}
	defer store.Close()

	switch args[0] {
	case "aliases":
		aliases, err := store.CommandAliases(ctx)
		if err != nil {
			return err
		}
		t := table.New("ID", "Input", "Command").WithWriter(w)
		for _, a := range aliases {
			t.AddRow(a.Id, a.UserInput, a.EquivCommand)
		}
		t.Print()
	case "alias-add":
		if err := need(args, 2); err != nil {
			return err
		}
		alias := &structs.CommandAlias{UserInput: args[1], EquivCommand: args[2]}
		if err := store.CreateCommandAlias(ctx, alias); err != nil {
			return err
		}
		store.AuditLog(ctx, "ALIAS_SET", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "command_aliases", Key: alias.UserInput, Value: alias.EquivCommand})
		fmt.Fprintf(w, "Created alias #%d.\n", alias.Id)
	case "alias-del":
		if err := need(args, 1); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid id")
		}
		if err := store.DeleteCommandAlias(ctx, id); err != nil {
			return err
		}
		store.AuditLog(ctx, "ALIAS_DELETE", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "command_aliases", Key: args[1]})
	case "config":
		values, err := store.ConfigValues(ctx)
		if err != nil {
			return err
		}
		t := table.New("Key", "Value").WithWriter(w)
		for _, v := range values {
			t.AddRow(v.Key, v.Value)
		}
		t.Print()
	case "config-set":
		if err := need(args, 2); err != nil {
			return err
		}
		if _, err := store.SetConfigValue(ctx, args[1], args[2]); err != nil {
			return err
		}
		store.AuditLog(ctx, "CONFIG_SET", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "config_values", Key: args[1], Value: args[2]})
	case "config-del":
		if err := need(args, 1); err != nil {
			return err
		}
		if err := store.DeleteConfigValue(ctx, args[1]); err != nil {
			return err
		}
		store.AuditLog(ctx, "CONFIG_DELETE", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "config_values", Key: args[1]})
	case "screens":
		screens, err := store.ConnectScreens(ctx)
		if err != nil {
			return err
		}
		t := table.New("ID", "Name", "Active", "Lines").WithWriter(w)
		for _, s := range screens {
			t.AddRow(s.Id, s.Name, s.IsActive, strings.Count(s.Text, "\n")+1)
		}
		t.Print()
	case "screen-add":
		if err := need(args, 2); err != nil {
			return err
		}
		text, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		screen := &structs.ConnectScreen{Name: args[1], Text: string(text), IsActive: true}
		if err := store.CreateConnectScreen(ctx, screen); err != nil {
			return err
		}
		store.AuditLog(ctx, "SCREEN_CREATE", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "connect_screens", Key: screen.Name})
		fmt.Fprintf(w, "Created connect screen #%d.\n", screen.Id)
	case "screen-active":
		if err := need(args, 2); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid id")
		}
		active, err := strconv.ParseBool(args[2])
		if err != nil {
			return errors.Wrap(err, "invalid bool")
		}
		if err := store.SetConnectScreenActive(ctx, id, active); err != nil {
			return err
		}
		store.AuditLog(ctx, "SCREEN_ACTIVE", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "connect_screens", Key: args[1], Value: args[2]})
	case "screen-del":
		if err := need(args, 1); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid id")
		}
		if err := store.DeleteConnectScreen(ctx, id); err != nil {
			return err
		}
		store.AuditLog(ctx, "SCREEN_DELETE", storage.AuditConfigChange{Caller: storage.SystemRef(), Table: "connect_screens", Key: args[1]})
	default:
		return errors.Errorf("unknown command %q", args[0])
	}
	return nil
}
