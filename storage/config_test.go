package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/zond/wizmud/structs"
)

func TestCommandAliases(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()

	for _, a := range [][2]string{{"w", "@wall"}, {"b", "@boot"}, {"e", "@emit"}} {
		if err := s.CreateCommandAlias(ctx, &structs.CommandAlias{UserInput: a[0], EquivCommand: a[1]}); err != nil {
			t.Fatal(err)
		}
	}
	aliases, err := s.CommandAliases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var inputs []string
	for _, a := range aliases {
		inputs = append(inputs, a.UserInput)
	}
	if diff := cmp.Diff([]string{"b", "e", "w"}, inputs); diff != "" {
		t.Errorf("aliases not ordered by input (-want +got):\n%s", diff)
	}

	alias, err := s.CommandAlias(ctx, "w")
	if err != nil {
		t.Fatal(err)
	}
	if alias.EquivCommand != "@wall" {
		t.Errorf("got %q, want @wall", alias.EquivCommand)
	}

	if err := s.DeleteCommandAliases(ctx, "w"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CommandAlias(ctx, "w"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("deleted alias still visible: %v", err)
	}
	if err := s.DeleteCommandAliases(ctx, "w"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
	var verr ValidationError
	if err := s.CreateCommandAlias(ctx, &structs.CommandAlias{UserInput: "two words", EquivCommand: "x"}); !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestConfigValues(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()

	if got, err := s.ConfigString(ctx, "motd", "default"); err != nil || got != "default" {
		t.Errorf("ConfigString = %q, %v; want default", got, err)
	}
	first, err := s.SetConfigValue(ctx, "motd", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got, err := s.ConfigString(ctx, "motd", "default"); err != nil || got != "hello" {
		t.Errorf("ConfigString = %q, %v; want hello", got, err)
	}
	second, err := s.SetConfigValue(ctx, "motd", "goodbye")
	if err != nil {
		t.Fatal(err)
	}
	if first.Id != second.Id {
		t.Errorf("setting an existing key should update in place, got ids %v and %v", first.Id, second.Id)
	}
	value, err := s.ConfigValue(ctx, "motd")
	if err != nil {
		t.Fatal(err)
	}
	if value.Value != "goodbye" {
		t.Errorf("cached value not invalidated, got %q", value.Value)
	}
	values, err := s.ConfigValues(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 {
		t.Errorf("got %d values, want 1", len(values))
	}
	if err := s.DeleteConfigValue(ctx, "motd"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ConfigValue(ctx, "motd"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestConnectScreens(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()

	if _, err := s.RandomActiveConnectScreen(ctx); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist with no screens", err)
	}
	active := &structs.ConnectScreen{Name: "classic", Text: "Welcome!", IsActive: true}
	inactive := &structs.ConnectScreen{Name: "old", Text: "Go away.", IsActive: false}
	for _, screen := range []*structs.ConnectScreen{active, inactive} {
		if err := s.CreateConnectScreen(ctx, screen); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 20; i++ {
		screen, err := s.RandomActiveConnectScreen(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(active, screen); diff != "" {
			t.Fatalf("inactive screen picked (-want +got):\n%s", diff)
		}
	}
	if err := s.SetConnectScreenActive(ctx, active.Id, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RandomActiveConnectScreen(ctx); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist with no active screens", err)
	}
	if err := s.DeleteConnectScreen(ctx, inactive.Id); err != nil {
		t.Fatal(err)
	}
	screens, err := s.ConnectScreens(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(screens) != 1 || screens[0].Id != active.Id {
		t.Errorf("unexpected screens %+v", screens)
	}
}
