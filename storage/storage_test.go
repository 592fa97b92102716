package storage

import (
	"context"
	"os"
	"testing"

	"github.com/bxcodec/faker/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/zond/wizmud/structs"
)

// testStorage creates a temporary storage for testing.
func testStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "wizmud-test-*")
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(context.Background(), dir)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})
	return s, dir
}

func createTestAccount(t *testing.T, s *Storage, name string) (*structs.User, *structs.Player) {
	t.Helper()
	user := &structs.User{Name: name, PasswordHash: "hash"}
	player, err := s.CreateAccount(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	return user, player
}

func TestCreateAccount(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()

	_, first := createTestAccount(t, s, "Alice")
	if !first.Superuser {
		t.Errorf("first player should be superuser")
	}
	user, second := createTestAccount(t, s, "bob")
	if second.Superuser {
		t.Errorf("second player should not be superuser")
	}
	if _, err := s.CreateAccount(ctx, &structs.User{Name: "BOB", PasswordHash: "x"}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("got %v, want ErrNameTaken", err)
	}
	if _, err := s.CreateAccount(ctx, &structs.User{Name: "not valid", PasswordHash: "x"}); err == nil {
		t.Errorf("expected invalid name to fail")
	}

	loaded, err := s.LoadUser(ctx, "BOB")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Id != user.Id || loaded.Created().IsZero() {
		t.Errorf("got %+v, want id %v with creation time", loaded, user.Id)
	}

	character, err := s.LoadObject(ctx, second.Character)
	if err != nil {
		t.Fatal(err)
	}
	if !character.IsCharacter() || character.Player != second.Id || character.Key != "bob" {
		t.Errorf("unexpected character %+v", character)
	}
	limbo, err := s.LoadObject(ctx, character.Location)
	if err != nil {
		t.Fatal(err)
	}
	if limbo.Key != LimboName || !limbo.IsRoom() {
		t.Errorf("character should start in Limbo, got %+v", limbo)
	}
}

func TestFindPlayers(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	createTestAccount(t, s, "bob")
	createTestAccount(t, s, "bobby")
	createTestAccount(t, s, "carol")

	for _, tc := range []struct {
		query string
		want  []string
	}{
		{"bob", []string{"bob"}},
		{"BOBBY", []string{"bobby"}},
		{"bo", []string{"bob", "bobby"}},
		{"b%", nil},
		{"dave", nil},
		{"", nil},
	} {
		players, err := s.FindPlayers(ctx, tc.query)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, p := range players {
			got = append(got, p.Name)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("FindPlayers(%q) mismatch (-want +got):\n%s", tc.query, diff)
		}
	}
}

func TestDeletePlayer(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	createTestAccount(t, s, "root")
	user, player := createTestAccount(t, s, "bob")

	if err := s.DeletePlayer(ctx, player, true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadUserByID(ctx, user.Id); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
	if _, err := s.LoadPlayer(ctx, player.Id); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
	if _, err := s.LoadObject(ctx, player.Character); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("character should be deleted, got %v", err)
	}
	if err := s.DeletePlayer(ctx, player, false); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("deleting twice: got %v, want ErrNotExist", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	user, player := createTestAccount(t, s, "bob")

	if err := s.DeleteUser(ctx, user.Id); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadPlayer(ctx, player.Id); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
	character, err := s.LoadObject(ctx, player.Character)
	if err != nil {
		t.Fatal(err)
	}
	if character.Player != 0 {
		t.Errorf("orphaned character still controlled by %v", character.Player)
	}
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	// Force the pool to open a new connection for every statement.
	s.db.SetMaxIdleConns(0)
	for i := 0; i < 3; i++ {
		enabled := 0
		if err := s.db.GetContext(ctx, &enabled, "PRAGMA foreign_keys"); err != nil {
			t.Fatal(err)
		}
		if enabled != 1 {
			t.Fatalf("foreign_keys = %d on connection %d, want 1", enabled, i)
		}
	}

	user, player := createTestAccount(t, s, "bob")
	if err := s.DeleteUser(ctx, user.Id); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadPlayer(ctx, player.Id); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestPermissionsPersist(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	_, player := createTestAccount(t, s, "bob")

	player.Permissions.Add("fly")
	if err := s.SetPlayerPermissions(ctx, player); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.LoadPlayer(ctx, player.Id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(structs.Permissions{"Players", "fly"}, loaded.Permissions); diff != "" {
		t.Errorf("permissions mismatch (-want +got):\n%s", diff)
	}

	object := &structs.Object{Key: faker.Word(), Kind: structs.KindThing, Location: 1}
	if err := s.CreateObject(ctx, object); err != nil {
		t.Fatal(err)
	}
	object.Permissions.Add("glow")
	if err := s.SetObjectPermissions(ctx, object); err != nil {
		t.Fatal(err)
	}
	loadedObject, err := s.LoadObject(ctx, object.Id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(object, loadedObject); diff != "" {
		t.Errorf("object mismatch (-want +got):\n%s", diff)
	}
}

func TestPuppet(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	_, player := createTestAccount(t, s, "bob")
	oldCharacter := player.Character

	golem := &structs.Object{Key: "golem", Kind: structs.KindCharacter, Location: 1}
	if err := s.CreateObject(ctx, golem); err != nil {
		t.Fatal(err)
	}
	if err := s.Puppet(ctx, player, golem); err != nil {
		t.Fatal(err)
	}
	old, err := s.LoadObject(ctx, oldCharacter)
	if err != nil {
		t.Fatal(err)
	}
	if old.Player != 0 {
		t.Errorf("old character still controlled by %v", old.Player)
	}
	loaded, err := s.LoadPlayer(ctx, player.Id)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Character != golem.Id {
		t.Errorf("player controls %v, want %v", loaded.Character, golem.Id)
	}

	rock := &structs.Object{Key: "rock", Kind: structs.KindThing, Location: 1}
	if err := s.CreateObject(ctx, rock); err != nil {
		t.Fatal(err)
	}
	if err := s.Puppet(ctx, player, rock); err == nil {
		t.Errorf("expected error puppeting a thing")
	}
}

func TestContentsAndFindObjects(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()
	hall := &structs.Object{Key: "Hall", Kind: structs.KindRoom}
	if err := s.CreateObject(ctx, hall); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"red ball", "blue ball"} {
		if err := s.CreateObject(ctx, &structs.Object{Key: name, Kind: structs.KindThing, Location: hall.Id}); err != nil {
			t.Fatal(err)
		}
	}
	contents, err := s.Contents(ctx, hall.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 2 {
		t.Errorf("got %d contents, want 2", len(contents))
	}
	found, err := s.FindObjects(ctx, "RED")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Key != "red ball" {
		t.Errorf("unexpected match %+v", found)
	}
	if err := s.CreateObject(ctx, &structs.Object{Key: "x", Kind: "bogus"}); err == nil {
		t.Errorf("expected invalid kind to fail")
	}
}

func TestGroups(t *testing.T) {
	s, _ := testStorage(t)
	ctx := context.Background()

	groups, err := s.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	if diff := cmp.Diff([]string{"Builders", "Immortals", "PlayerHelpers", "Players", "Wizards"}, keys); diff != "" {
		t.Errorf("seeded groups mismatch (-want +got):\n%s", diff)
	}

	member := &structs.Player{Permissions: structs.Permissions{"Builders"}}
	checker, err := s.Checker(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if checker.AllowedString(member, "fly") {
		t.Errorf("fly should not be granted yet")
	}
	if err := s.StoreGroup(ctx, &structs.PermissionGroup{Key: "Builders", Desc: "Flying builders", Permissions: structs.Permissions{"fly"}}); err != nil {
		t.Fatal(err)
	}
	if checker, err = s.Checker(ctx); err != nil {
		t.Fatal(err)
	}
	if !checker.AllowedString(member, "fly") {
		t.Errorf("group edit should be visible immediately")
	}
	if err := s.DeleteGroup(ctx, "Builders"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadGroup(ctx, "Builders"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	s, dir := testStorage(t)
	ctx := context.Background()
	if err := s.DeleteGroup(ctx, "Players"); err != nil {
		t.Fatal(err)
	}
	s.Close()
	reopened, err := New(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	groups, err := reopened.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 4 {
		t.Errorf("got %d groups, want 4", len(groups))
	}
	contents, err := reopened.Contents(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Errorf("got %d rooms, want exactly one Limbo", len(contents))
	}
}
