package game

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jmoiron/sqlx"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
	"go.uber.org/zap"
)

type fakeSession struct {
	id       string
	port     int
	name     string
	playerID int64
	registry *Registry

	mu           sync.Mutex
	messages     []string
	disconnected bool
}

func (f *fakeSession) ID() string      { return f.id }
func (f *fakeSession) Port() int       { return f.port }
func (f *fakeSession) Name() string    { return f.name }
func (f *fakeSession) PlayerID() int64 { return f.playerID }

func (f *fakeSession) Send(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeSession) Disconnect() error {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
	if f.registry != nil {
		f.registry.Unregister(f)
	}
	return nil
}

// take returns and clears the received messages.
func (f *fakeSession) take() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := f.messages
	f.messages = nil
	return result
}

func (f *fakeSession) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeSession) received(msg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func (f *fakeSession) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type testGame struct {
	*Game
	t        *testing.T
	ctx      context.Context
	dir      string
	nextPort int
}

func newTestGame(t *testing.T) *testGame {
	t.Helper()
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	s, err := storage.New(ctx, dir)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return &testGame{
		Game:     New(ctx, s, zap.NewNop().Sugar()),
		t:        t,
		ctx:      ctx,
		dir:      dir,
		nextPort: 40000,
	}
}

type testPlayer struct {
	tg      *testGame
	player  *structs.Player
	session *fakeSession
}

// account creates a player with the given permissions. The first account
// of a game is superuser.
func (tg *testGame) account(name string, permissions ...string) *testPlayer {
	tg.t.Helper()
	player, err := tg.storage.CreateAccount(tg.ctx, &structs.User{Name: name, PasswordHash: "hash"})
	if err != nil {
		tg.t.Fatal(err)
	}
	if len(permissions) > 0 {
		player.Permissions = permissions
		if err := tg.storage.SetPlayerPermissions(tg.ctx, player); err != nil {
			tg.t.Fatal(err)
		}
	}
	tg.nextPort++
	return &testPlayer{
		tg:     tg,
		player: player,
		session: &fakeSession{
			id:       name,
			port:     tg.nextPort,
			name:     name,
			playerID: player.Id,
			registry: tg.registry,
		},
	}
}

// connect registers the player's session.
func (p *testPlayer) connect() *testPlayer {
	p.tg.registry.Register(p.session)
	return p
}

func (p *testPlayer) caller() *Caller {
	p.tg.t.Helper()
	caller, err := p.tg.LoadCaller(p.tg.ctx, p.session, p.player.Id)
	if err != nil {
		p.tg.t.Fatal(err)
	}
	return caller
}

// exec runs line and returns what the player was told.
func (p *testPlayer) exec(line string) []string {
	p.tg.t.Helper()
	p.session.take()
	if err := p.tg.Execute(p.tg.ctx, p.caller(), line); err != nil {
		p.tg.t.Fatalf("Execute(%q): %v", line, err)
	}
	return p.session.take()
}

// expect runs line and fails unless the player was told exactly want.
func (p *testPlayer) expect(line string, want ...string) {
	p.tg.t.Helper()
	if diff := cmp.Diff(want, p.exec(line), cmpopts.EquateEmpty()); diff != "" {
		p.tg.t.Errorf("%s: %q mismatch (-want +got):\n%s", p.player.Name, line, diff)
	}
}

// expectReceived fails unless the player was sent exactly want since the
// last check.
func (p *testPlayer) expectReceived(want ...string) {
	p.tg.t.Helper()
	if diff := cmp.Diff(want, p.session.take(), cmpopts.EquateEmpty()); diff != "" {
		p.tg.t.Errorf("%s received mismatch (-want +got):\n%s", p.player.Name, diff)
	}
}

// expectContains runs line and fails unless the last message contains each
// of want.
func (p *testPlayer) expectContains(line string, want ...string) {
	p.tg.t.Helper()
	got := p.execLast(line)
	for _, w := range want {
		if !strings.Contains(got, w) {
			p.tg.t.Errorf("%s: %q = %q, want it to contain %q", p.player.Name, line, got, w)
		}
	}
}

func (p *testPlayer) execLast(line string) string {
	p.tg.t.Helper()
	got := p.exec(line)
	if len(got) == 0 {
		return ""
	}
	return got[len(got)-1]
}

func (p *testPlayer) reload() *structs.Player {
	p.tg.t.Helper()
	player, err := p.tg.storage.LoadPlayer(p.tg.ctx, p.player.Id)
	if err != nil {
		p.tg.t.Fatal(err)
	}
	p.player = player
	return player
}

func (tg *testGame) object(key string, kind structs.Kind, location int64) *structs.Object {
	tg.t.Helper()
	o := &structs.Object{Key: key, Kind: kind, Location: location, Permissions: structs.Permissions{}}
	if err := tg.storage.CreateObject(tg.ctx, o); err != nil {
		tg.t.Fatal(err)
	}
	return o
}

// bareUser stores a credential record without a player, the way accounts
// created outside the game look.
func (tg *testGame) bareUser(name string) int64 {
	tg.t.Helper()
	db, err := sqlx.Open("sqlite", storage.DSN(tg.dir))
	if err != nil {
		tg.t.Fatal(err)
	}
	defer db.Close()
	res, err := db.ExecContext(tg.ctx, "INSERT INTO users (name, password_hash, created_at) VALUES (?, 'hash', 0)", name)
	if err != nil {
		tg.t.Fatal(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		tg.t.Fatal(err)
	}
	return id
}

func contains(msgs []string, want string) bool {
	for _, m := range msgs {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}
