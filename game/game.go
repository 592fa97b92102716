package game

import (
	"context"
	"fmt"
	"io"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/storage"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	defaultConnectScreen = "Welcome to wizmud!"
)

type Game struct {
	storage          *storage.Storage
	registry         *Registry
	log              *zap.SugaredLogger
	loginRateLimiter *loginRateLimiter
	commands         commands
}

// New creates a game. Background work stops when ctx is cancelled.
func New(ctx context.Context, s *storage.Storage, log *zap.SugaredLogger) *Game {
	g := &Game{
		storage:          s,
		registry:         NewRegistry(),
		log:              log,
		loginRateLimiter: newLoginRateLimiter(ctx),
	}
	g.commands = append(g.commands, g.adminCommands()...)
	g.commands = append(g.commands, g.configCommands()...)
	g.commands = append(g.commands, g.basicCommands()...)
	return g
}

func (g *Game) Registry() *Registry {
	return g.registry
}

func (g *Game) Storage() *storage.Storage {
	return g.storage
}

func (g *Game) HandleSession(sess ssh.Session) {
	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()
	c := &Connection{
		game: g,
		sess: sess,
		term: term.NewTerminal(sess, "> "),
		id:   wizmud.NextUniqueID(),
		ctx:  ctx,
	}
	if err := c.Connect(); err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, errDisconnected) {
			fmt.Fprintf(c.term, "InternalServerError: %v\n", err)
			g.log.Errorw("session failed", "session", c.id, "remote", sess.RemoteAddr().String(), "error", err, "stack", wizmud.StackTrace(err))
		}
	}
}

// connectScreen returns a random active connect screen, or a default one.
func (g *Game) connectScreen(ctx context.Context) string {
	screen, err := g.storage.RandomActiveConnectScreen(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.log.Warnw("loading connect screen", "error", err)
		}
		return defaultConnectScreen
	}
	return screen.Text
}
