package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/game"
	"github.com/zond/wizmud/lang"
	"go.uber.org/zap"
)

const controlTimeout = 30 * time.Second

func listenControl(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, wizmud.WithStack(err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, wizmud.WithStack(err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		l.Close()
		return nil, wizmud.WithStack(err)
	}
	return l, nil
}

// controller answers one command per connection on the control socket.
// Responses start with "OK" or "ERROR: <message>", followed by any output.
type controller struct {
	game *game.Game
	log  *zap.SugaredLogger
}

func (c *controller) serve(ctx context.Context, l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return wizmud.WithStack(err)
		}
		go c.handle(ctx, conn)
	}
}

func (c *controller) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(controlTimeout)); err != nil {
		c.log.Warnw("setting control deadline", "error", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		c.log.Warnw("reading control command", "error", err)
		return
	}
	if err := c.execute(ctx, conn, line); err != nil {
		fmt.Fprintf(conn, "ERROR: %v\n", err)
	}
}

func (c *controller) execute(ctx context.Context, w io.Writer, line string) error {
	parts, err := shellwords.SplitPosix(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	c.log.Infow("control command", "command", parts[0])
	switch strings.ToUpper(parts[0]) {
	case "SESSIONS":
		fmt.Fprintln(w, "OK")
		t := table.New("ID", "Name", "Port", "Player").WithWriter(w)
		for _, s := range c.game.Sessions() {
			t.AddRow(s.ID, s.Name, s.Port, s.PlayerID)
		}
		t.Print()
	case "WALL":
		if len(parts) < 2 {
			return errors.New("usage: WALL <message>")
		}
		c.game.Wall(strings.Join(parts[1:], " "))
		fmt.Fprintln(w, "OK")
	case "BOOT":
		if len(parts) < 2 {
			return errors.New("usage: BOOT <player> [reason]")
		}
		n, err := c.game.BootPlayer(ctx, parts[1], strings.Join(parts[2:], " "))
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Errorf("%s has no connected session", parts[1])
		}
		fmt.Fprintln(w, "OK")
		fmt.Fprintf(w, "Booted %s.\n", lang.Count(n, "session"))
	default:
		return errors.Errorf("unknown command %q", parts[0])
	}
	return nil
}
