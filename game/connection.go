package game

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/crypto"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
	"github.com/zond/wizmud/termio"
	"golang.org/x/term"
)

var (
	ErrOperationAborted = fmt.Errorf("operation aborted")
	errDisconnected     = fmt.Errorf("disconnected")
)

// Connection is an SSH session, and once logged in a Session in the registry.
type Connection struct {
	game *Game
	sess ssh.Session
	term *term.Terminal
	id   string
	ctx  context.Context

	// Set once during login, before the connection is registered.
	user   *structs.User
	player *structs.Player

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Port() int {
	if addr, ok := c.sess.RemoteAddr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

func (c *Connection) Name() string {
	if c.user == nil {
		return ""
	}
	return c.user.Name
}

func (c *Connection) PlayerID() int64 {
	if c.player == nil {
		return 0
	}
	return c.player.Id
}

func (c *Connection) Send(msg string) {
	fmt.Fprintln(c.term, msg)
}

func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.game.registry.Unregister(c)
		err = c.sess.Close()
	})
	return wizmud.WithStack(err)
}

func (c *Connection) remote() string {
	return c.sess.RemoteAddr().String()
}

func (c *Connection) Connect() error {
	c.closed = make(chan struct{})
	// Generated at connection start so all audit events, including failed logins, correlate.
	c.ctx = storage.SetSessionID(c.ctx, c.id)
	fmt.Fprintf(c.term, "%s\n\n", c.game.connectScreen(c.ctx))
	sel := func() error {
		return termio.Execute(c.term, map[string]func() error{
			"login user":  c.loginUser,
			"create user": c.createUser,
		})
	}
	var err error
	for err = sel(); errors.Is(err, ErrOperationAborted); err = sel() {
	}
	if err != nil {
		return wizmud.WithStack(err)
	}
	return c.Process()
}

// caller reloads the player and its character, so that permission and
// puppet changes made by others apply to the next command.
func (c *Connection) caller() (*Caller, error) {
	caller, err := c.game.LoadCaller(c.ctx, c, c.player.Id)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errDisconnected
	}
	return caller, err
}

func (c *Connection) Process() error {
	if c.player == nil {
		return errors.New("can't process without player")
	}
	c.game.registry.Register(c)
	defer c.game.registry.Unregister(c)
	defer c.game.storage.AuditLog(c.ctx, "SESSION_END", storage.AuditSessionEnd{
		User: storage.Ref(c.user.Id, c.user.Name),
	})

	c.game.log.Infow("player connected", "session", c.id, "player", c.player.Name, "remote", c.remote())
	initial, err := c.caller()
	if err != nil {
		return err
	}
	if err := c.game.Execute(c.ctx, initial, "look"); err != nil {
		return err
	}
	for {
		line, err := c.term.ReadLine()
		select {
		case <-c.closed:
			return errDisconnected
		default:
		}
		if err != nil {
			return wizmud.WithStack(err)
		}
		caller, err := c.caller()
		if err != nil {
			return err
		}
		if err := c.game.Execute(c.ctx, caller, line); err != nil {
			fmt.Fprintln(c.term, err)
			c.game.log.Errorw("executing command", "session", c.id, "line", line, "error", err, "stack", wizmud.StackTrace(err))
		}
	}
}

func (c *Connection) loginUser() error {
	fmt.Fprint(c.term, "** Login user **\n\n")
	for c.user == nil {
		fmt.Fprintln(c.term, "Enter username or [abort]:")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		if username == "abort" {
			return wizmud.WithStack(ErrOperationAborted)
		}

		// Only after failed attempts.
		if err := c.game.loginRateLimiter.waitIfNeeded(c.ctx, username, c.term); err != nil {
			return wizmud.WithStack(err)
		}

		fmt.Fprint(c.term, "Enter password or [abort]:\n")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			return wizmud.WithStack(ErrOperationAborted)
		}

		user, err := c.game.storage.LoadUser(c.ctx, username)
		if errors.Is(err, os.ErrNotExist) {
			c.game.loginRateLimiter.recordFailure(username)
			c.game.storage.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
				User:   storage.Ref(0, username),
				Remote: c.remote(),
			})
			fmt.Fprintln(c.term, "Invalid credentials!")
			continue
		} else if err != nil {
			return wizmud.WithStack(err)
		}

		if !crypto.VerifyPassword(password, user.PasswordHash) {
			c.game.loginRateLimiter.recordFailure(user.Name)
			c.game.storage.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
				User:   storage.Ref(user.Id, user.Name),
				Remote: c.remote(),
			})
			fmt.Fprintln(c.term, "Invalid credentials!")
			continue
		}
		c.game.loginRateLimiter.clearFailure(user.Name)
		if err := c.game.storage.UpdateLastLogin(c.ctx, user); err != nil {
			// Not worth failing the login over.
			c.game.log.Warnw("updating last login", "user", user.Name, "error", err)
		}
		player, err := c.game.storage.LoadPlayerByUser(c.ctx, user.Id)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(c.term, "That account has no player.")
			return wizmud.WithStack(ErrOperationAborted)
		} else if err != nil {
			return wizmud.WithStack(err)
		}
		c.user = user
		c.player = player
	}
	c.game.storage.AuditLog(c.ctx, "USER_LOGIN", storage.AuditUserLogin{
		User:   storage.Ref(c.user.Id, c.user.Name),
		Remote: c.remote(),
	})
	fmt.Fprintf(c.term, "Welcome back, %v!\n\n", c.user.Name)
	return nil
}

func (c *Connection) createUser() error {
	fmt.Fprint(c.term, "** Create user **\n\n")
	var user *structs.User
	for user == nil {
		fmt.Fprint(c.term, "Enter new username or [abort]:\n")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		if username == "abort" {
			return wizmud.WithStack(ErrOperationAborted)
		}
		if err := wizmud.ValidateName(username, "Username"); err != nil {
			fmt.Fprintln(c.term, err.Error())
			continue
		}
		if _, err = c.game.storage.LoadUser(c.ctx, username); errors.Is(err, os.ErrNotExist) {
			user = &structs.User{
				Name: username,
			}
		} else if err == nil {
			fmt.Fprintln(c.term, "Username already exists!")
		} else {
			return wizmud.WithStack(err)
		}
	}
	for user.PasswordHash == "" {
		fmt.Fprintln(c.term, "Enter new password:")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			fmt.Fprintln(c.term, "Password cannot be 'abort' (reserved keyword).")
			continue
		}
		fmt.Fprintln(c.term, "Repeat new password:")
		verification, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password != verification {
			fmt.Fprintln(c.term, "Passwords don't match!")
			continue
		}
		selection, err := termio.Select(c.term, fmt.Sprintf("Create user %q with provided password?", user.Name), []string{"y", "n", "abort"})
		if err != nil {
			return err
		}
		switch selection {
		case "abort":
			return wizmud.WithStack(ErrOperationAborted)
		case "y":
			if user.PasswordHash, user.DigestHA1, err = crypto.Credentials(user.Name, password); err != nil {
				return wizmud.WithStack(err)
			}
		}
	}
	user.SetLastLogin(time.Now())
	player, err := c.game.storage.CreateAccount(c.ctx, user)
	if errors.Is(err, storage.ErrNameTaken) {
		fmt.Fprintln(c.term, "Username already exists!")
		return wizmud.WithStack(ErrOperationAborted)
	} else if err != nil {
		return wizmud.WithStack(err)
	}
	c.user = user
	c.player = player
	c.game.storage.AuditLog(c.ctx, "USER_LOGIN", storage.AuditUserLogin{
		User:   storage.Ref(c.user.Id, c.user.Name),
		Remote: c.remote(),
	})
	if player.Superuser {
		fmt.Fprintln(c.term, "You are the first player, and have been made superuser.")
	}
	fmt.Fprintf(c.term, "Welcome %s!\n\n", c.user.Name)
	return nil
}
