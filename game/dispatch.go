package game

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/perms"
	"github.com/zond/wizmud/structs"
)

// Caller is whoever executes a command: a player, the character it
// controls if any, and the session the command arrived on if any.
type Caller struct {
	Session   Session
	Player    *structs.Player
	Character *structs.Object
}

// Name is what others see the caller as.
func (c *Caller) Name() string {
	if c.Character != nil {
		return c.Character.Key
	}
	return c.Player.Name
}

// Holder combines the permissions of the player and its character.
func (c *Caller) Holder() perms.Holder {
	if c.Character == nil {
		return c.Player
	}
	return perms.Combine(c.Player, perms.Set{Permissions: c.Character.Permissions})
}

func (c *Caller) location(ctx context.Context, g *Game) (*structs.Object, error) {
	if c.Character == nil || c.Character.Location == 0 {
		return nil, nil
	}
	loc, err := g.storage.LoadObject(ctx, c.Character.Location)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return loc, err
}

// LoadCaller loads the player and the character it controls.
func (g *Game) LoadCaller(ctx context.Context, sess Session, playerID int64) (*Caller, error) {
	player, err := g.storage.LoadPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	result := &Caller{
		Session: sess,
		Player:  player,
	}
	if player.Character != 0 {
		character, err := g.storage.LoadObject(ctx, player.Character)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, wizmud.WithStack(err)
		}
		result.Character = character
	}
	return result, nil
}

// Args is a parsed command line of the form
// verb[/switch[/switch...]] [lhs[,lhs...]] [= rhs[,rhs...]].
type Args struct {
	Verb     string
	Switches []string
	// Args is everything after the verb and switches, trimmed.
	Args    string
	Lhs     string
	Rhs     string
	HasRhs  bool
	LhsList []string
	RhsList []string
}

func ParseArgs(line string) *Args {
	line = strings.TrimSpace(line)
	a := &Args{}
	verbEnd := strings.IndexFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/'
	})
	if verbEnd == -1 {
		a.Verb = line
		return a
	}
	a.Verb = line[:verbEnd]
	rest := line[verbEnd:]
	if strings.HasPrefix(rest, "/") {
		switchEnd := strings.IndexFunc(rest, unicode.IsSpace)
		if switchEnd == -1 {
			switchEnd = len(rest)
		}
		for _, sw := range strings.Split(rest[:switchEnd], "/") {
			if sw = strings.ToLower(strings.TrimSpace(sw)); sw != "" {
				a.Switches = append(a.Switches, sw)
			}
		}
		rest = rest[switchEnd:]
	}
	a.Args = strings.TrimSpace(rest)
	a.Lhs = a.Args
	if lhs, rhs, found := strings.Cut(a.Args, "="); found {
		a.Lhs = strings.TrimSpace(lhs)
		a.Rhs = strings.TrimSpace(rhs)
		a.HasRhs = true
	}
	a.LhsList = splitList(a.Lhs)
	a.RhsList = splitList(a.Rhs)
	return a
}

func splitList(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (a *Args) Switch(name string) bool {
	for _, sw := range a.Switches {
		if sw == name {
			return true
		}
	}
	return false
}

// splitReason splits "target : reason" on the first colon.
func splitReason(s string) (string, string) {
	target, reason, _ := strings.Cut(s, ":")
	return strings.TrimSpace(target), strings.TrimSpace(reason)
}

// invocation is a single execution of a command.
type invocation struct {
	game    *Game
	ctx     context.Context
	caller  *Caller
	checker *perms.Checker
	args    *Args
}

// msg sends text to the caller.
func (i *invocation) msg(text string) {
	if i.caller.Session != nil {
		i.caller.Session.Send(text)
		return
	}
	i.game.registry.SendPlayer(i.caller.Player.Id, text)
}

func (i *invocation) msgf(format string, args ...any) {
	i.msg(fmt.Sprintf(format, args...))
}

// holder returns the permission holder of a target. Objects controlled by a
// superuser count as superusers.
func (i *invocation) holder(t *Target) (perms.Holder, error) {
	if t.Player != nil {
		return t.Player, nil
	}
	result := perms.Set{Permissions: t.Object.Permissions}
	if t.Object.Player != 0 {
		owner, err := i.game.storage.LoadPlayer(i.ctx, t.Object.Player)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, wizmud.WithStack(err)
		}
		if owner != nil {
			result.Superuser = owner.Superuser
		}
	}
	return result, nil
}

// allowed checks whether the caller may perform key on t.
func (i *invocation) allowed(t *Target, key string) (bool, error) {
	h, err := i.holder(t)
	if err != nil {
		return false, err
	}
	return i.checker.Allowed(i.caller.Holder(), h, key), nil
}

// send delivers text to whoever hears t: the sessions of its controlling
// player, or for a room every player in it.
func (i *invocation) send(t *Target, text string) error {
	recipients := map[int64]bool{}
	if p := t.ControllingPlayer(); p != 0 {
		recipients[p] = true
	}
	if t.Object != nil && t.Object.IsRoom() {
		contents, err := i.game.storage.Contents(i.ctx, t.Object.Id)
		if err != nil {
			return wizmud.WithStack(err)
		}
		for _, c := range contents {
			if c.Player != 0 {
				recipients[c.Player] = true
			}
		}
	}
	for p := range recipients {
		i.game.registry.SendPlayer(p, text)
	}
	return nil
}

type command struct {
	names map[string]bool
	// perm gates the command, empty for commands everyone may use.
	perm  string
	usage string
	f     func(*invocation) error
}

type commands []command

func (c commands) find(name string) (*command, bool) {
	for idx := range c {
		if c[idx].names[name] {
			return &c[idx], true
		}
	}
	return nil, false
}

func m(s ...string) map[string]bool {
	res := map[string]bool{}
	for _, p := range s {
		res[p] = true
	}
	return res
}

// resolveAlias rewrites the verb of line if a command alias matches it.
func (g *Game) resolveAlias(ctx context.Context, line string) (string, error) {
	a := ParseArgs(line)
	alias, err := g.storage.CommandAlias(ctx, a.Verb)
	if errors.Is(err, os.ErrNotExist) {
		return line, nil
	} else if err != nil {
		return "", wizmud.WithStack(err)
	}
	trimmed := strings.TrimSpace(line)
	return alias.EquivCommand + trimmed[len(a.Verb):], nil
}

// Execute runs one command line on behalf of caller. Command level failures
// are reported to the caller, errors are only returned for storage failures.
func (g *Game) Execute(ctx context.Context, caller *Caller, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	line, err := g.resolveAlias(ctx, line)
	if err != nil {
		return err
	}
	checker, err := g.storage.Checker(ctx)
	if err != nil {
		return wizmud.WithStack(err)
	}
	inv := &invocation{
		game:    g,
		ctx:     ctx,
		caller:  caller,
		checker: checker,
		args:    ParseArgs(line),
	}
	cmd, found := g.commands.find(inv.args.Verb)
	if !found {
		inv.msgf("Unknown command: %q", inv.args.Verb)
		return nil
	}
	if cmd.perm != "" && !checker.AllowedString(caller.Holder(), cmd.perm) {
		inv.msg("You are not allowed to do that.")
		return nil
	}
	return cmd.f(inv)
}
