package game

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/crypto"
	"github.com/zond/wizmud/lang"
	"github.com/zond/wizmud/perms"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
)

const (
	emitUsage = "Usage: \n@emit[/switches] [<obj>, <obj>, ... =] <message>\n@remit           [<obj>, <obj>, ... =] <message>\n@pemit           [<obj>, <obj>, ... =] <message>"
	permUsage = "Usage: @perm[/switch] [object = permission]\n       @perm[/switch] [*player = permission]"
)

func callerRef(c *Caller) storage.AuditRef {
	return storage.Ref(c.Player.Id, c.Player.Name)
}

func (g *Game) adminCommands() commands {
	return []command{
		{
			names: m("@boot"),
			perm:  perms.Command("boot"),
			usage: "@boot[/quiet][/port] <player> [: reason]",
			f:     (*invocation).boot,
		},
		{
			names: m("@delplayer"),
			perm:  perms.Command("delplayer"),
			usage: "@delplayer[/delobj] <player/user name or #id> [: reason]",
			f:     (*invocation).delPlayer,
		},
		{
			names: m("@emit"),
			perm:  perms.Command("emit"),
			usage: "@emit[/rooms][/players][/contents] [<obj>, <obj>, ... =] <message>",
			f: func(i *invocation) error {
				return i.emit(i.args.Switch("rooms"), i.args.Switch("players"))
			},
		},
		{
			names: m("@remit"),
			perm:  perms.Command("remit"),
			usage: "@remit[/contents] [<obj>, <obj>, ... =] <message>",
			f: func(i *invocation) error {
				return i.emit(true, i.args.Switch("players"))
			},
		},
		{
			names: m("@pemit"),
			perm:  perms.Command("pemit"),
			usage: "@pemit[/contents] [<obj>, <obj>, ... =] <message>",
			f: func(i *invocation) error {
				return i.emit(i.args.Switch("rooms"), true)
			},
		},
		{
			names: m("@userpassword"),
			perm:  perms.Command("userpassword"),
			usage: "@userpassword <user obj> = <new password>",
			f:     (*invocation).userPassword,
		},
		{
			names: m("@perm", "@setperm"),
			perm:  perms.Command("perm"),
			usage: "@perm[/del][/list] [<object> = <permission>[,<permission>...]]",
			f:     (*invocation).perm,
		},
		{
			names: m("@puppet"),
			perm:  perms.Command("puppet"),
			usage: "@puppet <character>",
			f:     (*invocation).puppet,
		},
		{
			names: m("@wall"),
			perm:  perms.Command("wall"),
			usage: "@wall <message>",
			f: func(i *invocation) error {
				if i.args.Args == "" {
					i.msg("Usage: @wall <message>")
					return nil
				}
				i.game.registry.Announce(fmt.Sprintf("%s shouts \"%s\"", i.caller.Name(), i.args.Args))
				return nil
			},
		},
	}
}

func (i *invocation) boot() error {
	if i.args.Args == "" {
		i.msg("Usage: @boot[/switches] <player> [:reason]")
		return nil
	}
	target, reason := splitReason(i.args.Args)
	if target == "" {
		i.msg("Usage: @boot[/switches] <player> [:reason]")
		return nil
	}

	bootList := []Session{}
	if i.args.Switch("port") {
		port, err := strconv.Atoi(target)
		if err != nil {
			i.msg("Invalid port.")
			return nil
		}
		if sessions := i.game.registry.ByPort(port); len(sessions) > 0 {
			bootList = append(bootList, sessions[0])
		}
	} else {
		match, err := i.game.SearchPlayers(i.ctx, i.caller, target)
		if err != nil {
			return wizmud.WithStack(err)
		}
		t, ok := i.reportMatch(playerTargets(match))
		if !ok {
			return nil
		}
		if !i.game.registry.Connected(t.Player.Id) {
			i.msg("That object has no connected player.")
			return nil
		}
		if !i.checker.Allowed(i.caller.Holder(), t.Player, perms.CanBoot) {
			i.msgf("You don't have the permission to boot %s.", t.Player.Name)
			return nil
		}
		bootList = append(bootList, i.game.registry.ByPlayer(t.Player.Id)...)
	}

	if len(bootList) == 0 {
		i.msg("No matches found.")
		return nil
	}

	feedback := ""
	if !i.args.Switch("quiet") {
		feedback = fmt.Sprintf("You have been disconnected by %s.\n", i.caller.Name())
		if reason != "" {
			feedback += fmt.Sprintf("\nReason given: %s", reason)
		}
	}
	for _, sess := range bootList {
		if feedback != "" {
			sess.Send(feedback)
		}
		if err := sess.Disconnect(); err != nil {
			i.game.log.Warnw("disconnecting booted session", "session", sess.ID(), "error", err)
		}
		i.game.storage.AuditLog(i.ctx, "BOOT", storage.AuditBoot{
			Caller: callerRef(i.caller),
			Booted: storage.Ref(sess.PlayerID(), sess.Name()),
			Port:   sess.Port(),
			Reason: reason,
		})
		i.msgf("You booted %s.", sess.Name())
	}
	return nil
}

func playerTargets(m Match[*structs.Player]) Match[*Target] {
	targets := make([]*Target, len(m.Candidates))
	for idx, p := range m.Candidates {
		targets[idx] = &Target{Player: p}
	}
	return newMatch(m.Query, targets)
}

func (i *invocation) delPlayer() error {
	if i.args.Args == "" {
		i.msg("Usage: @delplayer[/delobj] <player/user name or #id> [: reason]")
		return nil
	}
	target, reason := splitReason(i.args.Args)

	match, err := i.game.SearchPlayers(i.ctx, i.caller, target)
	if err != nil {
		return wizmud.WithStack(err)
	}
	players := match.Candidates
	if len(players) == 0 {
		if id, err := strconv.ParseInt(strings.TrimPrefix(target, "#"), 10, 64); err == nil {
			player, err := i.game.storage.LoadPlayer(i.ctx, id)
			if err == nil {
				players = []*structs.Player{player}
			} else if !errors.Is(err, os.ErrNotExist) {
				return wizmud.WithStack(err)
			}
		}
	}

	switch len(players) {
	case 0:
		return i.delUser(target, reason)
	case 1:
	default:
		lines := []string{"There were multiple matches:"}
		for _, p := range players {
			lines = append(lines, fmt.Sprintf(" %d %s", p.Id, p.Name))
		}
		i.msg(strings.Join(lines, "\n"))
		return nil
	}

	player := players[0]
	if !i.checker.Allowed(i.caller.Holder(), player, perms.ManagePlayers) {
		i.msg("You don't have the permissions to delete that player.")
		return nil
	}
	user, err := i.game.storage.LoadUserByID(i.ctx, player.User)
	if err != nil {
		return wizmud.WithStack(err)
	}

	if i.game.registry.Connected(player.Id) {
		i.msg("Booting and informing player ...")
		notice := fmt.Sprintf("\nYour account '%s' is being *permanently* deleted.\n", user.Name)
		if reason != "" {
			notice += fmt.Sprintf(" Reason given:\n  '%s'", reason)
		}
		i.game.registry.SendPlayer(player.Id, notice)
		if err := i.game.Execute(i.ctx, i.caller, fmt.Sprintf("@boot %s", user.Name)); err != nil {
			return err
		}
	}

	deleteCharacter := i.args.Switch("delobj")
	if err := i.game.storage.DeletePlayer(i.ctx, player, deleteCharacter); err != nil {
		return wizmud.WithStack(err)
	}
	playerRef := storage.Ref(player.Id, player.Name)
	i.game.storage.AuditLog(i.ctx, "DELETE_PLAYER", storage.AuditDeletePlayer{
		Caller:          callerRef(i.caller),
		User:            storage.Ref(user.Id, user.Name),
		Player:          &playerRef,
		DeleteCharacter: deleteCharacter,
		Reason:          reason,
	})
	i.msgf("Player %s was successfully deleted.", user.Name)
	return nil
}

// delUser deletes a credential record that has no matching player name.
func (i *invocation) delUser(target string, reason string) error {
	var user *structs.User
	var err error
	if id, perr := strconv.ParseInt(strings.TrimPrefix(target, "#"), 10, 64); perr == nil {
		user, err = i.game.storage.LoadUserByID(i.ctx, id)
	} else {
		err = os.ErrNotExist
	}
	if errors.Is(err, os.ErrNotExist) {
		user, err = i.game.storage.LoadUser(i.ctx, target)
	}
	if errors.Is(err, os.ErrNotExist) {
		i.msgf("No Player nor User found matching '%s'.", target)
		return nil
	} else if err != nil {
		return wizmud.WithStack(err)
	}

	if !i.checker.AllowedString(i.caller.Holder(), perms.ManagePlayers) {
		i.msg("You don't have the permissions to delete this player.")
		return nil
	}

	player, err := i.game.storage.LoadPlayerByUser(i.ctx, user.Id)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return wizmud.WithStack(err)
	}
	if player != nil && player.Superuser && !i.caller.Player.Superuser {
		i.msg("You don't have the permissions to delete this player.")
		return nil
	}
	if err := i.game.storage.DeleteUser(i.ctx, user.Id); err != nil {
		return wizmud.WithStack(err)
	}
	entry := storage.AuditDeletePlayer{
		Caller: callerRef(i.caller),
		User:   storage.Ref(user.Id, user.Name),
		Reason: reason,
	}
	if player != nil {
		ref := storage.Ref(player.Id, player.Name)
		entry.Player = &ref
		i.msgf("Player %s was deleted.", player.Name)
	} else {
		i.msgf("The User %s was deleted. It had no Player associated with it.", user.Name)
	}
	i.game.storage.AuditLog(i.ctx, "DELETE_PLAYER", entry)
	return nil
}

// emit sends a message to targets, defaulting to the caller's location.
// A target that can't be resolved aborts the remaining targets.
func (i *invocation) emit(roomsOnly bool, playersOnly bool) error {
	if i.args.Args == "" {
		i.msg(emitUsage)
		return nil
	}
	sendToContents := i.args.Switch("contents")

	if !i.args.HasRhs || i.args.Rhs == "" {
		loc, err := i.caller.location(i.ctx, i.game)
		if err != nil {
			return wizmud.WithStack(err)
		}
		if loc == nil {
			i.msg("You are nowhere.")
			return nil
		}
		return i.emitTo(&Target{Object: loc}, loc.Key, i.args.Args, roomsOnly, playersOnly, sendToContents)
	}
	for _, name := range i.args.LhsList {
		t, ok, err := i.search(name, Global)
		if err != nil || !ok {
			return err
		}
		if err := i.emitTo(t, name, i.args.Rhs, roomsOnly, playersOnly, sendToContents); err != nil {
			return err
		}
	}
	return nil
}

func (i *invocation) emitTo(t *Target, name string, message string, roomsOnly bool, playersOnly bool, sendToContents bool) error {
	if roomsOnly && (t.Object == nil || !t.Object.IsRoom()) {
		i.msgf("%s is not a room. Ignored.", name)
		return nil
	}
	if playersOnly && !i.game.registry.Connected(t.ControllingPlayer()) {
		i.msgf("%s has no active player. Ignored.", name)
		return nil
	}
	allowed, err := i.allowed(t, perms.SendTo)
	if err != nil {
		return err
	}
	if !allowed {
		i.msgf("You are not allowed to send to %s.", name)
		return nil
	}
	if err := i.send(t, message); err != nil {
		return err
	}
	if sendToContents {
		// Rooms already reach the players in them.
		if t.Object != nil && !t.Object.IsRoom() {
			contents, err := i.game.storage.Contents(i.ctx, t.Object.Id)
			if err != nil {
				return wizmud.WithStack(err)
			}
			for _, content := range contents {
				if err := i.send(&Target{Object: content}, message); err != nil {
					return err
				}
			}
		}
		i.msgf("Emitted to %s and its contents.", name)
	} else {
		i.msgf("Emitted to %s.", name)
	}
	return nil
}

func (i *invocation) userPassword() error {
	if !i.args.HasRhs || i.args.Rhs == "" || i.args.Lhs == "" {
		i.msg("Usage: @userpassword <user obj> = <new password>")
		return nil
	}
	match, err := i.game.SearchPlayers(i.ctx, i.caller, i.args.Lhs)
	if err != nil {
		return wizmud.WithStack(err)
	}
	t, ok := i.reportMatch(playerTargets(match))
	if !ok {
		return nil
	}
	player := t.Player
	user, err := i.game.storage.LoadUserByID(i.ctx, player.User)
	if err != nil {
		return wizmud.WithStack(err)
	}
	hash, ha1, err := crypto.Credentials(user.Name, i.args.Rhs)
	if err != nil {
		return wizmud.WithStack(err)
	}
	if err := i.game.storage.SetPassword(i.ctx, user.Id, hash, ha1); err != nil {
		return wizmud.WithStack(err)
	}
	i.game.storage.AuditLog(i.ctx, "PASSWORD_CHANGE", storage.AuditPasswordChange{
		Caller: callerRef(i.caller),
		User:   storage.Ref(user.Id, user.Name),
	})
	i.msgf("%s - new password set.", player.Name)
	if player.Id != i.caller.Player.Id {
		i.game.registry.SendPlayer(player.Id, fmt.Sprintf("%s has changed your password.", i.caller.Name()))
	}
	return nil
}

func (i *invocation) listGroups() error {
	groups, err := i.game.storage.ListGroups(i.ctx)
	if err != nil {
		return wizmud.WithStack(err)
	}
	buf := &strings.Builder{}
	buf.WriteString("\nAll defined permission groups and keys (i.e. not locks):")
	for _, group := range groups {
		keys := append([]string{}, group.Permissions...)
		sort.Strings(keys)
		fmt.Fprintf(buf, "\n\n - %s (%s):\n%s", group.Key, group.Desc, lang.Fill(strings.Join(keys, ", "), lang.DefaultWidth))
	}
	i.msg(buf.String())
	return nil
}

func (i *invocation) perm() error {
	if i.args.Args == "" {
		if !i.args.Switch("list") {
			i.msg(permUsage)
			return nil
		}
		return i.listGroups()
	}

	t, ok, err := i.search(i.args.Lhs, Global)
	if err != nil || !ok {
		return err
	}
	pstring := ""
	if t.IsPlayer() {
		pstring = "Player "
	}
	var permissions *structs.Permissions
	if t.IsPlayer() {
		permissions = &t.Player.Permissions
	} else {
		permissions = &t.Object.Permissions
	}

	if len(i.args.RhsList) == 0 {
		buf := &strings.Builder{}
		fmt.Fprintf(buf, "Permission string on %s%s: ", pstring, t.Name())
		if len(*permissions) == 0 {
			buf.WriteString("<None>")
		} else {
			buf.WriteString(permissions.String())
		}
		holder, err := i.holder(t)
		if err != nil {
			return err
		}
		if t.IsPlayer() && holder.IsSuperuser() {
			buf.WriteString("\n(... But this player is a SUPERUSER! All access checked are passed automatically.)")
		} else if holder.IsSuperuser() {
			buf.WriteString("\n(... But this object's player is a SUPERUSER! All access checked are passed automatically.)")
		}
		i.msg(buf.String())
		return nil
	}

	callerLines := []string{}
	targetLines := []string{}
	type change struct {
		event string
		perm  string
	}
	changes := []change{}
	if i.args.Switch("del") {
		for _, perm := range i.args.RhsList {
			if !permissions.Remove(perm) {
				callerLines = append(callerLines, fmt.Sprintf("Permission '%s' was not defined on %s%s.", perm, pstring, i.args.Lhs))
				continue
			}
			callerLines = append(callerLines, fmt.Sprintf("Permission '%s' was removed from %s%s.", perm, pstring, t.Name()))
			targetLines = append(targetLines, fmt.Sprintf("%s revokes the permission '%s' from you.", i.caller.Name(), perm))
			changes = append(changes, change{"PERM_REVOKE", perm})
		}
	} else {
		for _, perm := range i.args.RhsList {
			if !permissions.Add(perm) {
				callerLines = append(callerLines, fmt.Sprintf("Permission '%s' is already defined on %s%s.", perm, pstring, t.Name()))
				continue
			}
			callerLines = append(callerLines, fmt.Sprintf("Permission '%s' given to %s%s.", perm, pstring, t.Name()))
			targetLines = append(targetLines, fmt.Sprintf("%s granted you the permission '%s'.", i.caller.Name(), perm))
			changes = append(changes, change{"PERM_GRANT", perm})
		}
	}

	if len(changes) > 0 {
		if t.IsPlayer() {
			err = i.game.storage.SetPlayerPermissions(i.ctx, t.Player)
		} else {
			err = i.game.storage.SetObjectPermissions(i.ctx, t.Object)
		}
		if err != nil {
			return wizmud.WithStack(err)
		}
		targetRef := storage.AuditRef{Name: t.Describe()}
		if t.IsPlayer() {
			targetRef.ID = &t.Player.Id
		} else {
			targetRef.ID = &t.Object.Id
		}
		for _, c := range changes {
			i.game.storage.AuditLog(i.ctx, c.event, storage.AuditPermChange{
				Caller:     callerRef(i.caller),
				Target:     targetRef,
				Permission: c.perm,
			})
		}
	}

	i.msg(strings.Join(callerLines, "\n"))
	if len(targetLines) > 0 {
		if err := i.send(t, strings.Join(targetLines, "\n")); err != nil {
			return err
		}
	}
	return nil
}

func (i *invocation) puppet() error {
	if i.args.Args == "" {
		i.msg("Usage: @puppet <character>")
		return nil
	}
	t, ok, err := i.search(i.args.Args, Local)
	if err != nil || !ok {
		return err
	}
	if t.Object == nil || !t.Object.IsCharacter() {
		i.msgf("%s is not a Character.", i.args.Args)
		return nil
	}
	target := t.Object
	if target.Player != 0 && target.Player != i.caller.Player.Id && i.game.registry.Connected(target.Player) {
		i.msgf("You cannot control %s.", target.Key)
		return nil
	}
	from := storage.AuditRef{Name: "none"}
	if i.caller.Character != nil {
		from = storage.Ref(i.caller.Character.Id, i.caller.Character.Key)
	}
	if err := i.game.storage.Puppet(i.ctx, i.caller.Player, target); err != nil {
		return wizmud.WithStack(err)
	}
	i.caller.Character = target
	i.game.storage.AuditLog(i.ctx, "PUPPET", storage.AuditPuppet{
		Caller: callerRef(i.caller),
		From:   from,
		To:     storage.Ref(target.Id, target.Key),
	})
	i.msgf("You now control %s.", target.Key)
	return nil
}
