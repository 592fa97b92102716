package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rodaine/table"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/lang"
)

func (g *Game) basicCommands() commands {
	return []command{
		{
			names: m("l", "look"),
			usage: "look",
			f:     (*invocation).look,
		},
		{
			names: m("who"),
			usage: "who",
			f:     (*invocation).who,
		},
		{
			names: m("say"),
			usage: "say <message>",
			f: func(i *invocation) error {
				if i.args.Args == "" {
					i.msg("Say what?")
					return nil
				}
				loc, err := i.caller.location(i.ctx, i.game)
				if err != nil {
					return wizmud.WithStack(err)
				}
				if loc == nil {
					i.msg("There is nobody here to hear you.")
					return nil
				}
				return i.send(&Target{Object: loc}, fmt.Sprintf("%s says \"%s\"", i.caller.Name(), i.args.Args))
			},
		},
		{
			names: m("help"),
			usage: "help",
			f:     (*invocation).help,
		},
		{
			names: m("quit"),
			usage: "quit",
			f: func(i *invocation) error {
				if i.caller.Session == nil {
					return nil
				}
				i.msg("Goodbye!")
				return i.caller.Session.Disconnect()
			},
		},
	}
}

func (i *invocation) look() error {
	loc, err := i.caller.location(i.ctx, i.game)
	if err != nil {
		return wizmud.WithStack(err)
	}
	if loc == nil {
		i.msg("You are nowhere.")
		return nil
	}
	contents, err := i.game.storage.Contents(i.ctx, loc.Id)
	if err != nil {
		return wizmud.WithStack(err)
	}
	names := []string{}
	for _, c := range contents {
		if i.caller.Character != nil && c.Id == i.caller.Character.Id {
			continue
		}
		names = append(names, c.Key)
	}
	buf := &strings.Builder{}
	buf.WriteString(loc.Key)
	if len(names) > 0 {
		fmt.Fprintf(buf, "\nYou see %s.", lang.Enumerator{}.Do(names...))
	}
	i.msg(buf.String())
	return nil
}

func (i *invocation) who() error {
	sessions := i.game.registry.All()
	buf := &strings.Builder{}
	t := table.New("Name", "Port").WithWriter(buf)
	count := 0
	for _, s := range sessions {
		if s.PlayerID() == 0 {
			continue
		}
		t.AddRow(s.Name(), s.Port())
		count++
	}
	t.Print()
	fmt.Fprintf(buf, "%s connected.", lang.Capitalize(lang.Count(count, "session")))
	i.msg(buf.String())
	return nil
}

func (i *invocation) help() error {
	usages := []string{}
	for _, cmd := range i.game.commands {
		if cmd.perm == "" || i.checker.AllowedString(i.caller.Holder(), cmd.perm) {
			usages = append(usages, "  "+cmd.usage)
		}
	}
	sort.Strings(usages)
	i.msg("Available commands:\n" + strings.Join(usages, "\n"))
	return nil
}
