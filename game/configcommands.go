package game

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/lang"
	"github.com/zond/wizmud/perms"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
)

func (g *Game) configCommands() commands {
	return []command{
		{
			names: m("@config"),
			perm:  perms.Command("config"),
			usage: "@config[/del] [<key> [= <value>]]",
			f:     (*invocation).config,
		},
		{
			names: m("@alias"),
			perm:  perms.Command("alias"),
			usage: "@alias[/del] [<input> [= <command>]]",
			f:     (*invocation).alias,
		},
	}
}

func (i *invocation) config() error {
	key := i.args.Lhs
	switch {
	case key == "":
		values, err := i.game.storage.ConfigValues(i.ctx)
		if err != nil {
			return wizmud.WithStack(err)
		}
		if len(values) == 0 {
			i.msg("No config values defined.")
			return nil
		}
		buf := &strings.Builder{}
		t := table.New("Key", "Value").WithWriter(buf)
		for _, v := range values {
			t.AddRow(v.Key, v.Value)
		}
		t.Print()
		i.msg(strings.TrimRight(buf.String(), "\n"))
	case i.args.Switch("del"):
		if err := i.game.storage.DeleteConfigValue(i.ctx, key); errors.Is(err, os.ErrNotExist) {
			i.msgf("Config value '%s' was not defined.", key)
			return nil
		} else if err != nil {
			return wizmud.WithStack(err)
		}
		i.game.storage.AuditLog(i.ctx, "CONFIG_DELETE", storage.AuditConfigChange{
			Caller: callerRef(i.caller),
			Table:  "config_values",
			Key:    key,
		})
		i.msgf("Config value '%s' deleted.", key)
	case i.args.HasRhs:
		if _, err := i.game.storage.SetConfigValue(i.ctx, key, i.args.Rhs); err != nil {
			return wizmud.WithStack(err)
		}
		i.game.storage.AuditLog(i.ctx, "CONFIG_SET", storage.AuditConfigChange{
			Caller: callerRef(i.caller),
			Table:  "config_values",
			Key:    key,
			Value:  i.args.Rhs,
		})
		i.msgf("Config value '%s' set to '%s'.", key, i.args.Rhs)
	default:
		value, err := i.game.storage.ConfigValue(i.ctx, key)
		if errors.Is(err, os.ErrNotExist) {
			i.msgf("Config value '%s' is not defined.", key)
			return nil
		} else if err != nil {
			return wizmud.WithStack(err)
		}
		i.msgf("%s = %s", value.Key, value.Value)
	}
	return nil
}

func (i *invocation) alias() error {
	input := i.args.Lhs
	switch {
	case input == "":
		aliases, err := i.game.storage.CommandAliases(i.ctx)
		if err != nil {
			return wizmud.WithStack(err)
		}
		if len(aliases) == 0 {
			i.msg("No command aliases defined.")
			return nil
		}
		buf := &strings.Builder{}
		t := table.New("Input", "Command").WithWriter(buf)
		for _, a := range aliases {
			t.AddRow(a.UserInput, a.EquivCommand)
		}
		t.Print()
		buf.WriteString(lang.Capitalize(lang.Count(len(aliases), "alias")) + ".")
		i.msg(buf.String())
	case i.args.Switch("del"):
		if err := i.game.storage.DeleteCommandAliases(i.ctx, input); errors.Is(err, os.ErrNotExist) {
			i.msgf("Alias '%s' was not defined.", input)
			return nil
		} else if err != nil {
			return wizmud.WithStack(err)
		}
		i.game.storage.AuditLog(i.ctx, "ALIAS_DELETE", storage.AuditConfigChange{
			Caller: callerRef(i.caller),
			Table:  "command_aliases",
			Key:    input,
		})
		i.msgf("Alias '%s' deleted.", input)
	case i.args.HasRhs:
		if _, found := i.game.commands.find(input); found {
			i.msgf("'%s' is already a command.", input)
			return nil
		}
		alias := &structs.CommandAlias{UserInput: input, EquivCommand: i.args.Rhs}
		if err := i.game.storage.CreateCommandAlias(i.ctx, alias); err != nil {
			i.msg(err.Error())
			return nil
		}
		i.game.storage.AuditLog(i.ctx, "ALIAS_SET", storage.AuditConfigChange{
			Caller: callerRef(i.caller),
			Table:  "command_aliases",
			Key:    alias.UserInput,
			Value:  alias.EquivCommand,
		})
		i.msgf("Alias '%s' now runs '%s'.", alias.UserInput, alias.EquivCommand)
	default:
		alias, err := i.game.storage.CommandAlias(i.ctx, input)
		if errors.Is(err, os.ErrNotExist) {
			i.msgf("Alias '%s' is not defined.", input)
			return nil
		} else if err != nil {
			return wizmud.WithStack(err)
		}
		i.msgf("%s = %s", alias.UserInput, alias.EquivCommand)
	}
	return nil
}
