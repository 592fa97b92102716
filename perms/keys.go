package perms

import (
	"github.com/zond/wizmud/structs"
)

const (
	CanBoot       = "can_boot"
	ManagePlayers = "manage_players"
	SendTo        = "send_to"
)

// Command returns the key gating the command with the given verb.
func Command(verb string) string {
	return "cmd:" + verb
}

// DefaultGroups are seeded into an empty database. Groups don't include each
// other, so each one lists its keys in full.
func DefaultGroups() []*structs.PermissionGroup {
	players := structs.Permissions{}
	helpers := append(structs.Permissions{}, players...)
	helpers = append(helpers, Command("pemit"), SendTo)
	builders := append(structs.Permissions{}, helpers...)
	builders = append(builders, Command("emit"), Command("remit"), Command("puppet"))
	wizards := append(structs.Permissions{}, builders...)
	wizards = append(wizards, Command("boot"), CanBoot, Command("wall"), Command("perm"), Command("userpassword"), Command("config"), Command("alias"))
	immortals := append(structs.Permissions{}, wizards...)
	immortals = append(immortals, Command("delplayer"), ManagePlayers)
	return []*structs.PermissionGroup{
		{Key: "Immortals", Desc: "Can delete players and do everything wizards can.", Permissions: immortals},
		{Key: "Wizards", Desc: "Can boot, wall, and manage permissions, passwords, aliases and config.", Permissions: wizards},
		{Key: "Builders", Desc: "Can emit to rooms and puppet characters.", Permissions: builders},
		{Key: "PlayerHelpers", Desc: "Can send private messages to players.", Permissions: helpers},
		{Key: "Players", Desc: "Ordinary players.", Permissions: players},
	}
}
