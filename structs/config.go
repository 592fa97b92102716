package structs

// PermissionGroup bundles permission keys under a name that can itself be
// granted as a permission string.
type PermissionGroup struct {
	Key         string      `db:"group_key" json:"key" yaml:"key"`
	Desc        string      `db:"description" json:"desc" yaml:"desc"`
	Permissions Permissions `db:"permissions" json:"permissions" yaml:"permissions"`
}

// CommandAlias rewrites a typed verb into an equivalent command.
type CommandAlias struct {
	Id           int64  `db:"id" json:"id" yaml:"-"`
	UserInput    string `db:"user_input" json:"user_input" yaml:"user_input"`
	EquivCommand string `db:"equiv_command" json:"equiv_command" yaml:"equiv_command"`
}

type ConfigValue struct {
	Id    int64  `db:"id" json:"id" yaml:"-"`
	Key   string `db:"conf_key" json:"conf_key" yaml:"conf_key"`
	Value string `db:"conf_value" json:"conf_value" yaml:"conf_value"`
}

// ConnectScreen is shown to connecting users. Active screens rotate randomly.
type ConnectScreen struct {
	Id       int64  `db:"id" json:"id" yaml:"-"`
	Name     string `db:"name" json:"name" yaml:"name"`
	Text     string `db:"text" json:"text" yaml:"text"`
	IsActive bool   `db:"is_active" json:"is_active" yaml:"is_active"`
}
