package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zond/wizmud"
)

const (
	sshAddrFlag     = "ssh"
	httpAddrFlag    = "https"
	dirFlag         = "dir"
	hostnameFlag    = "hostname"
	developmentFlag = "development"
	logLevelFlag    = "log-level"

	envPrefix = "WIZMUD"
)

type Config struct {
	SSHAddr string
	// HTTPAddr is where the HTTPS admin surface listens, empty to disable it.
	HTTPAddr    string
	Dir         string
	Hostname    string
	Development bool
	LogLevel    string
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		SSHAddr:  "127.0.0.1:15000",
		HTTPAddr: "127.0.0.1:8081",
		Dir:      filepath.Join(home, ".wizmud"),
		Hostname: "localhost",
		LogLevel: "info",
	}
}

// LoadConfig reads the configuration from, in increasing priority, the
// defaults, a .env file in the working directory, WIZMUD_ prefixed
// environment variables, and the command line args.
func LoadConfig(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, wizmud.WithStack(err)
	}
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault(sshAddrFlag, def.SSHAddr)
	v.SetDefault(httpAddrFlag, def.HTTPAddr)
	v.SetDefault(dirFlag, def.Dir)
	v.SetDefault(hostnameFlag, def.Hostname)
	v.SetDefault(developmentFlag, def.Development)
	v.SetDefault(logLevelFlag, def.LogLevel)

	flags := pflag.NewFlagSet("wizmud", pflag.ContinueOnError)
	flags.String(sshAddrFlag, def.SSHAddr, "Where to listen to SSH connections.")
	flags.String(httpAddrFlag, def.HTTPAddr, "Where to listen to HTTPS admin connections, empty to disable.")
	flags.String(dirFlag, def.Dir, "Where to save database and settings.")
	flags.String(hostnameFlag, def.Hostname, "Hostname in the generated HTTPS certificate.")
	flags.Bool(developmentFlag, def.Development, "Development logging.")
	flags.String(logLevelFlag, def.LogLevel, "Log level (debug, info, warn, error).")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, wizmud.WithStack(err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := Config{
		SSHAddr:     v.GetString(sshAddrFlag),
		HTTPAddr:    v.GetString(httpAddrFlag),
		Dir:         v.GetString(dirFlag),
		Hostname:    v.GetString(hostnameFlag),
		Development: v.GetBool(developmentFlag),
		LogLevel:    v.GetString(logLevelFlag),
	}
	if cfg.SSHAddr == "" {
		return Config{}, errors.New("SSH address must not be empty")
	}
	if cfg.Dir == "" {
		return Config{}, errors.New("data directory must not be empty")
	}
	return cfg, nil
}

func (c Config) path(name string) string {
	return filepath.Join(c.Dir, name)
}

func (c Config) ControlSocketPath() string {
	return c.path("control.sock")
}
