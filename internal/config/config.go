// Package config resolves the server settings from command line flags,
// environment variables and a YAML file, in that order of precedence.
package config

import (
	"os"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/adeilh/minutes/cache"
	"github.com/adeilh/minutes/cache/redis"
)

// DefaultPath is read when MINUTES_CONFIG is unset. A missing file is not an
// error; its keys simply resolve to nothing.
const DefaultPath = "minutes.yaml"

type Redis struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Addr joins host and port, applying the Redis defaults.
func (r Redis) Addr() string { return redis.HostPort(r.Host, r.Port) }

type Config struct {
	Addr          string
	LogLevel      string
	Redis         Redis
	NoCache       bool
	DatabaseURL   string
	SeedFile      string
	SessionTTL    time.Duration
	DependencyTTL time.Duration
	// TTLs holds per-kind overrides; kinds left out keep their defaults.
	TTLs map[cache.Kind]time.Duration
}

// Path returns the YAML file named by MINUTES_CONFIG, or DefaultPath.
func Path() string {
	if p := os.Getenv("MINUTES_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

var ttlKinds = []cache.Kind{
	cache.KindMeeting,
	cache.KindSection,
	cache.KindItem,
	cache.KindTask,
	cache.KindTemplate,
	cache.KindUser,
}

func sources(path, env, key string) cli.ValueSourceChain {
	if env == "" {
		return cli.NewValueSourceChain(yaml.YAML(key, altsrc.StringSourcer(path)))
	}
	return cli.NewValueSourceChain(
		cli.EnvVar(env),
		yaml.YAML(key, altsrc.StringSourcer(path)),
	)
}

// ServeFlags are the flags of the serve command, reading YAML keys from path.
func ServeFlags(path string) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "HTTP listen address",
			Value:   ":8000",
			Sources: sources(path, "MINUTES_ADDR", "addr"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log level (debug, info, warn, error)",
			Value:   "info",
			Sources: sources(path, "MINUTES_LOG", "log"),
		},
		&cli.StringFlag{
			Name:    "redis-host",
			Usage:   "Redis host",
			Value:   redis.DefaultHost,
			Sources: sources(path, "REDIS_HOST", "redis.host"),
		},
		&cli.IntFlag{
			Name:    "redis-port",
			Usage:   "Redis port",
			Value:   redis.DefaultPort,
			Sources: sources(path, "REDIS_PORT", "redis.port"),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: sources(path, "REDIS_PASSWORD", "redis.password"),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			Sources: sources(path, "REDIS_DB", "redis.db"),
		},
		&cli.DurationFlag{
			Name:    "redis-dial-timeout",
			Usage:   "Redis dial timeout",
			Value:   5 * time.Second,
			Sources: sources(path, "REDIS_DIAL_TIMEOUT", "redis.dial_timeout"),
		},
		&cli.BoolFlag{
			Name:    "no-cache",
			Usage:   "run without the Redis cache",
			Sources: sources(path, "MINUTES_NO_CACHE", "no_cache"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "PostgreSQL DSN; empty keeps everything in memory",
			Sources: sources(path, "DATABASE_URL", "database_url"),
		},
		&cli.StringFlag{
			Name:    "seed",
			Usage:   "YAML catalogue to seed an empty store with; empty uses the built-in one",
			Sources: sources(path, "MINUTES_SEED", "seed"),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Usage:   "lifetime of a login session",
			Value:   24 * time.Hour,
			Sources: sources(path, "MINUTES_SESSION_TTL", "session_ttl"),
		},
		&cli.DurationFlag{
			Name:    "dependency-ttl",
			Usage:   "lifetime of cache dependency sets",
			Value:   cache.DefaultDependencyTTL,
			Sources: sources(path, "MINUTES_DEPENDENCY_TTL", "cache.dependency_ttl"),
		},
	}
	for _, kind := range ttlKinds {
		flags = append(flags, &cli.DurationFlag{
			Name:    "ttl-" + string(kind),
			Usage:   "cache TTL override for " + string(kind) + " entries",
			Sources: sources(path, "", "cache.ttl."+string(kind)),
		})
	}
	return flags
}

// FromCommand reads the resolved flag values of cmd.
func FromCommand(cmd *cli.Command) Config {
	cfg := Config{
		Addr:     cmd.String("addr"),
		LogLevel: cmd.String("log-level"),
		Redis: Redis{
			Host:        cmd.String("redis-host"),
			Port:        cmd.Int("redis-port"),
			Password:    cmd.String("redis-password"),
			DB:          cmd.Int("redis-db"),
			DialTimeout: cmd.Duration("redis-dial-timeout"),
		},
		NoCache:       cmd.Bool("no-cache"),
		DatabaseURL:   cmd.String("database-url"),
		SeedFile:      cmd.String("seed"),
		SessionTTL:    cmd.Duration("session-ttl"),
		DependencyTTL: cmd.Duration("dependency-ttl"),
		TTLs:          map[cache.Kind]time.Duration{},
	}
	for _, kind := range ttlKinds {
		if d := cmd.Duration("ttl-" + string(kind)); d > 0 {
			cfg.TTLs[kind] = d
		}
	}
	return cfg
}

// CacheOptions turns the cache settings into cache.Manager options.
func (c Config) CacheOptions() []cache.Option {
	opts := []cache.Option{}
	if c.DependencyTTL > 0 {
		opts = append(opts, cache.WithDependencyTTL(c.DependencyTTL))
	}
	for kind, d := range c.TTLs {
		opts = append(opts, cache.WithTTL(kind, d))
	}
	return opts
}
