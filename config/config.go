package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Beatmap     BeatmapConfig     `mapstructure:"beatmap"`
	Multiplayer MultiplayerConfig `mapstructure:"multiplayer"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress       string        `mapstructure:"http_address"`
	RPCAddress        string        `mapstructure:"rpc_address"`
	GRPCAddress       string        `mapstructure:"grpc_address"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MetricsNamespace  string        `mapstructure:"metrics_namespace"`
}

type DatabaseConfig struct {
	// Driver is one of "gorm", "postgres" or "sqlite".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BeatmapConfig struct {
	MirrorEndpoint string        `mapstructure:"mirror_endpoint"`
	LookupTimeout  time.Duration `mapstructure:"lookup_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

type MultiplayerConfig struct {
	MinClientVersion int           `mapstructure:"min_client_version"`
	MaxPlayersLimit  int           `mapstructure:"max_players_limit"`
	PendingRoomTTL   time.Duration `mapstructure:"pending_room_ttl"`
	ChatRate         float64       `mapstructure:"chat_rate"`
	ChatBurst        int           `mapstructure:"chat_burst"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.grpc_address", "")
	v.SetDefault("server.heartbeat_interval", 15*time.Second)
	v.SetDefault("server.metrics_namespace", "rhythm")

	v.SetDefault("database.driver", "gorm")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.dbname", "rhythmdb")
	v.SetDefault("database.sqlite.path", "rhythm.db")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.development", false)

	v.SetDefault("beatmap.mirror_endpoint", "")
	v.SetDefault("beatmap.lookup_timeout", 3*time.Second)
	v.SetDefault("beatmap.cache_ttl", 24*time.Hour)

	v.SetDefault("multiplayer.min_client_version", 7)
	v.SetDefault("multiplayer.max_players_limit", 16)
	v.SetDefault("multiplayer.pending_room_ttl", 2*time.Minute)
	v.SetDefault("multiplayer.chat_rate", 2.0)
	v.SetDefault("multiplayer.chat_burst", 5)
}

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults and RHYTHM_* environment variables are used instead.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("rhythm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "gorm", "postgres", "sqlite":
	default:
		return errors.Join(ErrInvalidConfig, errors.New("unknown database driver "+c.Database.Driver))
	}
	if c.Multiplayer.MaxPlayersLimit < 1 {
		return errors.Join(ErrInvalidConfig, errors.New("multiplayer.max_players_limit must be positive"))
	}
	if c.Multiplayer.ChatRate <= 0 || c.Multiplayer.ChatBurst < 1 {
		return errors.Join(ErrInvalidConfig, errors.New("chat rate limit must be positive"))
	}
	return nil
}
