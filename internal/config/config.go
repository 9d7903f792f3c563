package config

import (
	"os"
	"path/filepath"

	"github.com/go-yaml/yaml"
	"github.com/google/uuid"
)

type Config struct {
	Server Server `yaml:"server"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}

	return config, nil
}

// IsValidAppID reports whether id is a well-formed version-4 UUID.
// Anything else leaves real-time features disabled.
func IsValidAppID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.Version() == 4
}

// Client holds the settings a consumer process reads from its
// environment. All fields are optional: missing values degrade the
// corresponding feature instead of failing.
type Client struct {
	ServerURL      string
	AppID          string
	PhotoAccessKey string
	StateDir       string
}

// ClientFromEnv assembles the client settings from environment
// variables, defaulting the state dir to the user config dir.
func ClientFromEnv() Client {
	c := Client{
		ServerURL:      os.Getenv("PICSYNC_SERVER_URL"),
		AppID:          os.Getenv("PICSYNC_APP_ID"),
		PhotoAccessKey: os.Getenv("UNSPLASH_ACCESS_KEY"),
		StateDir:       os.Getenv("PICSYNC_STATE_DIR"),
	}
	if c.StateDir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			c.StateDir = filepath.Join(base, "picsync")
		}
	}
	return c
}
