package neotraverse

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config describes the server endpoint. Values are passed to the driver
// untouched.
type Config struct {
	URI                   string `yaml:"uri" validate:"required,uri"`
	Username              string `yaml:"username" validate:"required"`
	Password              string `yaml:"password"`
	Database              string `yaml:"database"`
	FetchSize             int    `yaml:"fetch_size" validate:"gte=0"`
	MaxConnectionPoolSize int    `yaml:"max_connection_pool_size" validate:"gte=0"`
}

// DefaultConfig points at a local server.
func DefaultConfig() Config {
	return Config{
		URI:      "neo4j://localhost:7687",
		Username: "neo4j",
		Database: "neo4j",
	}
}

// Environment variables overriding the file configuration.
const (
	EnvURI       = "NEO4J_URI"
	EnvUsername  = "NEO4J_USERNAME"
	EnvPassword  = "NEO4J_PASSWORD"
	EnvDatabase  = "NEO4J_DATABASE"
	EnvFetchSize = "NEO4J_FETCH_SIZE"
)

var validate = validator.New()

// LoadConfig builds a Config from defaults, an optional YAML file and the
// environment. envFiles are loaded with godotenv first; variables already set
// in the process environment win.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("error loading env files: %w", err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		EnvURI:      &c.URI,
		EnvUsername: &c.Username,
		EnvPassword: &c.Password,
		EnvDatabase: &c.Database,
	} {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(EnvFetchSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFetchSize, err)
		}
		c.FetchSize = n
	}
	return nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
