package authd

import (
	"fmt"
	"strings"
	"time"

	"github.com/manimate/passkey/internal/platform/config"
)

// Config controls the auth server.
type Config struct {
	Addr          string        `env:"MANIMATE_AUTH_ADDR"            envDefault:":8787"`
	DBPath        string        `env:"MANIMATE_AUTH_DB_PATH"         envDefault:"data/auth.db"`
	RPID          string        `env:"MANIMATE_AUTH_RP_ID"           envDefault:"localhost"`
	RPOrigins     []string      `env:"MANIMATE_AUTH_RP_ORIGINS"      envSeparator:"," envDefault:"http://localhost:5173"`
	SessionKey    string        `env:"MANIMATE_AUTH_SESSION_KEY"`
	SessionIssuer string        `env:"MANIMATE_AUTH_SESSION_ISSUER"  envDefault:"manimate-auth"`
	SessionTTL    time.Duration `env:"MANIMATE_AUTH_SESSION_TTL"     envDefault:"24h"`
}

// LoadConfigFromEnv reads server configuration with defaults.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.SessionKey) == "" {
		return Config{}, fmt.Errorf("MANIMATE_AUTH_SESSION_KEY is required")
	}
	return cfg, nil
}
