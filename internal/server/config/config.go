// Package config handles configuration for the server component:
// defaults, then a JSON file, then environment variables, then flags.
package config

import "time"

// Config holds runtime settings for the auth server.
//
// An empty DatabaseDSN selects the in-memory store. An empty KafkaBrokers
// list disables the provisioning consumer and logs lifecycle events instead
// of publishing them.
type Config struct {
	EndpointAddrGRPC string `env:"AUTH_GRPC_ADDRESS"`
	DatabaseDSN      string `env:"AUTH_DATABASE_DSN"`
	LogLevel         string `env:"AUTH_LOG_LEVEL"`

	SecretKey                    string        `env:"AUTH_JWT_SECRET"`
	Issuer                       string        `env:"AUTH_JWT_ISSUER"`
	AccessTokenValidityDuration  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"AUTH_REFRESH_TOKEN_TTL"`
	ResetTokenValidityDuration   time.Duration `env:"AUTH_RESET_TOKEN_TTL"`
	BcryptCost                   int           `env:"AUTH_BCRYPT_COST"`

	KafkaBrokers        []string      `env:"AUTH_KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID        string        `env:"AUTH_KAFKA_GROUP_ID"`
	KafkaProvisionTopic string        `env:"AUTH_KAFKA_PROVISION_TOPIC"`
	KafkaWorkers        int           `env:"AUTH_KAFKA_WORKERS"`
	PublishTimeout      time.Duration `env:"AUTH_PUBLISH_TIMEOUT"`

	MailEnabled  bool          `env:"AUTH_MAIL_ENABLED"`
	MailHost     string        `env:"AUTH_MAIL_HOST"`
	MailPort     int           `env:"AUTH_MAIL_PORT"`
	MailUsername string        `env:"AUTH_MAIL_USERNAME"`
	MailPassword string        `env:"AUTH_MAIL_PASSWORD"`
	MailFrom     string        `env:"AUTH_MAIL_FROM"`
	FrontendURL  string        `env:"AUTH_FRONTEND_URL"`
	MailTimeout  time.Duration `env:"AUTH_MAIL_TIMEOUT"`

	AdminName     string `env:"AUTH_ADMIN_NAME"`
	AdminEmail    string `env:"AUTH_ADMIN_EMAIL"`
	AdminPassword string `env:"AUTH_ADMIN_PASSWORD"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.LogLevel = "info"

	c.SecretKey = "development-secret-change-me"
	c.Issuer = "distrischool-auth"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.ResetTokenValidityDuration = time.Hour
	c.BcryptCost = 10

	c.KafkaBrokers = nil
	c.KafkaGroupID = "auth-service-group"
	c.KafkaProvisionTopic = "user.create"
	c.KafkaWorkers = 1
	c.PublishTimeout = 5 * time.Second

	c.MailEnabled = false
	c.MailHost = "localhost"
	c.MailPort = 587
	c.MailFrom = "noreply@distrischool.com"
	c.FrontendURL = "http://localhost:3000"
	c.MailTimeout = 10 * time.Second

	c.AdminName = "Administrator"
	c.AdminEmail = "admin@distrischool.com"
	c.AdminPassword = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	return cfg, nil
}
