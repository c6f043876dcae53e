package config

import (
	"encoding/json"
	"os"

	"github.com/distrischool/authservice/internal/flagx"
	"github.com/distrischool/authservice/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations are
// timex.Duration so they can be written as "15m" or as nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`
	LogLevel         string `json:"log_level"`

	SecretKey                    string         `json:"secret_key"`
	Issuer                       string         `json:"issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`

	KafkaBrokers        []string       `json:"kafka_brokers"`
	KafkaGroupID        string         `json:"kafka_group_id"`
	KafkaProvisionTopic string         `json:"kafka_provision_topic"`
	KafkaWorkers        int            `json:"kafka_workers"`
	PublishTimeout      timex.Duration `json:"publish_timeout"`

	MailEnabled  bool           `json:"mail_enabled"`
	MailHost     string         `json:"mail_host"`
	MailPort     int            `json:"mail_port"`
	MailUsername string         `json:"mail_username"`
	MailPassword string         `json:"mail_password"`
	MailFrom     string         `json:"mail_from"`
	FrontendURL  string         `json:"frontend_url"`
	MailTimeout  timex.Duration `json:"mail_timeout"`

	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// parseJson loads the file named by -c/-config (or $CONFIG) over cfg.
// Keys missing from the file keep their current values. The function panics
// if the file cannot be read or is not valid JSON.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	jc.apply(cfg)
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		LogLevel:                     c.LogLevel,
		SecretKey:                    c.SecretKey,
		Issuer:                       c.Issuer,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		ResetTokenValidityDuration:   timex.Duration{Duration: c.ResetTokenValidityDuration},
		BcryptCost:                   c.BcryptCost,
		KafkaBrokers:                 c.KafkaBrokers,
		KafkaGroupID:                 c.KafkaGroupID,
		KafkaProvisionTopic:          c.KafkaProvisionTopic,
		KafkaWorkers:                 c.KafkaWorkers,
		PublishTimeout:               timex.Duration{Duration: c.PublishTimeout},
		MailEnabled:                  c.MailEnabled,
		MailHost:                     c.MailHost,
		MailPort:                     c.MailPort,
		MailUsername:                 c.MailUsername,
		MailPassword:                 c.MailPassword,
		MailFrom:                     c.MailFrom,
		FrontendURL:                  c.FrontendURL,
		MailTimeout:                  timex.Duration{Duration: c.MailTimeout},
		AdminName:                    c.AdminName,
		AdminEmail:                   c.AdminEmail,
		AdminPassword:                c.AdminPassword,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = jc.EndpointAddrGRPC
	c.DatabaseDSN = jc.DatabaseDSN
	c.LogLevel = jc.LogLevel
	c.SecretKey = jc.SecretKey
	c.Issuer = jc.Issuer
	c.AccessTokenValidityDuration = jc.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = jc.RefreshTokenValidityDuration.Duration
	c.ResetTokenValidityDuration = jc.ResetTokenValidityDuration.Duration
	c.BcryptCost = jc.BcryptCost
	c.KafkaBrokers = jc.KafkaBrokers
	c.KafkaGroupID = jc.KafkaGroupID
	c.KafkaProvisionTopic = jc.KafkaProvisionTopic
	c.KafkaWorkers = jc.KafkaWorkers
	c.PublishTimeout = jc.PublishTimeout.Duration
	c.MailEnabled = jc.MailEnabled
	c.MailHost = jc.MailHost
	c.MailPort = jc.MailPort
	c.MailUsername = jc.MailUsername
	c.MailPassword = jc.MailPassword
	c.MailFrom = jc.MailFrom
	c.FrontendURL = jc.FrontendURL
	c.MailTimeout = jc.MailTimeout.Duration
	c.AdminName = jc.AdminName
	c.AdminEmail = jc.AdminEmail
	c.AdminPassword = jc.AdminPassword
}
