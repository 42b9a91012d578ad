package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"

	"github.com/ju-nu/ShopwareDunning/internal/models"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Dunning  DunningConfig  `yaml:"dunning"`
	Tenants  []TenantConfig `yaml:"tenants"`
}

// DatabaseConfig enables the notice journal when a host is set.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// KafkaConfig enables notice-sent events when a host is set.
type KafkaConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	NoticeSentTopicName string `yaml:"notice_sent_topic_name"`
}

// RedisConfig enables the channel cache and rate limiter when a host is set.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DunningConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	CycleIntervalSeconds  int `yaml:"cycle_interval_seconds"`
	PageLimit             int `yaml:"page_limit"`
	OrderDelayMillis      int `yaml:"order_delay_millis"`
	TenantDelaySeconds    int `yaml:"tenant_delay_seconds"`
	APIRateLimitPerMinute int `yaml:"api_rate_limit_per_minute"`

	TemplateDir string `yaml:"template_dir"`
	InspectDir  string `yaml:"inspect_dir"`
}

type TenantConfig struct {
	Name             string   `yaml:"name"`
	BaseURL          string   `yaml:"base_url"`
	ClientID         string   `yaml:"client_id"`
	ClientSecret     string   `yaml:"client_secret"`
	SalesChannelID   string   `yaml:"sales_channel_id"`
	SalesChannelName string   `yaml:"sales_channel_name"`
	DueDays          int      `yaml:"due_days"`
	ContactEmail     string   `yaml:"contact_email"`
	SenderEmail      string   `yaml:"sender_email"`
	SenderName       string   `yaml:"sender_name"`
	TemplateIDs      []string `yaml:"template_ids"`
	BrevoAPIKey      string   `yaml:"brevo_api_key"`
}

// LoadConfig reads and validates the config file. Tenant validation is
// all-or-nothing: one bad entry rejects the whole load.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if _, err := config.TenantModels(); err != nil {
		return nil, err
	}

	return &config, nil
}

// TenantModels converts and validates the tenant entries.
func (c *Config) TenantModels() ([]models.Tenant, error) {
	if len(c.Tenants) == 0 {
		return nil, fmt.Errorf("config: at least one tenant is required")
	}
	tenants := make([]models.Tenant, 0, len(c.Tenants))
	for _, tc := range c.Tenants {
		t := models.Tenant{
			Name:             tc.Name,
			BaseURL:          tc.BaseURL,
			ClientID:         tc.ClientID,
			ClientSecret:     tc.ClientSecret,
			SalesChannelID:   tc.SalesChannelID,
			SalesChannelName: tc.SalesChannelName,
			DueDays:          tc.DueDays,
			ContactEmail:     tc.ContactEmail,
			SenderEmail:      tc.SenderEmail,
			SenderName:       tc.SenderName,
			TemplateIDs:      tc.TemplateIDs,
			BrevoAPIKey:      tc.BrevoAPIKey,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}
