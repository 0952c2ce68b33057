package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ImportBox ImportBoxConfig `yaml:"importbox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnString builds a pgx connection URL; ssl_mode defaults to "disable".
func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	RecordChangedTopicName   string `yaml:"record_changed_topic_name"`
	StatusRequestedTopicName string `yaml:"status_requested_topic_name"`
}

// Enabled reports whether a broker address is configured at all.
func (k KafkaConfig) Enabled() bool {
	return k.Host != ""
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type ImportBoxConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	Storage            string `yaml:"storage"` // "postgres" | "memory"
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	RecordCacheTTLSeconds   int `yaml:"record_cache_ttl_seconds"`
	WriteRateLimitPerMinute int `yaml:"write_rate_limit_per_minute"`
}

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

	return &config, nil
}
