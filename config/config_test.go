package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  record_changed_topic_name: "import.record.changed"
  status_requested_topic_name: "import.status.requested"
redis:
  host: "localhost"
  port: 6379
importbox:
  http_addr: ":8080"
  storage: "memory"
  kafka_consumer_group: "import-api"
  record_cache_ttl_seconds: 600
  write_rate_limit_per_minute: 30
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "import.record.changed", cfg.Kafka.RecordChangedTopicName)
	require.Equal(t, "import.status.requested", cfg.Kafka.StatusRequestedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ImportBox.HTTPAddr)
	require.Equal(t, "memory", cfg.ImportBox.Storage)
	require.Equal(t, 600, cfg.ImportBox.RecordCacheTTLSeconds)
	require.Equal(t, 30, cfg.ImportBox.WriteRateLimitPerMinute)
	require.True(t, cfg.Kafka.Enabled())
	require.True(t, cfg.Redis.Enabled())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDatabaseConfig_ConnString(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, Username: "u", Password: "p", DBName: "db"}
	require.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", d.ConnString())

	d.SSLMode = "require"
	require.Equal(t, "postgres://u:p@h:5432/db?sslmode=require", d.ConnString())
}
