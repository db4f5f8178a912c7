package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "csv", c.History.Source)
	assert.Equal(t, "exp_tilt", c.Allocation.Rule)
	assert.Equal(t, 3, c.Allocation.TopN)
	assert.Equal(t, 10.0, c.Allocation.Amplification)
	assert.Equal(t, 60, c.Model.Window)
	assert.Equal(t, 64, c.Model.HiddenDim)
	assert.Equal(t, 6*time.Hour, c.Cache.TTL)
	assert.Equal(t, 5000, c.Cache.Memory.MaxSize)
	assert.Equal(t, 10*time.Minute, c.Cache.Memory.L1TTL)
	assert.Equal(t, "finalloc", c.Cache.Redis.Prefix)
	assert.Equal(t, 10, c.Cache.Redis.PoolSize)
	assert.True(t, c.Server.CORS.Enabled)
	assert.Equal(t, []string{"*"}, c.Server.CORS.Origins)
	assert.Equal(t, "plans.requests", c.Kafka.RequestTopic)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.False(t, c.Kafka.Enabled)
}

func TestParse_Overrides(t *testing.T) {
	c, err := Parse([]byte(`
allocation:
  rule: markowitz
  top_n: 5
history:
  source: sqlite
  sqlite_path: /tmp/p.db
kafka:
  enabled: true
  brokers: [k1:9092, k2:9092]
  consumer:
    backoff_max: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, "markowitz", c.Allocation.Rule)
	assert.Equal(t, 5, c.Allocation.TopN)
	assert.Equal(t, "sqlite", c.History.Source)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, c.Kafka.Consumer.BackoffMax)
	assert.Equal(t, 100*time.Millisecond, c.Kafka.Consumer.BackoffMin)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown source", "history: {source: s3}"},
		{"unknown rule", "allocation: {rule: momentum}"},
		{"zero top n", "allocation: {top_n: 0}"},
		{"short window", "model: {window: 1}"},
		{"kafka without brokers", "kafka: {enabled: true}"},
		{"redis without addr", "cache: {redis: {enabled: true}}"},
		{"digest without kafka", "log: {digest: {enabled: true}}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	env := map[string]string{
		"MODEL_PATH":      "/models/attn.bin",
		"HISTORY_DIR":     "/srv/prices",
		"KAFKA_BROKERS":   "a:9092,b:9092",
		"REDIS_ADDR":      "redis:6379",
		"ALLOCATION_RULE": "markowitz",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "/models/attn.bin", c.Model.Path)
	assert.Equal(t, "/srv/prices", c.History.Dir)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "markowitz", c.Allocation.Rule)
	assert.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: prod\nserver: {port: 9090}\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_CORSOriginsOverride(t *testing.T) {
	c, err := Parse([]byte("server:\n  cors:\n    origins: [\"https://app.example\"]\n"))
	require.NoError(t, err)
	assert.True(t, c.Server.CORS.Enabled)
	assert.Equal(t, []string{"https://app.example"}, c.Server.CORS.Origins)
}
