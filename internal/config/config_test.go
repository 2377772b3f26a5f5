package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLA_EVALUATION_MODE", "")
	t.Setenv("MAIL_ENABLED", "")
	t.Setenv("BROKER_KIND", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SLA.EvaluationMode != SLAModeScheduled {
		t.Errorf("evaluation mode: got %q, want %q", cfg.SLA.EvaluationMode, SLAModeScheduled)
	}
	if got := cfg.SLA.Interval(); got != time.Minute {
		t.Errorf("interval: got %v, want 1m", got)
	}
	if cfg.Mail.Enabled {
		t.Error("mail should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_EVALUATION_MODE", "REQUEST")
	t.Setenv("SLA_EVALUATION_INTERVAL_SECONDS", "15")
	t.Setenv("MAIL_SMTP_PORT", "465")
	t.Setenv("MAIL_SMTP_SECURE", "true")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SLA.EvaluationMode != SLAModeRequest {
		t.Errorf("evaluation mode: got %q, want %q", cfg.SLA.EvaluationMode, SLAModeRequest)
	}
	if cfg.SLA.IntervalSeconds != 15 {
		t.Errorf("interval seconds: got %d, want 15", cfg.SLA.IntervalSeconds)
	}
	if cfg.Mail.Port != 465 || !cfg.Mail.Secure {
		t.Errorf("mail: got port=%d secure=%v, want 465 true", cfg.Mail.Port, cfg.Mail.Secure)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("redis db: got %d, want 3", cfg.Redis.DB)
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric REDIS_DB")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			App:    AppConfig{Env: "development"},
			Auth:   AuthConfig{JWTSecret: "dev-secret"},
			SLA:    SLAConfig{EvaluationMode: SLAModeScheduled, IntervalSeconds: 60},
			Broker: BrokerConfig{Kind: BrokerNone},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"unknown mode", func(c *Config) { c.SLA.EvaluationMode = "cron" }, true},
		{"zero interval", func(c *Config) { c.SLA.IntervalSeconds = 0 }, true},
		{"request mode ignores interval", func(c *Config) {
			c.SLA.EvaluationMode = SLAModeRequest
			c.SLA.IntervalSeconds = 0
		}, false},
		{"mail without host", func(c *Config) { c.Mail.Enabled = true }, true},
		{"amqp without url", func(c *Config) { c.Broker.Kind = BrokerAMQP }, true},
		{"unknown broker", func(c *Config) { c.Broker.Kind = "kafka" }, true},
		{"production without dsn", func(c *Config) { c.App.Env = "production" }, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
