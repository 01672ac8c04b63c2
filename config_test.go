package authgate

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("access")
	cfg.JWT.RefreshSecret = []byte("refresh")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secrets", func(*Config) {}, false},
		{"missing access secret", func(c *Config) { c.JWT.AccessSecret = nil }, true},
		{"missing refresh secret", func(c *Config) { c.JWT.RefreshSecret = nil }, true},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }, true},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Hour }, true},
		{"negative leeway", func(c *Config) { c.JWT.Leeway = -time.Second }, true},
		{"zero challenge length", func(c *Config) { c.Challenge.Length = 0 }, true},
		{"tiny charset", func(c *Config) { c.Challenge.Charset = "a" }, true},
		{"code too short", func(c *Config) { c.SMSCode.Digits = 3 }, true},
		{"code too long", func(c *Config) { c.SMSCode.Digits = 11 }, true},
		{"zero daily cap", func(c *Config) { c.SMSCode.DailyCap = 0 }, true},
		{"zero max failures", func(c *Config) { c.Throttle.MaxFailures = 0 }, true},
		{"threshold above cap", func(c *Config) { c.Throttle.ChallengeThreshold = 6 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCloneConfigDetachesSecrets(t *testing.T) {
	cfg := validTestConfig()
	cloned := cloneConfig(cfg)

	cloned.JWT.AccessSecret[0] ^= 0xff
	if cfg.JWT.AccessSecret[0] == cloned.JWT.AccessSecret[0] {
		t.Error("clone shares the access secret backing array")
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	_, client := newTestRedis(t)

	if _, err := New().WithAccountStore(newMockAccountStore()).Build(); err == nil {
		t.Error("expected an error without redis")
	}
	if _, err := New().WithRedis(client).Build(); err == nil {
		t.Error("expected an error without a store")
	}
	if _, err := New().WithRedis(client).WithAccountStore(newMockAccountStore()).Build(); err == nil {
		t.Error("expected an error without signing secrets")
	}
}
