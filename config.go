package authgate

import (
	"errors"
	"time"
)

// Config defines the tunable behavior of the engine. Values left zero are
// filled by [defaultConfig]; Builder callers usually start from the defaults
// and override individual fields.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Challenge ChallengeConfig
	SMSCode   SMSCodeConfig
	Throttle  ThrottleConfig
	Session   SessionConfig
	Audit     AuditConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the signing material and lifetimes for the access/refresh
// token pair. Access and refresh tokens are signed with independent secrets so
// a leaked access secret cannot mint refresh tokens.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters. UpgradeOnLogin re-hashes a
// stored credential on the next successful login when its parameters drifted
// below the configured ones.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig tunes the human-verification challenge: answer length and
// character set, answer TTL in Redis, and the rendered SVG canvas size.
// Answers are compared case-insensitively.
type ChallengeConfig struct {
	Length  int
	Charset string
	TTL     time.Duration
	Width   int
	Height  int
}

/*
====================================
SMS CODE CONFIG
====================================
*/

// SMSCodeConfig tunes one-time login codes and their dispatch quota. Cooldown
// and the daily counter are consumed only after the delivery collaborator
// accepts the dispatch.
type SMSCodeConfig struct {
	Digits       int
	TTL          time.Duration
	SendCooldown time.Duration
	DailyWindow  time.Duration
	DailyCap     int
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig tunes the login-failure throttle keyed by (identity, origin).
// ChallengeThreshold is advisory: the engine exposes the current failure count
// and callers decide when to demand a challenge.
type ThrottleConfig struct {
	MaxFailures        int
	FailureWindow      time.Duration
	ChallengeThreshold int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes refresh-session housekeeping. PruneOnIssue deletes the
// account's already-expired refresh sessions inline at token issuance; there
// is no background sweep.
type SessionConfig struct {
	PruneOnIssue bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  2 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Challenge: ChallengeConfig{
			Length:  4,
			Charset: "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789",
			TTL:     120 * time.Second,
			Width:   100,
			Height:  40,
		},
		SMSCode: SMSCodeConfig{
			Digits:       6,
			TTL:          5 * time.Minute,
			SendCooldown: 60 * time.Second,
			DailyWindow:  24 * time.Hour,
			DailyCap:     10,
		},
		Throttle: ThrottleConfig{
			MaxFailures:        5,
			FailureWindow:      10 * time.Minute,
			ChallengeThreshold: 3,
		},
		Session: SessionConfig{
			PruneOnIssue: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// Validate rejects configurations that would produce unsigned tokens,
// zero-length challenges, or unbounded counters.
func (c Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT access secret required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT refresh secret required")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT TTLs must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("refresh TTL must not be shorter than access TTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if c.Challenge.Length <= 0 || c.Challenge.TTL <= 0 {
		return errors.New("challenge length and TTL must be positive")
	}
	if len(c.Challenge.Charset) < 2 {
		return errors.New("challenge charset too small")
	}
	if c.SMSCode.Digits < 4 || c.SMSCode.Digits > 10 {
		return errors.New("sms code digits must be between 4 and 10")
	}
	if c.SMSCode.TTL <= 0 || c.SMSCode.SendCooldown <= 0 || c.SMSCode.DailyWindow <= 0 {
		return errors.New("sms code TTLs must be positive")
	}
	if c.SMSCode.DailyCap <= 0 {
		return errors.New("sms daily cap must be positive")
	}
	if c.Throttle.MaxFailures <= 0 || c.Throttle.FailureWindow <= 0 {
		return errors.New("throttle limits must be positive")
	}
	if c.Throttle.ChallengeThreshold < 0 || c.Throttle.ChallengeThreshold > c.Throttle.MaxFailures {
		return errors.New("challenge threshold must be within the failure budget")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
