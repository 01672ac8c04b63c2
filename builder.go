package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/arkalon/authgate/challenge"
	"github.com/arkalon/authgate/internal/limiters"
	"github.com/arkalon/authgate/internal/rate"
	"github.com/arkalon/authgate/internal/stores"
	"github.com/arkalon/authgate/jwt"
	"github.com/arkalon/authgate/password"
)

// Builder assembles an [Engine]. Collaborators are attached with the WithX
// chain and validated once in Build.
//
//	engine, err := authgate.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithAccountStore(store).
//		WithCodeSender(sender).
//		Build()
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     AccountStore
	sender    CodeSender
	auditSink AuditSink
}

// New starts a Builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration wholesale. Zero-valued sections are
// not back-filled; start from [New]'s defaults and override fields when only
// a few knobs need turning.
func (b *Builder) WithConfig(config Config) *Builder {
	b.config = config
	return b
}

// WithRedis attaches the Redis client backing challenges, codes, quotas, the
// failure throttle, and the token blacklist. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore attaches the durable repository. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.store = store
	return b
}

// WithCodeSender attaches the code delivery collaborator. Optional; without
// it, RequestCode returns ErrEngineNotReady and the other channels work
// normally.
func (b *Builder) WithCodeSender(sender CodeSender) *Builder {
	b.sender = sender
	return b
}

// WithAuditSink attaches an audit sink and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// Build validates the configuration and collaborators and constructs the
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.store == nil {
		return nil, errors.New("account store is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := cloneConfig(b.config)

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		store:  b.store,
		sender: b.sender,
		challenges: challenge.NewManager(b.redis, challenge.Config{
			Length:  cfg.Challenge.Length,
			Charset: cfg.Challenge.Charset,
			TTL:     cfg.Challenge.TTL,
			Width:   cfg.Challenge.Width,
			Height:  cfg.Challenge.Height,
		}),
		codes:     stores.NewCodeStore(b.redis, cfg.SMSCode.TTL),
		blacklist: stores.NewBlacklist(b.redis),
		throttle: rate.NewLimiter(b.redis, rate.Config{
			MaxFailures: cfg.Throttle.MaxFailures,
			Window:      cfg.Throttle.FailureWindow,
		}),
		smsQuota: limiters.NewSMSQuota(b.redis, limiters.Config{
			SendCooldown: cfg.SMSCode.SendCooldown,
			DailyWindow:  cfg.SMSCode.DailyWindow,
			DailyCap:     cfg.SMSCode.DailyCap,
		}),
		passwordHash: passwordHash,
		jwtManager:   jwtManager,
	}

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		engine.audit = newAuditDispatcher(sink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	return engine, nil
}
