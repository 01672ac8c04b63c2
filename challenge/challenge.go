package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "captcha:"

// ErrChallengeUnavailable wraps Redis transport errors from challenge storage.
var ErrChallengeUnavailable = errors.New("challenge storage unavailable")

// Config controls challenge generation.
type Config struct {
	Length  int
	Charset string
	TTL     time.Duration
	Width   int
	Height  int
}

// Challenge is a freshly issued human-verification challenge. Text is the
// expected answer; callers deliver only ID and SVG to clients.
type Challenge struct {
	ID   string
	SVG  string
	Text string
}

// Manager issues and verifies single-use challenges backed by Redis.
type Manager struct {
	redis  redis.UniversalClient
	config Config
}

func NewManager(client redis.UniversalClient, config Config) *Manager {
	return &Manager{
		redis:  client,
		config: config,
	}
}

// Issue creates a new challenge and stores its lowercased answer under a
// fresh ID. Any challenge previously issued is unaffected.
func (m *Manager) Issue(ctx context.Context) (*Challenge, error) {
	text, err := m.randomText()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if err := m.redis.Set(ctx, keyPrefix+id, strings.ToLower(text), m.config.TTL).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	return &Challenge{
		ID:   id,
		SVG:  m.render(text),
		Text: text,
	}, nil
}

// Verify consumes the challenge and reports whether the answer matches,
// ignoring case. The stored answer is deleted whether or not the comparison
// succeeds, so every challenge is single use. An unknown or expired ID
// returns (false, nil).
func (m *Manager) Verify(ctx context.Context, id, answer string) (bool, error) {
	key := keyPrefix + id

	stored, err := m.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	if err := m.redis.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return stored == strings.ToLower(answer), nil
}

// Invalidate discards a challenge without checking an answer.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	if err := m.redis.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return nil
}

func (m *Manager) randomText() (string, error) {
	max := big.NewInt(int64(len(m.config.Charset)))
	chars := make([]byte, m.config.Length)
	for i := range chars {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate challenge text: %w", err)
		}
		chars[i] = m.config.Charset[n.Int64()]
	}
	return string(chars), nil
}

// render produces a minimal SVG with one <text> node per character, offset
// so trivial OCR over the whole string is a little harder.
func (m *Manager) render(text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		m.config.Width, m.config.Height, m.config.Width, m.config.Height)
	b.WriteString(`<rect width="100%" height="100%" fill="#f4f4f4"/>`)

	step := m.config.Width / (len(text) + 1)
	for i, r := range text {
		x := step * (i + 1)
		y := m.config.Height/2 + (i%2)*6 - 3
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="%d" font-family="monospace" fill="#333">%c</text>`,
			x, y, m.config.Height/2, r)
	}
	b.WriteString(`</svg>`)
	return b.String()
}
