package challenge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testManager(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewManager(client, Config{
		Length:  4,
		Charset: "abcdefghjkmnpqrstuvwxyz23456789",
		TTL:     2 * time.Minute,
		Width:   100,
		Height:  40,
	})
}

func TestIssueStoresLowercasedAnswer(t *testing.T) {
	mr, m := testManager(t)

	ch, err := m.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	stored, err := mr.Get("captcha:" + ch.ID)
	if err != nil {
		t.Fatalf("stored answer missing: %v", err)
	}
	if stored != strings.ToLower(ch.Text) {
		t.Errorf("stored = %q, want lowercased %q", stored, ch.Text)
	}

	if ttl := mr.TTL("captcha:" + ch.ID); ttl != 2*time.Minute {
		t.Errorf("ttl = %v, want 2m", ttl)
	}
}

func TestIssueUsesConfiguredCharset(t *testing.T) {
	_, m := testManager(t)

	for i := 0; i < 20; i++ {
		ch, err := m.Issue(context.Background())
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		for _, r := range ch.Text {
			if !strings.ContainsRune(m.config.Charset, r) {
				t.Fatalf("text %q contains %q outside the charset", ch.Text, r)
			}
		}
	}
}

func TestVerifyConsumesOnSuccess(t *testing.T) {
	_, m := testManager(t)

	ch, err := m.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	ok, err := m.Verify(context.Background(), ch.ID, ch.Text)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}

	ok, err = m.Verify(context.Background(), ch.ID, ch.Text)
	if err != nil {
		t.Fatalf("second verify errored: %v", err)
	}
	if ok {
		t.Error("challenge verified twice")
	}
}

func TestVerifyConsumesOnFailure(t *testing.T) {
	_, m := testManager(t)

	ch, err := m.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	ok, err := m.Verify(context.Background(), ch.ID, "wrong")
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Error("wrong answer verified")
	}

	// The failed attempt burned the challenge.
	ok, err = m.Verify(context.Background(), ch.ID, ch.Text)
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Error("challenge survived a failed attempt")
	}
}

func TestVerifyCaseInsensitive(t *testing.T) {
	_, m := testManager(t)

	ch, err := m.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	ok, err := m.Verify(context.Background(), ch.ID, strings.ToUpper(ch.Text))
	if err != nil || !ok {
		t.Errorf("uppercased answer: ok=%v err=%v", ok, err)
	}
}

func TestVerifyExpired(t *testing.T) {
	mr, m := testManager(t)

	ch, err := m.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	mr.FastForward(2*time.Minute + time.Second)

	ok, err := m.Verify(context.Background(), ch.ID, ch.Text)
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Error("expired challenge verified")
	}
}

func TestRenderedSVGContainsText(t *testing.T) {
	_, m := testManager(t)

	ch, err := m.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	for _, r := range ch.Text {
		if !strings.ContainsRune(ch.SVG, r) {
			t.Errorf("SVG missing challenge character %q", r)
		}
	}
}
