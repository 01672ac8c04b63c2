package authgate

import (
	"context"

	"github.com/arkalon/authgate/challenge"
)

// IssueChallenge creates a new single-use human-verification challenge. The
// caller delivers ID and SVG to the client; Text is the expected answer and
// exists for host applications that deliver challenges over non-visual
// channels.
func (e *Engine) IssueChallenge(ctx context.Context) (*challenge.Challenge, error) {
	return e.challenges.Issue(ctx)
}

// VerifyChallenge consumes the challenge and reports whether the answer
// matches, ignoring case. The login operations call this internally; it is
// exported for hosts that gate other flows on a challenge.
func (e *Engine) VerifyChallenge(ctx context.Context, id, answer string) (bool, error) {
	return e.challenges.Verify(ctx, id, answer)
}

// InvalidateChallenge discards an outstanding challenge without an answer.
func (e *Engine) InvalidateChallenge(ctx context.Context, id string) error {
	return e.challenges.Invalidate(ctx, id)
}
