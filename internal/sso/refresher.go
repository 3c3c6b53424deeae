package sso

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"esiauth/internal/token"
	"esiauth/pkg/logging"
	"esiauth/pkg/oauth"
)

// DefaultRefreshConcurrency bounds how many token refreshes run at once.
const DefaultRefreshConcurrency = 4

// RefreshStatus is the per-token outcome of a batch refresh.
type RefreshStatus int

const (
	// StatusRefreshed means the token was refreshed and persisted.
	StatusRefreshed RefreshStatus = iota
	// StatusSkipped means the token did not need a refresh.
	StatusSkipped
	// StatusFailed means the refresh was attempted and failed.
	StatusFailed
)

// String returns a human-readable name for the status.
func (s RefreshStatus) String() string {
	switch s {
	case StatusRefreshed:
		return "refreshed"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RefreshOutcome reports what happened to one token during a batch refresh.
type RefreshOutcome struct {
	// CharacterID identifies the token's character.
	CharacterID int64
	// CharacterName is carried along for display.
	CharacterName string
	// Status is the outcome.
	Status RefreshStatus
	// Err is set when Status is StatusFailed.
	Err error
}

// RefreshOptions tunes a batch refresh.
type RefreshOptions struct {
	// Buffer is passed to NeedsRefresh. Negative disables proactive
	// refresh; only expired tokens are attempted.
	Buffer time.Duration
	// Force refreshes every token regardless of remaining lifetime.
	Force bool
	// Concurrency bounds parallel refreshes. Zero means
	// DefaultRefreshConcurrency.
	Concurrency int
}

// Refresher refreshes stored tokens against the provider. Failures are
// isolated per token: one revoked refresh token never aborts the batch.
type Refresher struct {
	oauthClient   *oauth.Client
	validator     *Validator
	tokenEndpoint string
	saver         TokenSaver
}

// NewRefresher creates a refresher. Every refreshed access token is validated
// against the signing keys before it replaces the stored one; a validator of
// nil skips that check. The saver persists each successfully refreshed token
// immediately, so a failure later in the batch cannot lose an earlier
// refresh-token rotation.
func NewRefresher(oauthClient *oauth.Client, validator *Validator, tokenEndpoint string, saver TokenSaver) *Refresher {
	return &Refresher{
		oauthClient:   oauthClient,
		validator:     validator,
		tokenEndpoint: tokenEndpoint,
		saver:         saver,
	}
}

// RefreshOne refreshes a single token in place and persists it. The provider
// response only replaces the stored token after its access token validated.
func (r *Refresher) RefreshOne(ctx context.Context, t *token.CharacterToken) error {
	if t.RefreshToken == "" {
		return &ConfigurationError{Field: "refresh_token", Reason: "token has no refresh token"}
	}

	resp, err := r.oauthClient.RefreshToken(ctx, r.tokenEndpoint, oauth.RefreshRequest{
		RefreshToken: t.RefreshToken,
		ClientID:     t.ClientID,
	})
	if err != nil {
		return err
	}

	if r.validator != nil {
		if _, err := r.validator.Validate(ctx, resp.AccessToken); err != nil {
			return err
		}
	}

	t.ApplyRefresh(resp)

	if r.saver != nil {
		if err := r.saver.SaveToken(t); err != nil {
			return err
		}
	}

	logging.Debug("Refresh", "refreshed token for %s (%d)", t.CharacterName, t.CharacterID)
	return nil
}

// RefreshAll refreshes every token that needs it, concurrently. Outcomes are
// returned in input order, one per token, regardless of failures. Cancelling
// the context stops scheduling; tokens not yet attempted report as failed
// with the context error.
func (r *Refresher) RefreshAll(ctx context.Context, tokens []*token.CharacterToken, opts RefreshOptions) []RefreshOutcome {
	outcomes := make([]RefreshOutcome, len(tokens))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultRefreshConcurrency
	}

	batchID := uuid.NewString()
	logging.Info("Refresh", "batch %s: refreshing up to %d tokens", batchID, len(tokens))

	g := &errgroup.Group{}
	g.SetLimit(concurrency)

	for i, t := range tokens {
		outcomes[i] = RefreshOutcome{
			CharacterID:   t.CharacterID,
			CharacterName: t.CharacterName,
		}

		if !opts.Force && !t.NeedsRefresh(opts.Buffer) {
			outcomes[i].Status = StatusSkipped
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Status = StatusFailed
				outcomes[i].Err = err
				return nil
			}

			if err := r.RefreshOne(ctx, t); err != nil {
				outcomes[i].Status = StatusFailed
				outcomes[i].Err = err
				logging.Warn("Refresh", "batch %s: %s (%d) failed: %v",
					batchID, t.CharacterName, t.CharacterID, err)
				return nil
			}

			outcomes[i].Status = StatusRefreshed
			return nil
		})
	}

	// Workers never return errors; failures live in the outcomes.
	_ = g.Wait()

	logging.Info("Refresh", "batch %s: done", batchID)
	return outcomes
}

// Failed returns the outcomes with StatusFailed.
func Failed(outcomes []RefreshOutcome) []RefreshOutcome {
	var failed []RefreshOutcome
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// IsPermanentRefreshFailure reports whether the error means the refresh
// token is no longer usable and the character must re-authenticate.
func IsPermanentRefreshFailure(err error) bool {
	var provErr *oauth.ProviderError
	if errors.As(err, &provErr) {
		return !provErr.Temporary()
	}
	return false
}
