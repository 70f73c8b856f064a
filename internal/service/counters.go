package service

import (
	"context"
	"log/slog"

	"scribio/internal/middleware"
	"scribio/internal/observability"
	"scribio/internal/repository"
)

// bumpPostCounter moves a post counter and swallows the error. The mutation
// that justified the counter change already succeeded; a lost increment must
// not fail the request. Failures are logged and counted so drift is
// observable and repairable by reconciliation.
func bumpPostCounter(ctx context.Context, repo repository.PostRepository, postID uint, counter repository.PostCounter, delta int) {
	if err := repo.Increment(ctx, postID, counter, delta); err != nil {
		observability.CounterUpdateFailures.WithLabelValues(string(counter)).Inc()
		middleware.Logger.ErrorContext(ctx, "Failed to update post counter",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("counter", string(counter)),
			slog.Int("delta", delta),
			slog.String("error", err.Error()),
		)
	}
}

// bumpUserCounter moves a user counter with the same fire-and-forget contract.
func bumpUserCounter(ctx context.Context, repo repository.UserRepository, userID uint, counter repository.UserCounter, delta int) {
	if err := repo.Increment(ctx, userID, counter, delta); err != nil {
		observability.CounterUpdateFailures.WithLabelValues(string(counter)).Inc()
		middleware.Logger.ErrorContext(ctx, "Failed to update user counter",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("counter", string(counter)),
			slog.Int("delta", delta),
			slog.String("error", err.Error()),
		)
	}
}
