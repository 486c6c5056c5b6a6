package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// DefaultTokenRetention is how long used, revoked and expired tokens are
// kept before PurgeExpiredTokens removes them.
const DefaultTokenRetention = 7 * 24 * time.Hour

// PurgeExpiredTokens deletes tokens that have been unusable for longer than
// retention and returns how many were removed.
func (s *Service) PurgeExpiredTokens(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultTokenRetention
	}
	n, err := s.store.PurgeTokens(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	s.logger.InfoContext(ctx, "expired tokens purged", slog.Int64("count", n), logger.Component("auth"))
	return n, nil
}
