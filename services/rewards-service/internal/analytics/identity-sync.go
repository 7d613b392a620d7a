package analytics

import (
	"context"

	"github.com/burakmert236/goodswipe-rewards/common/cache"
	"github.com/burakmert236/goodswipe-rewards/common/database"
	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	"github.com/redis/go-redis/v9"
)

// RedisIdentitySync mirrors account profiles and XP totals into Redis for
// analytics consumers.
type RedisIdentitySync struct {
	client redis.Cmdable
	keys   cache.Keyspace
	logger *logger.Logger
}

func NewRedisIdentitySync(client redis.Cmdable, keys cache.Keyspace, log *logger.Logger) *RedisIdentitySync {
	return &RedisIdentitySync{
		client: client,
		keys:   keys,
		logger: log.ForComponent("RedisIdentitySync"),
	}
}

// Key Generation

func (s *RedisIdentitySync) xpLeaderboardKey() string {
	return s.keys.Key("leaderboard", "xp")
}

func (s *RedisIdentitySync) accountPropertiesKey(userId string) string {
	return s.keys.Key("account", userId)
}

func accountProperties(account models.Account) map[string]any {
	return map[string]any{
		"username":    account.Username,
		"refUsername": account.RefUsername,
		"xp":          account.Xp,
		"updatedAt":   database.FormatTime(account.UpdatedAt),
	}
}

// SyncAccount overwrites the account's properties and its leaderboard score.
func (s *RedisIdentitySync) SyncAccount(ctx context.Context, account models.Account) error {
	pipe := s.client.Pipeline()

	pipe.HSet(ctx, s.accountPropertiesKey(account.UserId), accountProperties(account))
	pipe.ZAdd(ctx, s.xpLeaderboardKey(), redis.Z{
		Score:  float64(account.Xp),
		Member: account.UserId,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to sync account",
			"error", err,
			"userId", account.UserId,
		)
		return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to sync account")
	}

	s.logger.Debug("Account synced", "userId", account.UserId, "xp", account.Xp)
	return nil
}
