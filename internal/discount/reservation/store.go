// Package reservation holds the Redis-backed usage lock taken when a
// discount code is redeemed.
package reservation

import (
	"context"
	"errors"
	"fmt"

	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	usageKeyPrefix       = "discount:usage:"
	reservationKeyPrefix = "discount:reservation:"
)

type Store struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewStore(rdb *redis.Client, log *zap.Logger) *Store {
	return &Store{rdb: rdb, log: log.Named("discount.reservation")}
}

// Reserve takes one usage slot for the code and returns a reservation id.
// maxUses <= 0 means unlimited.
func (s *Store) Reserve(ctx context.Context, code string, maxUses int64) (string, error) {
	uses, err := s.rdb.Incr(ctx, usageKeyPrefix+code).Result()
	if err != nil {
		return "", fmt.Errorf("reserve %q: %w", code, err)
	}
	if maxUses > 0 && uses > maxUses {
		if err := s.rdb.Decr(ctx, usageKeyPrefix+code).Err(); err != nil {
			s.log.Warn("usage rollback failed", zap.String("code", code), zap.Error(err))
		}
		return "", fmt.Errorf("code %q: %w", code, discountdomain.ErrDiscountExhausted)
	}

	id := uuid.NewString()
	if err := s.rdb.Set(ctx, reservationKeyPrefix+id, code, 0).Err(); err != nil {
		if derr := s.rdb.Decr(ctx, usageKeyPrefix+code).Err(); derr != nil {
			s.log.Warn("usage rollback failed", zap.String("code", code), zap.Error(derr))
		}
		return "", fmt.Errorf("reserve %q: %w", code, err)
	}
	return id, nil
}

// Release returns the usage slot held by the reservation. Releasing an
// unknown or already-released reservation is a no-op.
func (s *Store) Release(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return nil
	}
	code, err := s.rdb.GetDel(ctx, reservationKeyPrefix+reservationID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release %q: %w", reservationID, err)
	}
	if err := s.rdb.Decr(ctx, usageKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("release %q: %w", reservationID, err)
	}
	return nil
}
