package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitService caps how many requests an organization may make per day and month
type RateLimitService struct {
	client       *redis.Client
	dailyLimit   int
	monthlyLimit int
	now          func() time.Time
}

// NewRateLimitService creates a new rate limit service on a shared Redis client
func NewRateLimitService(client *redis.Client, dailyLimit, monthlyLimit int) *RateLimitService {
	return &RateLimitService{
		client:       client,
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		now:          time.Now,
	}
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed        bool
	DailyUsed      int
	DailyLimit     int
	MonthlyUsed    int
	MonthlyLimit   int
	RetryAfterSecs int
}

func rateLimitKeys(orgID uuid.UUID, now time.Time) (daily, monthly string) {
	daily = fmt.Sprintf("ratelimit:daily:%s:%s", orgID, now.Format("2006-01-02"))
	monthly = fmt.Sprintf("ratelimit:monthly:%s:%s", orgID, now.Format("2006-01"))
	return daily, monthly
}

func windowEnds(now time.Time) (endOfDay, endOfMonth time.Time) {
	endOfDay = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	endOfMonth = time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	return endOfDay, endOfMonth
}

// CheckAndIncrement checks if the request is within limits and counts it when allowed
func (s *RateLimitService) CheckAndIncrement(ctx context.Context, orgID uuid.UUID) (*RateLimitResult, error) {
	now := s.now()
	dailyKey, monthlyKey := rateLimitKeys(orgID, now)
	endOfDay, endOfMonth := windowEnds(now)

	daily, monthly, err := s.counts(ctx, dailyKey, monthlyKey)
	if err != nil {
		return nil, err
	}

	result := &RateLimitResult{
		DailyUsed:    daily,
		DailyLimit:   s.dailyLimit,
		MonthlyUsed:  monthly,
		MonthlyLimit: s.monthlyLimit,
	}

	if s.dailyLimit > 0 && daily >= s.dailyLimit {
		result.RetryAfterSecs = int(endOfDay.Sub(now).Seconds())
		return result, nil
	}
	if s.monthlyLimit > 0 && monthly >= s.monthlyLimit {
		result.RetryAfterSecs = int(endOfMonth.Sub(now).Seconds())
		return result, nil
	}

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, dailyKey)
	pipe.ExpireAt(ctx, dailyKey, endOfDay)
	pipe.Incr(ctx, monthlyKey)
	pipe.ExpireAt(ctx, monthlyKey, endOfMonth)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to increment rate limit counters: %w", err)
	}

	result.Allowed = true
	result.DailyUsed++
	result.MonthlyUsed++
	return result, nil
}

// Usage returns current counters without incrementing
func (s *RateLimitService) Usage(ctx context.Context, orgID uuid.UUID) (daily int, monthly int, err error) {
	dailyKey, monthlyKey := rateLimitKeys(orgID, s.now())
	return s.counts(ctx, dailyKey, monthlyKey)
}

func (s *RateLimitService) counts(ctx context.Context, dailyKey, monthlyKey string) (int, int, error) {
	daily, err := s.client.Get(ctx, dailyKey).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("failed to read daily counter: %w", err)
	}
	monthly, err := s.client.Get(ctx, monthlyKey).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("failed to read monthly counter: %w", err)
	}
	return daily, monthly, nil
}
