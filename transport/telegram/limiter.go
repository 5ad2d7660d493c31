package telegram

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// chatLimiterSize caps how many chats keep a limiter in memory. Evicted chats
// start again with a full burst.
const chatLimiterSize = 4096

// Limits throttles traffic to and from Telegram. A zero field disables that
// limit.
type Limits struct {
	// SendPerSecond caps outgoing messages across all chats.
	SendPerSecond float64
	// RequestsPerMinute and Burst cap incoming requests per chat.
	RequestsPerMinute int
	Burst             int
}

func newSendLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

type chatLimiter struct {
	limiters *lru.Cache[int64, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func newChatLimiter(perMinute, burst, size int) (*chatLimiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	if burst < 1 {
		burst = 1
	}
	cache, err := lru.New[int64, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &chatLimiter{
		limiters: cache,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}, nil
}

func (l *chatLimiter) allow(chatID int64) bool {
	if l == nil {
		return true
	}
	limiter, ok := l.limiters.Get(chatID)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(chatID, limiter)
	}
	return limiter.Allow()
}
