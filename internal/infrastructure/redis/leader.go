package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const leaderKey = "auction_close_leader"

// LeaderElection elects a single instance to run the close sweeper. The
// winner of SetNX holds the key and extends it with a heartbeat; losing the
// heartbeat lets another instance take over after the TTL lapses.
type LeaderElection struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderElection(client *redis.Client, ttl time.Duration) *LeaderElection {
	return &LeaderElection{client: client, ttl: ttl}
}

func (l *LeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	acquired, err := l.client.SetNX(ctx, leaderKey, instanceID, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if acquired {
		go l.maintainLeadership(instanceID)
	}
	return acquired, nil
}

func (l *LeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	current, err := l.client.Get(ctx, leaderKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return current == instanceID, nil
}

func (l *LeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	// Delete only our own key.
	script := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("DEL", KEYS[1])
        else
            return 0
        end
    `
	_, err := l.client.Eval(ctx, script, []string{leaderKey}, instanceID).Result()
	return err
}

func (l *LeaderElection) maintainLeadership(instanceID string) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	script := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("EXPIRE", KEYS[1], ARGV[2])
        else
            return 0
        end
    `

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		result, err := l.client.Eval(ctx, script, []string{leaderKey},
			instanceID, int(l.ttl.Seconds())).Result()
		cancel()

		if err != nil {
			continue
		}
		if extended, ok := result.(int64); ok && extended == 0 {
			// Leadership lost.
			return
		}
	}
}
