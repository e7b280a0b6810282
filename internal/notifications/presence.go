package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey  = "presence:online"
	presenceLastSeenKeyNS = "presence:last_seen:"
	presenceTTL           = 90 * time.Second
	presenceOfflineGrace  = 5 * time.Second
	presenceReapInterval  = 60 * time.Second
)

// PresenceTracker mirrors active websocket users into Redis so that any
// instance can answer "is this user online". When Redis is absent it falls
// back to local connection counts only.
type PresenceTracker struct {
	rdb *redis.Client

	mu            sync.RWMutex
	localCounts   map[uint]int
	offlineTimers map[uint]*time.Timer

	ttl          time.Duration
	offlineGrace time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresenceTracker creates a tracker and starts a Redis reaper when Redis
// is available.
func NewPresenceTracker(rdb *redis.Client) *PresenceTracker {
	t := &PresenceTracker{
		rdb:           rdb,
		localCounts:   make(map[uint]int),
		offlineTimers: make(map[uint]*time.Timer),
		ttl:           presenceTTL,
		offlineGrace:  presenceOfflineGrace,
		stopCh:        make(chan struct{}),
	}
	if t.rdb != nil {
		go t.reaperLoop(presenceReapInterval)
	}
	return t
}

// SetOfflineGracePeriod overrides the delay before a disconnected user is
// removed from the Redis presence set.
func (t *PresenceTracker) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	t.offlineGrace = d
	t.mu.Unlock()
}

func (t *PresenceTracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.mu.Lock()
		for userID, timer := range t.offlineTimers {
			timer.Stop()
			delete(t.offlineTimers, userID)
		}
		t.mu.Unlock()
	})
}

// Register records a new connection for userID and refreshes Redis presence.
func (t *PresenceTracker) Register(ctx context.Context, userID uint) {
	t.mu.Lock()
	if timer, ok := t.offlineTimers[userID]; ok {
		timer.Stop()
		delete(t.offlineTimers, userID)
	}
	t.localCounts[userID]++
	t.mu.Unlock()

	t.Touch(ctx, userID)
}

// Touch refreshes the Redis presence entry for userID.
func (t *PresenceTracker) Touch(ctx context.Context, userID uint) {
	if t.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	if err := t.rdb.SAdd(ctx, presenceOnlineSetKey, uid).Err(); err != nil {
		log.Printf("presence SADD failed for user %d: %v", userID, err)
	}
	if err := t.rdb.SetEx(ctx, t.lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), t.ttl).Err(); err != nil {
		log.Printf("presence SETEX failed for user %d: %v", userID, err)
	}
}

// Unregister drops one connection for userID. The last connection arms a
// grace timer so short reconnects do not flap presence.
func (t *PresenceTracker) Unregister(ctx context.Context, userID uint) {
	t.mu.Lock()
	if n, ok := t.localCounts[userID]; ok {
		n--
		if n > 0 {
			t.localCounts[userID] = n
			t.mu.Unlock()
			return
		}
		delete(t.localCounts, userID)
	}

	if timer, ok := t.offlineTimers[userID]; ok {
		timer.Stop()
	}
	t.offlineTimers[userID] = time.AfterFunc(t.offlineGrace, func() {
		t.finalizeOffline(context.Background(), userID)
	})
	t.mu.Unlock()
}

// IsOnline reports whether userID has a live connection on this instance or
// a fresh presence entry in Redis.
func (t *PresenceTracker) IsOnline(ctx context.Context, userID uint) bool {
	t.mu.RLock()
	if t.localCounts[userID] > 0 {
		t.mu.RUnlock()
		return true
	}
	t.mu.RUnlock()

	if t.rdb == nil {
		return false
	}
	exists, err := t.rdb.Exists(ctx, t.lastSeenKey(userID)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// OnlineUserIDs returns online user IDs from Redis with stale entries
// filtered out, unioned with local connections.
func (t *PresenceTracker) OnlineUserIDs(ctx context.Context) []uint {
	local := t.localUserIDs()
	if t.rdb == nil {
		return local
	}

	members, err := t.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return local
	}

	seen := make(map[uint]struct{}, len(members)+len(local))
	result := make([]uint, 0, len(members)+len(local))

	for _, raw := range members {
		id64, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			continue
		}
		userID := uint(id64)
		exists, existsErr := t.rdb.Exists(ctx, t.lastSeenKey(userID)).Result()
		if existsErr != nil {
			continue
		}
		if exists == 0 {
			_ = t.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		result = append(result, userID)
	}

	for _, userID := range local {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		result = append(result, userID)
	}

	return result
}

// reapOnce performs one cleanup pass over the Redis presence set.
func (t *PresenceTracker) reapOnce(ctx context.Context) {
	if t.rdb == nil {
		return
	}

	members, err := t.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return
	}

	for _, raw := range members {
		userID64, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			_ = t.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
			continue
		}
		exists, existsErr := t.rdb.Exists(ctx, t.lastSeenKey(uint(userID64))).Result()
		if existsErr != nil || exists > 0 {
			continue
		}
		_ = t.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
	}
}

func (t *PresenceTracker) reaperLoop(interval time.Duration) {
	ctx := context.Background()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.reapOnce(ctx)
		}
	}
}

func (t *PresenceTracker) finalizeOffline(ctx context.Context, userID uint) {
	t.mu.Lock()
	if t.localCounts[userID] > 0 {
		delete(t.offlineTimers, userID)
		t.mu.Unlock()
		return
	}
	delete(t.offlineTimers, userID)
	t.mu.Unlock()

	if t.rdb == nil {
		return
	}
	exists, err := t.rdb.Exists(ctx, t.lastSeenKey(userID)).Result()
	if err == nil && exists > 0 {
		// Another instance refreshed presence. Keep the user online.
		return
	}
	_ = t.rdb.SRem(ctx, presenceOnlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
}

func (t *PresenceTracker) localUserIDs() []uint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint, 0, len(t.localCounts))
	for userID, count := range t.localCounts {
		if count > 0 {
			ids = append(ids, userID)
		}
	}
	return ids
}

func (t *PresenceTracker) lastSeenKey(userID uint) string {
	return presenceLastSeenKeyNS + strconv.FormatUint(uint64(userID), 10)
}
