package realtime

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

// idempotencyTTL is the minimum retention an ACK replay must stay valid for.
const idempotencyTTL = 5 * time.Minute

// ackCache caches the ACK payload produced by a mutating command keyed by
// a storage.IdempotencyKey, so a retried command with the same client_msg_id
// replies without re-executing. dispatch fills workspace_id, user_id,
// command and client_msg_id and leaves channel_id zero, so a client_msg_id
// is scoped per user and workspace, not per channel.
// dgraph-io/ristretto/v2 gives native TTL and bounded cost tracking in place
// of a hand-rolled map+mutex+ticker (see DESIGN.md).
type ackCache struct {
	cache *ristretto.Cache[string, []byte]
}

func newAckCache() (*ackCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e6,
		MaxCost:     1 << 26, // 64 MiB of cached ACK payloads
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: create idempotency cache: %w", err)
	}
	return &ackCache{cache: c}, nil
}

func ackCacheKey(key storage.IdempotencyKey) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", key.WorkspaceID, key.UserID, key.ChannelID, key.Command, key.ClientMsgID)
}

// get returns a previously cached ACK payload for key, if any.
func (a *ackCache) get(key storage.IdempotencyKey) ([]byte, bool) {
	return a.cache.Get(ackCacheKey(key))
}

// put stores payload for key with the minimum replay TTL. The cost is the
// payload length, so the cache's MaxCost bound is in bytes.
func (a *ackCache) put(key storage.IdempotencyKey, payload []byte) {
	a.cache.SetWithTTL(ackCacheKey(key), payload, int64(len(payload)), idempotencyTTL)
	a.cache.Wait()
}
