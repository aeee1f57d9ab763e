package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FileGuard/go-engine/fileguard/store"
)

// notificationKeyPrefix namespaces notification keys in the KV store.
const notificationKeyPrefix = "notifications"

// KVNotifier writes notifications into the KV store with a TTL equal to the
// display window, so expiry in the store is the auto-dismiss.
type KVNotifier struct {
	kv store.KVStore
}

// NewKVNotifier creates a notifier backed by the given KV store.
func NewKVNotifier(kv store.KVStore) *KVNotifier {
	return &KVNotifier{kv: kv}
}

// Notify implements Notifier by storing the message under a timestamped key
// that expires after DisplayTTLSeconds.
func (n *KVNotifier) Notify(ctx context.Context, text string) error {
	now := time.Now().UTC()
	body, err := json.Marshal(message{
		Message:    text,
		CreatedAt:  now.Format(time.RFC3339),
		TTLSeconds: DisplayTTLSeconds,
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%d", notificationKeyPrefix, now.UnixNano())
	return n.kv.SetValueWithTTL(ctx, key, string(body), DisplayTTLSeconds)
}
