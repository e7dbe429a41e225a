package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// KV stores records in a JetStream Key-Value bucket.
type KV struct {
	kv jetstream.KeyValue
}

// NewKV opens bucket, creating it when missing. The bucket keeps one
// revision per key and has no TTL.
func NewKV(ctx context.Context, js jetstream.JetStream, bucket string) (*KV, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "standup updates awaiting approval",
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("opening key-value bucket %s: %w", bucket, err)
	}
	return &KV{kv: kv}, nil
}

func (s *KV) Put(ctx context.Context, key string, rec standup.PendingUpdate) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding pending update: %w", err)
	}
	if _, err := s.kv.Create(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrExists
		}
		return fmt.Errorf("storing pending update %s: %w", key, err)
	}
	return nil
}

func (s *KV) Get(ctx context.Context, key string) (standup.PendingUpdate, bool, error) {
	rec, _, found, err := s.get(ctx, key)
	return rec, found, err
}

func (s *KV) get(ctx context.Context, key string) (standup.PendingUpdate, uint64, bool, error) {
	var rec standup.PendingUpdate
	if ValidateKey(key) != nil {
		return rec, 0, false, nil
	}
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return rec, 0, false, nil
	}
	if err != nil {
		return rec, 0, false, fmt.Errorf("reading pending update %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return rec, 0, false, fmt.Errorf("decoding pending update %s: %w", key, err)
	}
	return rec, entry.Revision(), true, nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	if ValidateKey(key) != nil {
		return nil
	}
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting pending update %s: %w", key, err)
	}
	return nil
}

// Take deletes the key only if it still holds the revision that was read, so
// of two concurrent takers exactly one wins.
func (s *KV) Take(ctx context.Context, key string) (standup.PendingUpdate, bool, error) {
	rec, rev, found, err := s.get(ctx, key)
	if err != nil || !found {
		return rec, false, err
	}
	err = s.kv.Delete(ctx, key, jetstream.LastRevision(rev))
	if err == nil {
		return rec, true, nil
	}
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return standup.PendingUpdate{}, false, nil
	}
	return standup.PendingUpdate{}, false, fmt.Errorf("taking pending update %s: %w", key, err)
}

func (s *KV) List(ctx context.Context) (map[string]standup.PendingUpdate, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending updates: %w", err)
	}
	defer lister.Stop()

	out := make(map[string]standup.PendingUpdate)
	for key := range lister.Keys() {
		rec, found, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			out[key] = rec
		}
	}
	return out, nil
}

// Close is a no-op; the connection belongs to the caller.
func (s *KV) Close() error { return nil }
