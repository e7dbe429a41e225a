package pending

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/fyrsmithlabs/standupd/internal/config"
)

// Open builds the backend selected by cfg. js is only used by the nats backend.
func Open(ctx context.Context, cfg config.StoreConfig, js jetstream.JetStream) (Store, error) {
	switch cfg.Backend {
	case "nats":
		if js == nil {
			return nil, fmt.Errorf("nats store backend requires a JetStream connection")
		}
		return NewKV(ctx, js, cfg.Bucket)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
