package bus

import (
	"context"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/logging"
)

// Conn is a NATS connection plus the embedded server backing it, if any.
type Conn struct {
	NC     *nats.Conn
	JS     jetstream.JetStream
	server *natsserver.Server
}

// Connect dials cfg.URL, or starts an in-process JetStream server when
// cfg.Embedded is set.
func Connect(cfg config.BusConfig, logger *logging.Logger) (*Conn, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Conn{}
	url := cfg.URL
	if cfg.Embedded {
		srv, err := StartEmbedded(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		c.server = srv
		url = srv.ClientURL()
	}

	nc, err := nats.Connect(url,
		nats.Name("standupd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	c.NC = nc

	js, err := jetstream.New(nc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	c.JS = js
	logger.Info(context.Background(), "connected to NATS", zap.String("url", url), zap.Bool("embedded", cfg.Embedded))
	return c, nil
}

// StartEmbedded runs a JetStream-enabled server on a random local port.
// An empty storeDir keeps data in a temporary directory.
func StartEmbedded(storeDir string) (*natsserver.Server, error) {
	srv, err := natsserver.NewServer(&natsserver.Options{
		ServerName: "standupd-embedded",
		Host:       "127.0.0.1",
		Port:       -1,
		NoLog:      true,
		NoSigs:     true,
		JetStream:  true,
		StoreDir:   storeDir,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedded NATS server: %w", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready")
	}
	return srv, nil
}

// Close closes the connection and stops the embedded server.
func (c *Conn) Close() {
	if c.NC != nil {
		c.NC.Close()
	}
	if c.server != nil {
		c.server.Shutdown()
		c.server.WaitForShutdown()
	}
}
