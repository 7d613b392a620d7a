package natsjetstream

import (
	"context"
	"fmt"

	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	cfg    *Config
	logger *logger.Logger
}

func NewClient(cfg *Config, log *logger.Logger) (*Client, error) {
	log = log.ForComponent("nats")

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		conn:   nc,
		js:     js,
		cfg:    cfg,
		logger: log,
	}

	return client, nil
}

// EnsureStream creates the stream or updates its subjects.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects ...string) error {
	stream := jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
	}

	if _, err := c.js.CreateOrUpdateStream(ctx, stream); err != nil {
		c.logger.Error("Failed to create stream", "stream", name, "error", err)
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	c.logger.Info("Stream ready", "stream", name, "subjects", subjects)
	return nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}

	return nil
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
