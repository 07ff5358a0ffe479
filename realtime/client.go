// Package realtime fans committed events out across nodes over NATS, so a
// message sent through one instance reaches streams opened on another.
package realtime

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Client wraps the NATS connection used for cross-node event delivery
type Client struct {
	Conn *nats.Conn
}

// Connect establishes a connection to the NATS server
func Connect(url, token string) (*Client, error) {
	opts := []nats.Option{
		nats.Name("bety"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("url", url).Info("Connected to NATS")
	return &Client{Conn: conn}, nil
}

// Close drains and closes the connection
func (c *Client) Close() {
	if c.Conn == nil {
		return
	}
	if err := c.Conn.Drain(); err != nil {
		log.WithError(err).Error("Failed to drain NATS connection")
		c.Conn.Close()
	}
	log.Info("NATS connection closed")
}

// IsConnected returns true if the client is connected to NATS
func (c *Client) IsConnected() bool {
	return c.Conn != nil && c.Conn.IsConnected()
}
