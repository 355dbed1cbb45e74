// Package events publishes scan lifecycle notifications to NATS.
package events

import (
	"fmt"
	"time"

	"fpscan/internal/scan"

	"github.com/nats-io/nats.go"
)

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect opens a NATS connection that reconnects indefinitely and reports
// connection state changes to logger.
func Connect(url, name string, logger scan.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = scan.NewNopLogger()
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	logger.Debug("nats connected", "url", nc.ConnectedUrl())
	return nc, nil
}

var _ Publisher = (*nats.Conn)(nil)
