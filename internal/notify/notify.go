// Package notify announces finished rebuilds to other services.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// EventRebuilt is the event name of a successful rebuild.
const EventRebuilt = "content.rebuilt"

// Event is the JSON payload published after a rebuild.
type Event struct {
	Event string    `json:"event"`
	At    time.Time `json:"at"`
	Posts int       `json:"posts"`
}

// Notifier publishes rebuild events.
type Notifier interface {
	Rebuilt(ctx context.Context, posts int) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Rebuilt(context.Context, int) error { return nil }
func (Noop) Close() error                       { return nil }

// conn is the slice of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher sends events to a NATS subject.
type Publisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// Connect dials url and returns a publisher for subject. The connection
// keeps retrying in the background, so a broker that is down at startup
// does not keep the server from coming up.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("portfolio"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	logger.Info("NATS notifier initialized", slog.String("url", url), slog.String("subject", subject))
	return newPublisher(nc, subject, logger), nil
}

func newPublisher(c conn, subject string, logger *slog.Logger) *Publisher {
	return &Publisher{conn: c, subject: subject, logger: logger, now: time.Now}
}

// Rebuilt publishes a content.rebuilt event.
func (p *Publisher) Rebuilt(ctx context.Context, posts int) error {
	data, err := json.Marshal(Event{Event: EventRebuilt, At: p.now().UTC(), Posts: posts})
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "publish rebuild event").
			WithContext("subject", p.subject).
			Build()
	}
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		p.logger.Warn("NATS flush failed", logfields.Error(err))
	}
	p.logger.Debug("Published rebuild event", slog.String("subject", p.subject), logfields.Posts(posts))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
