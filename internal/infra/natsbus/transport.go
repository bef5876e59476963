// Package natsbus answers skill request envelopes arriving over NATS
// request/reply.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"garage-skill/internal/alexa"
)

// queueGroup spreads requests over every running instance.
const queueGroup = "garage-skill"

type Processor interface {
	Process(ctx context.Context, env *alexa.RequestEnvelope) (*alexa.ResponseEnvelope, error)
}

type Options struct {
	URL            string
	Subject        string
	Name           string
	RequestTimeout time.Duration
}

type errorReply struct {
	Error string `json:"error"`
}

type Transport struct {
	conn      *nats.Conn
	sub       *nats.Subscription
	opts      Options
	processor Processor
	logger    *slog.Logger
}

func NewTransport(opts Options, processor Processor, logger *slog.Logger) (*Transport, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Name == "" {
		opts.Name = queueGroup
	}

	conn, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", opts.URL)

	return &Transport{
		conn:      conn,
		opts:      opts,
		processor: processor,
		logger:    logger,
	}, nil
}

func (t *Transport) Start() error {
	sub, err := t.conn.QueueSubscribe(t.opts.Subject, queueGroup, t.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", t.opts.Subject, err)
	}
	t.sub = sub

	t.logger.Info("subscribed to subject", "subject", t.opts.Subject, "queue", queueGroup)
	return nil
}

func (t *Transport) handleMessage(msg *nats.Msg) {
	if msg.Reply == "" {
		t.logger.Warn("dropping request without reply subject", "subject", msg.Subject)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.opts.RequestTimeout)
	defer cancel()

	if err := msg.Respond(t.answer(ctx, msg.Data)); err != nil {
		t.logger.Error("sending NATS reply", "error", err)
	}
}

// answer turns a request payload into the reply payload. Fatal errors are
// reported as {"error": "..."} since the caller is waiting on a reply either
// way.
func (t *Transport) answer(ctx context.Context, data []byte) []byte {
	var env alexa.RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.logger.Warn("parsing NATS request", "error", err)
		return marshalError(fmt.Errorf("invalid request envelope: %w", err))
	}

	resp, err := t.processor.Process(ctx, &env)
	if err != nil {
		return marshalError(err)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return marshalError(fmt.Errorf("marshaling response: %w", err))
	}
	return out
}

func marshalError(err error) []byte {
	out, _ := json.Marshal(errorReply{Error: err.Error()})
	return out
}

// Close drains the subscription so in-flight requests still get a reply.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Drain(); err != nil {
		t.conn.Close()
		return fmt.Errorf("draining NATS connection: %w", err)
	}
	t.logger.Info("NATS connection closed")
	return nil
}
