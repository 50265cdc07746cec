package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/fleetledger/internal/metrics"
)

// Message is a short text addressed to a phone number.
// Sensitive messages carry secrets and are redacted by mirror channels.
type Message struct {
	To        string
	Text      string
	Sensitive bool
}

// Notifier delivers a message through one external channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher sends through a primary channel and mirrors the message to
// secondary channels concurrently. Only the primary's failure is reported;
// mirror failures are logged. Every send is bounded by timeout.
type Dispatcher struct {
	primary Notifier
	mirrors []Notifier
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(primary Notifier, timeout time.Duration, logger *zap.Logger, mirrors ...Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{primary: primary, mirrors: mirrors, timeout: timeout, logger: logger}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var g errgroup.Group
	g.Go(func() error {
		err := d.primary.Send(ctx, msg)
		metrics.Notifications.WithLabelValues(d.primary.Name(), metrics.Outcome(err)).Inc()
		if err != nil {
			return fmt.Errorf("%s: %w", d.primary.Name(), err)
		}
		return nil
	})
	for _, m := range d.mirrors {
		m := m
		g.Go(func() error {
			err := m.Send(ctx, msg)
			metrics.Notifications.WithLabelValues(m.Name(), metrics.Outcome(err)).Inc()
			if err != nil {
				d.logger.Warn("mirror notification failed", zap.String("channel", m.Name()), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	text := msg.Text
	if msg.Sensitive {
		text = redacted
	}
	n.logger.Info("notification", zap.String("to", msg.To), zap.String("text", text))
	return nil
}

const redacted = "[redacted]"
