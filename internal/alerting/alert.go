// Package alerting fans write-pipeline outcomes and alert-worthy failures
// out to notification channels. The log channel is always on; AMQP is
// optional and feeds external consumers (bots, dashboards) the same event
// stream the UI alert slot shows.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// Channel identifies a notification channel.
type Channel string

const (
	ChannelLog  Channel = "log"
	ChannelAMQP Channel = "amqp"
)

// Event describes one alert-worthy occurrence.
type Event struct {
	Code       xerrors.Code      `json:"code,omitempty"`
	Severity   xerrors.Severity  `json:"severity"`
	Message    string            `json:"message"`
	WriteID    string            `json:"write_id,omitempty"`
	Account    string            `json:"account,omitempty"`
	Outcome    string            `json:"outcome,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier delivers events to one channel.
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher broadcasts events to every registered notifier.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher delivers each event to all notifiers and joins their
// failures.
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

// NewFanout creates a dispatcher over the given notifiers.
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set}
}

// Notify implements Dispatcher.
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return xerrors.Wrap(xerrors.CodeAlertFailure, errors.Join(errs...), "")
	}
	return nil
}

// LogNotifier writes events to the structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier builds the always-on log channel.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Named("alerts")}
}

// Channel implements Notifier.
func (n *LogNotifier) Channel() Channel { return ChannelLog }

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("severity", string(event.Severity)),
		slog.String("write_id", event.WriteID),
		slog.String("account", event.Account),
	}
	if event.Code != "" {
		attrs = append(attrs, slog.String("code", string(event.Code)))
	}
	if event.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", event.Outcome))
	}
	switch event.Severity {
	case xerrors.SeverityCritical:
		n.log.Error(event.Message, attrs...)
	case xerrors.SeverityWarning:
		n.log.Warn(event.Message, attrs...)
	default:
		n.log.Info(event.Message, attrs...)
	}
	return nil
}
