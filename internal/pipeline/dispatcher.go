// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package pipeline

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulsefeed/internal/event"
	"github.com/tomtom215/pulsefeed/internal/logging"
	"github.com/tomtom215/pulsefeed/internal/metrics"
)

// Metadata keys stamped on dead-lettered messages.
const (
	metaDeadReason = "dead_reason"
	metaDeadError  = "dead_error"
)

// Dispatcher decodes messages from the inner topic and routes them to
// the relay or the aggregator.
//
// Terminal conditions ack without processing: unknown event types are
// dropped (producers may deploy new variants before this consumer
// understands them), and malformed payloads go straight to the dead
// letter topic since retrying a parse failure can never succeed. Only
// transient failures (store or broker errors) return an error, which
// sends the message through the retry middleware.
type Dispatcher struct {
	relay       *Relay
	aggregator  *Aggregator
	deadLetters message.Publisher
	poisonTopic string
	logger      zerolog.Logger
}

// NewDispatcher creates a dispatcher. deadLetters receives malformed
// messages on poisonTopic; pass nil to drop them instead.
func NewDispatcher(relay *Relay, aggregator *Aggregator, deadLetters message.Publisher, poisonTopic string) *Dispatcher {
	return &Dispatcher{
		relay:       relay,
		aggregator:  aggregator,
		deadLetters: deadLetters,
		poisonTopic: poisonTopic,
		logger:      logging.With().Str("component", "dispatcher").Logger(),
	}
}

// Handle is the router handler for the inner topic. Returning nil acks
// the message; returning an error sends it through retry middleware.
func (d *Dispatcher) Handle(msg *message.Message) error {
	ev, err := event.Decode(msg.Payload)
	if err != nil {
		return d.handleDecodeError(msg, err)
	}

	switch ev.(type) {
	case event.PreAuthorWeight, event.PreHashtagsWeight,
		event.PreNewComment, event.PreNewPost, event.PreNewLike:
		if err := d.relay.Resolve(msg.Context(), ev); err != nil {
			metrics.EventsFailed.WithLabelValues(string(ev.EventType())).Inc()
			return err
		}
	case event.AuthorWeight, event.HashtagsWeight:
		if err := d.aggregator.Apply(msg.Context(), ev); err != nil {
			metrics.EventsFailed.WithLabelValues(string(ev.EventType())).Inc()
			return err
		}
	default:
		// Fully-resolved notification events belong on the outer topic;
		// seeing one here means a producer published to the wrong place.
		d.logger.Debug().
			Str("type", string(ev.EventType())).
			Str("message_uuid", msg.UUID).
			Msg("notification event on inner topic, ignoring")
		return nil
	}

	metrics.EventsProcessed.WithLabelValues(string(ev.EventType())).Inc()
	return nil
}

// handleDecodeError classifies a decode failure. Both classes ack the
// original message; neither can succeed on redelivery.
func (d *Dispatcher) handleDecodeError(msg *message.Message, err error) error {
	switch {
	case errors.Is(err, event.ErrUnknownType):
		d.logger.Warn().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("unknown event type, dropping")
		metrics.EventsDropped.WithLabelValues("unknown_type").Inc()
		return nil

	case errors.Is(err, event.ErrMalformed):
		d.logger.Warn().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("malformed event, dead-lettering")
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		return d.deadLetter(msg, err)

	default:
		return fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}
}

// deadLetter forwards a copy of the raw message to the poison topic so
// the payload survives for inspection. The dead letter publish must
// succeed before the original is acked, otherwise the payload is lost.
func (d *Dispatcher) deadLetter(msg *message.Message, cause error) error {
	if d.deadLetters == nil || d.poisonTopic == "" {
		return nil
	}

	dead := msg.Copy()
	dead.Metadata.Set(metaDeadReason, "malformed")
	dead.Metadata.Set(metaDeadError, cause.Error())

	if err := d.deadLetters.Publish(d.poisonTopic, dead); err != nil {
		return fmt.Errorf("dead letter message %s: %w", msg.UUID, err)
	}
	return nil
}
