// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/absmach/stomp/commands"
)

// Header names used by the translator beyond the ones defined in frame.
const (
	hdrAck               = "ack"
	hdrClientID          = "client-id"
	hdrCorrelationID     = "correlation-id"
	hdrDeliveryMode      = "NMSXDeliveryMode"
	hdrDurableSubscriber = "durable-subscriber-name"
	hdrExpires           = "expires"
	hdrID                = "id"
	hdrLogin             = "login"
	hdrMessageID         = "message-id"
	hdrNoLocal           = "no-local"
	hdrPasscode          = "passcode"
	hdrPersistent        = "persistent"
	hdrPriority          = "priority"
	hdrRedelivered       = "redelivered"
	hdrReplyTo           = "reply-to"
	hdrSelector          = "selector"
	hdrSubscription      = "subscription"
	hdrTimestamp         = "timestamp"
	hdrTransaction       = "transaction"
	hdrTransformation    = "transformation"
	hdrType              = "type"

	hdrDispatchAsync      = "activemq.dispatchAsync"
	hdrExclusive          = "activemq.exclusive"
	hdrSubscriptionName   = "activemq.subscriptionName"
	hdrLegacySubscription = "activemq.subcriptionName"
	hdrMaxPendingLimit    = "activemq.maximumPendingMessageLimit"
	hdrPrefetchSize       = "activemq.prefetchSize"
	hdrConsumerPriority   = "activemq.priority"
	hdrRetroactive        = "activemq.retroactive"
)

const (
	// ignorePrefix marks a receipt whose reply only completes a waiting
	// request and is otherwise dropped, even when it arrives as an ERROR.
	ignorePrefix = "ignore:"

	// BytesTransformation is the transformation advertised for bytes bodies.
	BytesTransformation = "jms-byte"

	ackClient           = "client"
	ackClientIndividual = "client-individual"
)

// AckHeader returns the SUBSCRIBE ack header value for mode. Individual
// acknowledgement maps to "client-individual", every other mode to
// "client".
func AckHeader(mode commands.AckMode) string {
	if mode == commands.IndividualAcknowledge {
		return ackClientIndividual
	}
	return ackClient
}

// ToBool reports whether text equals "true", ignoring case. Empty text
// yields def.
func ToBool(text string, def bool) bool {
	if text == "" {
		return def
	}
	return strings.EqualFold(text, "true")
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// formatValue renders an application property as a header value.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int8:
		return formatInt(int64(t))
	case int16:
		return formatInt(int64(t))
	case int32:
		return formatInt(int64(t))
	case int64:
		return formatInt(t)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func parseCorrelationID(text string) (int32, error) {
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: correlation id %q: %w", ErrDecode, text, err)
	}
	return int32(n), nil
}
