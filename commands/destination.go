// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package commands

import "strings"

// DestinationType is the kind of a destination.
type DestinationType uint8

// Destination types.
const (
	Queue DestinationType = iota
	Topic
	TemporaryQueue
	TemporaryTopic
)

// String returns the destination type name.
func (t DestinationType) String() string {
	switch t {
	case Queue:
		return "queue"
	case Topic:
		return "topic"
	case TemporaryQueue:
		return "temp-queue"
	case TemporaryTopic:
		return "temp-topic"
	default:
		return "unknown"
	}
}

// Destination prefixes on the wire.
const (
	queuePrefix           = "/queue/"
	topicPrefix           = "/topic/"
	tempQueuePrefix       = "/temp-queue/"
	tempTopicPrefix       = "/temp-topic/"
	remoteTempQueuePrefix = "/remote-temp-queue/"
	remoteTempTopicPrefix = "/remote-temp-topic/"
)

// Destination is a queue or topic on the broker.
type Destination struct {
	Type         DestinationType
	PhysicalName string
}

// NewQueue returns a queue destination.
func NewQueue(name string) *Destination {
	return &Destination{Type: Queue, PhysicalName: name}
}

// NewTopic returns a topic destination.
func NewTopic(name string) *Destination {
	return &Destination{Type: Topic, PhysicalName: name}
}

// String returns the wire form, for example "/queue/orders". Temporary
// destinations created by another connection keep their
// "/remote-temp-*" name as is.
func (d *Destination) String() string {
	switch d.Type {
	case Topic:
		return topicPrefix + d.PhysicalName
	case TemporaryTopic:
		if hasPrefixFold(d.PhysicalName, remoteTempTopicPrefix) {
			return d.PhysicalName
		}
		return tempTopicPrefix + d.PhysicalName
	case TemporaryQueue:
		if hasPrefixFold(d.PhysicalName, remoteTempQueuePrefix) {
			return d.PhysicalName
		}
		return tempQueuePrefix + d.PhysicalName
	default:
		return queuePrefix + d.PhysicalName
	}
}

// ParseDestination parses the wire form. Prefix matching is case
// insensitive. Text without a known prefix is a queue named by the whole
// text. Empty text yields nil.
func ParseDestination(text string) *Destination {
	if text == "" {
		return nil
	}

	switch {
	case hasPrefixFold(text, queuePrefix):
		return &Destination{Type: Queue, PhysicalName: text[len(queuePrefix):]}
	case hasPrefixFold(text, topicPrefix):
		return &Destination{Type: Topic, PhysicalName: text[len(topicPrefix):]}
	case hasPrefixFold(text, tempTopicPrefix):
		return &Destination{Type: TemporaryTopic, PhysicalName: text[len(tempTopicPrefix):]}
	case hasPrefixFold(text, tempQueuePrefix):
		return &Destination{Type: TemporaryQueue, PhysicalName: text[len(tempQueuePrefix):]}
	case hasPrefixFold(text, remoteTempTopicPrefix):
		return &Destination{Type: TemporaryTopic, PhysicalName: text}
	case hasPrefixFold(text, remoteTempQueuePrefix):
		return &Destination{Type: TemporaryQueue, PhysicalName: text}
	default:
		return &Destination{Type: Queue, PhysicalName: text}
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
