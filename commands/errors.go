// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package commands

// BrokerError is an error reported by the broker in an ERROR frame.
type BrokerError struct {
	Message string
}

func (e *BrokerError) Error() string {
	if e.Message == "" {
		return "broker error"
	}
	return "broker error: " + e.Message
}
