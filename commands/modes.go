// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package commands

// AckMode is the acknowledgement mode of a consumer.
type AckMode uint8

// Acknowledgement modes.
const (
	AutoAcknowledge AckMode = iota
	DupsOkAcknowledge
	ClientAcknowledge
	Transactional
	IndividualAcknowledge
)

// String returns the mode name.
func (m AckMode) String() string {
	switch m {
	case AutoAcknowledge:
		return "auto"
	case DupsOkAcknowledge:
		return "dups-ok"
	case ClientAcknowledge:
		return "client"
	case Transactional:
		return "transactional"
	case IndividualAcknowledge:
		return "individual"
	default:
		return "unknown"
	}
}

// TransactionType selects the transaction operation.
type TransactionType uint8

// Transaction operations.
const (
	TransactionBegin TransactionType = iota
	TransactionCommit
	TransactionRollback
)

// String returns the operation name.
func (t TransactionType) String() string {
	switch t {
	case TransactionBegin:
		return "begin"
	case TransactionCommit:
		return "commit"
	case TransactionRollback:
		return "rollback"
	default:
		return "unknown"
	}
}
