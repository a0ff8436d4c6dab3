/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"
	"time"
)

// DuplicateOrderError is returned when a ledger entry for the same decision
// id and sequence number already exists. Idempotent retries of the same send
// must not double-insert.
type DuplicateOrderError struct {
	DecisionID string
	Sequence   int
}

func (e DuplicateOrderError) Error() string {
	return fmt.Sprintf("payment for decision '%s' sequence %d already recorded", e.DecisionID, e.Sequence)
}

// UnknownPaymentError is returned when a referenced ledger entry does not
// exist.
type UnknownPaymentError struct {
	PaymentID string
}

func (e UnknownPaymentError) Error() string {
	return fmt.Sprintf("no payment found with id '%s'", e.PaymentID)
}

// OverlappingWindowError is returned when a reconciliation window does not
// start exactly at the previous window's end.
type OverlappingWindowError struct {
	PreviousEnd time.Time
	Start       time.Time
}

func (e OverlappingWindowError) Error() string {
	return fmt.Sprintf("window start %s does not match previous window end %s",
		e.Start.Format(time.RFC3339Nano), e.PreviousEnd.Format(time.RFC3339Nano))
}

// InvalidDecisionError is returned by the order builder when a payment
// decision cannot produce a valid disbursement order.
type InvalidDecisionError struct {
	Reason string
}

func (e InvalidDecisionError) Error() string {
	return fmt.Sprintf("invalid payment decision: %s", e.Reason)
}

// TransportError wraps a queue connection, send or receive failure. The
// transport never retries internally; callers own the retry policy.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// ReceiptParseError marks an inbound settlement receipt that could not be
// deserialized. The listener logs and drops these rather than crashing.
type ReceiptParseError struct {
	Err error
}

func (e ReceiptParseError) Error() string {
	return fmt.Sprintf("unparseable settlement receipt: %v", e.Err)
}

func (e ReceiptParseError) Unwrap() error { return e.Err }
