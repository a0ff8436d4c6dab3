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

import "time"

// PaymentStatus is the settlement state of a ledger entry. Statuses only
// move forward; the manual override of a rejected payment is the single
// allowed transition out of a terminal state.
type PaymentStatus string

const (
	StatusSent                PaymentStatus = "SENT"
	StatusAccepted            PaymentStatus = "ACCEPTED"
	StatusAcceptedWithWarning PaymentStatus = "ACCEPTED_WITH_WARNING"
	StatusRejected            PaymentStatus = "REJECTED"
)

// Terminal reports whether a status ends the normal settlement flow.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusAcceptedWithWarning, StatusRejected:
		return true
	}
	return false
}

// Classification is the reconciliation detail-line category derived from a
// payment's settlement state. Accepted payments contribute to totals only.
type Classification string

const (
	ClassificationMissing  Classification = "MISSING"  // Sent, not yet settled.
	ClassificationWarning  Classification = "WARNING"  // Accepted with caveat.
	ClassificationRejected Classification = "REJECTED" // Rejected by the external system.
)

var classificationByStatus = map[PaymentStatus]Classification{
	StatusSent:                ClassificationMissing,
	StatusAcceptedWithWarning: ClassificationWarning,
	StatusRejected:            ClassificationRejected,
}

// Classify maps a payment status to its reconciliation detail classification.
// The second return value is false for statuses that are reported through
// totals only.
func Classify(status PaymentStatus) (Classification, bool) {
	c, ok := classificationByStatus[status]
	return c, ok
}

// PaymentRecord is one entry of the payment ledger: an order sent to the
// external disbursement system together with its latest settlement outcome.
// Records are never deleted and the reconciliation key is immutable once
// assigned, so re-running reconciliation for a past window is deterministic.
type PaymentRecord struct {
	ID                int64         `json:"-"`
	PaymentID         string        `json:"payment_id"`
	DecisionID        string        `json:"decision_id"`
	CaseID            string        `json:"case_id"`
	PersonID          string        `json:"person_id"`
	Sequence          int           `json:"sequence"`
	Status            PaymentStatus `json:"status"`
	OrderPayload      string        `json:"order_payload"`
	ReceiptPayload    string        `json:"receipt_payload,omitempty"`
	ErrorCode         string        `json:"error_code,omitempty"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	ReceiptAt         *time.Time    `json:"receipt_at,omitempty"`
	ReconciliationKey time.Time     `json:"reconciliation_key"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
