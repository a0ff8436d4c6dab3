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

// Severity is the external system's outcome classification on a settlement
// receipt.
type Severity string

const (
	SeverityOK      Severity = "00"
	SeverityWarning Severity = "04"
	SeverityError   Severity = "08"
	SeverityFatal   Severity = "12"
)

var statusBySeverity = map[Severity]PaymentStatus{
	SeverityOK:      StatusAccepted,
	SeverityWarning: StatusAcceptedWithWarning,
	SeverityError:   StatusRejected,
	SeverityFatal:   StatusRejected,
}

// Status maps a receipt severity to the resulting payment status. The second
// return value is false for severity codes the external contract does not
// define.
func (s Severity) Status() (PaymentStatus, bool) {
	status, ok := statusBySeverity[s]
	return status, ok
}

// SettlementReceipt is the asynchronous acknowledgement of a disbursement
// order's outcome. Created only by the receipt processor; never mutated.
// Error code and message are stored verbatim for operator inspection.
type SettlementReceipt struct {
	ID           int64     `json:"-"`
	ReceiptID    string    `json:"receipt_id"`
	PaymentID    string    `json:"payment_id"`
	Severity     Severity  `json:"severity"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Raw          string    `json:"raw"`
	ReceivedAt   time.Time `json:"received_at"`
}
