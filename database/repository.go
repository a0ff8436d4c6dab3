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

package database

import (
	"context"
	"time"

	"github.com/jerry-enebeli/oppgjor/model"
)

// IDataSource defines the interface for data source operations, grouping
// related functionalities.
type IDataSource interface {
	paymentLedger        // Ledger of disbursement orders and their settlement state
	reconciliationWindow // Audit trail of completed reconciliation runs
}

// paymentLedger defines methods for handling the payment ledger.
type paymentLedger interface {
	RecordPayment(ctx context.Context, record *model.PaymentRecord) (*model.PaymentRecord, error)                    // Inserts a new ledger entry in status SENT
	GetPayment(ctx context.Context, paymentID string) (*model.PaymentRecord, error)                                  // Retrieves a ledger entry by payment id
	ApplyReceipt(ctx context.Context, paymentID string, receipt *model.SettlementReceipt) (*model.PaymentRecord, error) // Records a receipt and transitions status forward
	OverridePayment(ctx context.Context, paymentID, operator string) (*model.PaymentRecord, error)                   // Manual REJECTED -> ACCEPTED operator transition
	FindPaymentsBetween(ctx context.Context, windowStart, windowEnd time.Time) ([]*model.PaymentRecord, error)       // Records with reconciliation key in [start, end)
	GetPaymentsByStatus(ctx context.Context, status model.PaymentStatus, limit, offset int) ([]*model.PaymentRecord, error) // Ledger inspection for operators
}

// reconciliationWindow defines methods for handling reconciliation windows.
type reconciliationWindow interface {
	LastReconciledWindow(ctx context.Context) (*model.ReconciliationWindow, error)            // Most recent completed window, nil if none
	PersistWindow(ctx context.Context, window *model.ReconciliationWindow) error              // Records a completed window; windows must be contiguous
	GetWindows(ctx context.Context, limit, offset int) ([]*model.ReconciliationWindow, error) // Completed windows, newest first
}
