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

// ChangeCode classifies a disbursement order relative to earlier orders on
// the same case.
type ChangeCode string

const (
	ChangeNew    ChangeCode = "NEW"    // First order on a case.
	ChangeUpdate ChangeCode = "CHANGE" // Subsequent order on a case.
	ChangeCancel ChangeCode = "CANCEL" // Explicit cancellation decision.
)

// BenefitPeriod is one payable period of a payment decision. Amounts are
// integer minor-currency units; From/To are calendar dates.
type BenefitPeriod struct {
	CategoryCode string    `json:"category_code"`
	Amount       int64     `json:"amount"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
}

// BeneficiaryUnit is one entry of the effective-dated beneficiary unit
// history of a case.
type BeneficiaryUnit struct {
	UnitCode      string    `json:"unit_code"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// PaymentDecision is the input to the order builder: an attested payment
// decision from the case domain.
type PaymentDecision struct {
	DecisionID   string            `json:"decision_id"`
	CaseID       string            `json:"case_id"`
	PersonID     string            `json:"person_id"`
	Sequence     int               `json:"sequence"`
	SourceSystem string            `json:"source_system"`
	Cancellation bool              `json:"cancellation"`
	Units        []BeneficiaryUnit `json:"units"`
	Periods      []BenefitPeriod   `json:"periods"`
}

// OrderLine is one currency-amount line of a disbursement order. The
// correlation id is stable across re-sends of an unchanged line so the
// external system can detect duplicates.
type OrderLine struct {
	CorrelationID string    `json:"correlation_id"`
	CategoryCode  string    `json:"category_code"`
	Amount        int64     `json:"amount"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
}

// DisbursementOrder is the instruction sent to the external payment system.
// Immutable once sent; a correction is a new order referencing the previous
// one through PreviousOrderID and the change code.
type DisbursementOrder struct {
	OrderID         string            `json:"order_id"`
	DecisionID      string            `json:"decision_id"`
	CaseID          string            `json:"case_id"`
	PersonID        string            `json:"person_id"`
	Sequence        int               `json:"sequence"`
	SourceSystem    string            `json:"source_system"`
	ChangeCode      ChangeCode        `json:"change_code"`
	PreviousOrderID string            `json:"previous_order_id,omitempty"`
	Units           []BeneficiaryUnit `json:"units"`
	Lines           []OrderLine       `json:"lines"`
	CreatedAt       time.Time         `json:"created_at"`
}
