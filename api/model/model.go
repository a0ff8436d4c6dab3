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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jerry-enebeli/oppgjor/model"
)

// BenefitPeriodRequest is one payable period of a decision. Dates use the
// YYYY-MM-DD calendar format; amounts are integer minor-currency units.
type BenefitPeriodRequest struct {
	CategoryCode string `json:"category_code"`
	Amount       int64  `json:"amount"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// BeneficiaryUnitRequest is one entry of the effective-dated unit history.
type BeneficiaryUnitRequest struct {
	UnitCode      string `json:"unit_code"`
	EffectiveFrom string `json:"effective_from"`
}

// RecordDisbursement is the POST /payments request body.
type RecordDisbursement struct {
	DecisionID   string                   `json:"decision_id"`
	CaseID       string                   `json:"case_id"`
	PersonID     string                   `json:"person_id"`
	Sequence     int                      `json:"sequence"`
	SourceSystem string                   `json:"source_system"`
	Cancellation bool                     `json:"cancellation"`
	Units        []BeneficiaryUnitRequest `json:"units"`
	Periods      []BenefitPeriodRequest   `json:"periods"`
}

// OverridePayment is the POST /payments/:id/override request body.
type OverridePayment struct {
	Operator string `json:"operator"`
}

func dateRule(value interface{}) error {
	s, _ := value.(string)
	if _, err := model.ParseDate(s); err != nil {
		return errors.New("please format dates as 'YYYY-MM-DD' (e.g., 2024-06-01)")
	}
	return nil
}

func (r *RecordDisbursement) ValidateRecordDisbursement() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.DecisionID, validation.Required),
		validation.Field(&r.CaseID, validation.Required),
		validation.Field(&r.PersonID, validation.Required),
		validation.Field(&r.Sequence, validation.Min(1)),
		validation.Field(&r.SourceSystem, validation.Required),
		validation.Field(&r.Units, validation.Required),
		validation.Field(&r.Periods, validation.Required),
	)
	if err != nil {
		return err
	}
	for _, u := range r.Units {
		if err := validation.Validate(u.UnitCode, validation.Required); err != nil {
			return errors.New("unit_code is required on every unit")
		}
		if err := dateRule(u.EffectiveFrom); err != nil {
			return err
		}
	}
	for _, p := range r.Periods {
		if err := validation.Validate(p.CategoryCode, validation.Required); err != nil {
			return errors.New("category_code is required on every period")
		}
		if err := validation.Validate(p.Amount, validation.Min(int64(1))); err != nil {
			return errors.New("amount must be a positive number of minor-currency units")
		}
		if err := dateRule(p.From); err != nil {
			return err
		}
		if err := dateRule(p.To); err != nil {
			return err
		}
	}
	return nil
}

func (o *OverridePayment) ValidateOverridePayment() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Operator, validation.Required),
	)
}

// ToPaymentDecision converts a validated request into the domain decision.
func (r *RecordDisbursement) ToPaymentDecision() (*model.PaymentDecision, error) {
	decision := &model.PaymentDecision{
		DecisionID:   r.DecisionID,
		CaseID:       r.CaseID,
		PersonID:     r.PersonID,
		Sequence:     r.Sequence,
		SourceSystem: r.SourceSystem,
		Cancellation: r.Cancellation,
	}
	for _, u := range r.Units {
		effectiveFrom, err := model.ParseDate(u.EffectiveFrom)
		if err != nil {
			return nil, err
		}
		decision.Units = append(decision.Units, model.BeneficiaryUnit{
			UnitCode:      u.UnitCode,
			EffectiveFrom: effectiveFrom,
		})
	}
	for _, p := range r.Periods {
		from, err := model.ParseDate(p.From)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseDate(p.To)
		if err != nil {
			return nil, err
		}
		decision.Periods = append(decision.Periods, model.BenefitPeriod{
			CategoryCode: p.CategoryCode,
			Amount:       p.Amount,
			From:         from,
			To:           to,
		})
	}
	return decision, nil
}
