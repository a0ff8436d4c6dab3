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

package oppgjor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/oppgjor/model"
	"github.com/jerry-enebeli/oppgjor/wire"
)

// BuildOrder translates an attested payment decision into a disbursement
// order. One unit header per unique effective beneficiary unit, one line per
// benefit period. The line correlation id is caseId.lineSequence, stable
// across re-sends of an unchanged decision so the external system can detect
// duplicates.
func BuildOrder(decision *model.PaymentDecision) (*model.DisbursementOrder, error) {
	if len(decision.Periods) == 0 {
		return nil, model.InvalidDecisionError{Reason: "decision has no benefit periods"}
	}
	if len(decision.Units) == 0 {
		return nil, model.InvalidDecisionError{Reason: "decision has no beneficiary units"}
	}

	periods := make([]model.BenefitPeriod, len(decision.Periods))
	copy(periods, decision.Periods)
	sort.Slice(periods, func(i, j int) bool { return periods[i].From.Before(periods[j].From) })

	for i, p := range periods {
		if p.To.Before(p.From) {
			return nil, model.InvalidDecisionError{Reason: fmt.Sprintf("benefit period %d ends before it starts", i+1)}
		}
		if i > 0 && !periods[i-1].To.Before(p.From) {
			return nil, model.InvalidDecisionError{Reason: "benefit periods overlap"}
		}
	}

	lines := make([]model.OrderLine, 0, len(periods))
	for i, p := range periods {
		lines = append(lines, model.OrderLine{
			CorrelationID: fmt.Sprintf("%s.%d", decision.CaseID, i+1),
			CategoryCode:  p.CategoryCode,
			Amount:        p.Amount,
			From:          model.ToDate(p.From),
			To:            model.ToDate(p.To),
		})
	}

	// one header per unique unit code, dated from its earliest effective date
	unitsByCode := make(map[string]model.BeneficiaryUnit)
	for _, u := range decision.Units {
		existing, ok := unitsByCode[u.UnitCode]
		if !ok || u.EffectiveFrom.Before(existing.EffectiveFrom) {
			unitsByCode[u.UnitCode] = model.BeneficiaryUnit{
				UnitCode:      u.UnitCode,
				EffectiveFrom: model.ToDate(u.EffectiveFrom),
			}
		}
	}
	units := make([]model.BeneficiaryUnit, 0, len(unitsByCode))
	for _, u := range unitsByCode {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].EffectiveFrom.Equal(units[j].EffectiveFrom) {
			return units[i].UnitCode < units[j].UnitCode
		}
		return units[i].EffectiveFrom.Before(units[j].EffectiveFrom)
	})

	changeCode := model.ChangeUpdate
	previousOrderID := ""
	switch {
	case decision.Cancellation:
		changeCode = model.ChangeCancel
	case decision.Sequence <= 1:
		changeCode = model.ChangeNew
	}
	if changeCode != model.ChangeNew && decision.Sequence > 1 {
		// corrections reference the order they supersede by case + sequence
		previousOrderID = fmt.Sprintf("%s.%d", decision.CaseID, decision.Sequence-1)
	}

	return &model.DisbursementOrder{
		OrderID:         model.GenerateUUIDWithSuffix("ord"),
		DecisionID:      decision.DecisionID,
		CaseID:          decision.CaseID,
		PersonID:        decision.PersonID,
		Sequence:        decision.Sequence,
		SourceSystem:    decision.SourceSystem,
		ChangeCode:      changeCode,
		PreviousOrderID: previousOrderID,
		Units:           units,
		Lines:           lines,
		CreatedAt:       time.Now(),
	}, nil
}

// RecordDisbursement builds the order, writes the ledger entry in status SENT
// and queues it for dispatch. The ledger write happens before any send
// attempt; a send failure after this point is recoverable by re-delivery.
func (o *Oppgjor) RecordDisbursement(ctx context.Context, decision *model.PaymentDecision) (*model.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "Recording disbursement decision")
	defer span.End()

	order, err := BuildOrder(decision)
	if err != nil {
		return nil, err
	}

	paymentID := model.GenerateUUIDWithSuffix("pay")
	payload, err := wire.MarshalOrder(order, paymentID)
	if err != nil {
		return nil, errors.Wrap(err, "serializing disbursement order")
	}

	now := time.Now()
	record, err := o.datasource.RecordPayment(ctx, &model.PaymentRecord{
		PaymentID:         paymentID,
		DecisionID:        decision.DecisionID,
		CaseID:            decision.CaseID,
		PersonID:          decision.PersonID,
		Sequence:          decision.Sequence,
		Status:            model.StatusSent,
		OrderPayload:      string(payload),
		ReconciliationKey: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}

	if err := o.queue.EnqueueOrder(ctx, record.PaymentID); err != nil {
		// The ledger row exists; the dispatch worker's queue dedup makes a
		// later re-enqueue safe.
		logrus.Errorf("failed to enqueue dispatch for %s: %v", record.PaymentID, err)
		return record, err
	}
	return record, nil
}

// DispatchOrder sends a recorded payment's order payload to the counterparty.
// The transport itself never retries; this is the outer retry policy, bounded
// exponential backoff around the single send.
func (o *Oppgjor) DispatchOrder(ctx context.Context, paymentID string) error {
	ctx, span := tracer.Start(ctx, "Dispatching order to counterparty")
	defer span.End()

	record, err := o.datasource.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	operation := func() error {
		return o.transport.Send(ctx, record.OrderPayload)
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return errors.Wrapf(err, "dispatching payment %s", paymentID)
	}

	logrus.Infof("dispatched payment %s (decision %s)", record.PaymentID, record.DecisionID)
	return nil
}
