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

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/oppgjor/model"
)

// GetPayment returns a single ledger entry.
func (o *Oppgjor) GetPayment(ctx context.Context, paymentID string) (*model.PaymentRecord, error) {
	return o.datasource.GetPayment(ctx, paymentID)
}

// GetPaymentsByStatus lists ledger entries in a status. Operators use it to
// find payments stuck in SENT or REJECTED without an override.
func (o *Oppgjor) GetPaymentsByStatus(ctx context.Context, status model.PaymentStatus, limit, offset int) ([]*model.PaymentRecord, error) {
	return o.datasource.GetPaymentsByStatus(ctx, status, limit, offset)
}

// OverridePayment applies the manual REJECTED -> ACCEPTED operator
// transition, the only way out of a terminal state.
func (o *Oppgjor) OverridePayment(ctx context.Context, paymentID, operator string) (*model.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "Applying manual payment override")
	defer span.End()

	record, err := o.datasource.OverridePayment(ctx, paymentID, operator)
	if err != nil {
		return nil, err
	}
	logrus.Infof("payment %s overridden to %s by %s", paymentID, record.Status, operator)
	return record, nil
}

// QueueReconciliation enqueues a manual reconciliation trigger and returns
// the run id assigned to it.
func (o *Oppgjor) QueueReconciliation(ctx context.Context) (string, error) {
	runID := model.GenerateUUIDWithSuffix("avs")
	if err := o.queue.EnqueueReconciliation(ctx, runID); err != nil {
		return "", err
	}
	return runID, nil
}
