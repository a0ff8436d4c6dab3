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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/oppgjor/internal/notification"
	"github.com/jerry-enebeli/oppgjor/model"
	"github.com/jerry-enebeli/oppgjor/wire"
)

// HandleReceipt parses one settlement receipt off the reply queue and applies
// it to the ledger. Rejection receipts keep the external error code and
// message verbatim for operator inspection.
func (o *Oppgjor) HandleReceipt(ctx context.Context, raw string) (*model.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "Handling settlement receipt")
	defer span.End()

	doc, err := wire.ParseReceipt([]byte(raw))
	if err != nil {
		return nil, err
	}

	receipt := &model.SettlementReceipt{
		ReceiptID:  model.GenerateUUIDWithSuffix("rcpt"),
		PaymentID:  doc.PaymentRef,
		Severity:   model.Severity(doc.Severity),
		Raw:        raw,
		ReceivedAt: time.Now(),
	}
	if doc.Error != nil {
		receipt.ErrorCode = doc.Error.Code
		receipt.ErrorMessage = doc.Error.Message
	}

	return o.datasource.ApplyReceipt(ctx, doc.PaymentRef, receipt)
}

// RunReceiptListener consumes the reply queue until the context is cancelled.
// It runs on its own goroutine, one consumer only. Malformed messages are
// logged and dropped; an unparseable receipt must never stop the listener,
// because a dead listener silently halts all future settlement processing.
func (o *Oppgjor) RunReceiptListener(ctx context.Context) {
	logrus.Info("receipt listener started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("receipt listener stopped")
			return
		default:
		}

		raw, err := o.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logrus.Info("receipt listener stopped")
				return
			}
			notification.NotifyError(err)
			// brief pause so a dead broker doesn't spin the loop
			time.Sleep(time.Second)
			continue
		}
		if raw == "" {
			continue
		}

		if _, err := o.HandleReceipt(ctx, raw); err != nil {
			logrus.Errorf("dropping settlement receipt: %v", err)
			notification.NotifyError(err)
		}
	}
}
