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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/oppgjor/config"
	redlock "github.com/jerry-enebeli/oppgjor/internal/lock"
	"github.com/jerry-enebeli/oppgjor/model"
	"github.com/jerry-enebeli/oppgjor/wire"
)

const reconciliationLockKey = "oppgjor:reconciliation:lock"

// ErrReconciliationRunning reports that another reconciliation run holds the
// single-flight lock. Callers check for it with errors.Is; losing the race is
// a skip, not a failure.
var ErrReconciliationRunning = errors.New("reconciliation already running")

// StartReconciliation reports every ledger entry since the last completed
// window to the counterparty as a START/DATA*/END envelope and records the
// window once the full envelope is on the queue.
//
// The window is half-open [start, windowEnd): start comes from the previous
// window's end (epoch when none exists), never from the caller. Any transport
// failure mid-envelope leaves no window row behind, so the next trigger
// simply covers the same range again. A redis lock keeps concurrent triggers
// from interleaving envelopes; the contiguity check in PersistWindow is the
// durable backstop should the lock ever lapse.
func (o *Oppgjor) StartReconciliation(ctx context.Context, windowEnd time.Time) (*model.ReconciliationWindow, error) {
	ctx, span := tracer.Start(ctx, "Running reconciliation")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	locker := redlock.NewLocker(o.redis, reconciliationLockKey, model.GenerateUUIDWithSuffix("lock"))
	if err := locker.Lock(ctx, 30*time.Minute); err != nil {
		return nil, errors.Wrap(ErrReconciliationRunning, err.Error())
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Warnf("failed to release reconciliation lock: %v", err)
		}
	}()

	windowStart := model.WindowEpoch
	last, err := o.datasource.LastReconciledWindow(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		windowStart = last.End
	}

	records, err := o.datasource.FindPaymentsBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	runID := model.GenerateUUIDWithSuffix("avs")
	messages := wire.BuildEnvelope(runID, conf.Transport.SourceComponent, conf.Transport.DestinationComponent, records, windowStart, windowEnd)

	for _, message := range messages {
		payload, err := wire.MarshalMessage(message)
		if err != nil {
			return nil, errors.Wrapf(err, "serializing %s message for run %s", message.Type, runID)
		}
		if err := o.transport.Send(ctx, string(payload)); err != nil {
			// Window is not persisted; the whole range stays eligible for
			// the next trigger.
			return nil, errors.Wrapf(err, "transmitting %s message for run %s", message.Type, runID)
		}
	}

	window := &model.ReconciliationWindow{
		WindowID:    model.GenerateUUIDWithSuffix("win"),
		Start:       windowStart,
		End:         windowEnd,
		RecordCount: len(records),
		CreatedAt:   time.Now(),
	}
	if err := o.datasource.PersistWindow(ctx, window); err != nil {
		return nil, err
	}

	logrus.Infof("reconciliation run %s completed: %d records in [%s, %s)", runID, len(records),
		windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
	return window, nil
}

// GetReconciliationWindows exposes the audit trail of completed runs.
func (o *Oppgjor) GetReconciliationWindows(ctx context.Context, limit, offset int) ([]*model.ReconciliationWindow, error) {
	return o.datasource.GetWindows(ctx, limit, offset)
}
