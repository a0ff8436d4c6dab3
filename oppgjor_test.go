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
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"

	"github.com/jerry-enebeli/oppgjor/config"
	"github.com/jerry-enebeli/oppgjor/model"
)

// fakeDataSource is an in-memory stand-in for database.IDataSource, enforcing
// the same invariants the postgres implementation does.
type fakeDataSource struct {
	mu       sync.Mutex
	payments map[string]*model.PaymentRecord
	receipts []*model.SettlementReceipt
	windows  []*model.ReconciliationWindow
}

func newFakeDataSource() *fakeDataSource {
	return &fakeDataSource{payments: make(map[string]*model.PaymentRecord)}
}

func (f *fakeDataSource) RecordPayment(_ context.Context, record *model.PaymentRecord) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.payments {
		if existing.DecisionID == record.DecisionID && existing.Sequence == record.Sequence {
			return nil, model.DuplicateOrderError{DecisionID: record.DecisionID, Sequence: record.Sequence}
		}
	}
	f.payments[record.PaymentID] = record
	return record, nil
}

func (f *fakeDataSource) GetPayment(_ context.Context, paymentID string) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.payments[paymentID]
	if !ok {
		return nil, model.UnknownPaymentError{PaymentID: paymentID}
	}
	return record, nil
}

func (f *fakeDataSource) ApplyReceipt(_ context.Context, paymentID string, receipt *model.SettlementReceipt) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.payments[paymentID]
	if !ok {
		return nil, model.UnknownPaymentError{PaymentID: paymentID}
	}
	f.receipts = append(f.receipts, receipt)
	if !record.Status.Terminal() {
		newStatus, _ := receipt.Severity.Status()
		record.Status = newStatus
		record.ErrorCode = receipt.ErrorCode
		record.ErrorMessage = receipt.ErrorMessage
		record.ReceiptPayload = receipt.Raw
		receivedAt := receipt.ReceivedAt
		record.ReceiptAt = &receivedAt
		record.UpdatedAt = time.Now()
	}
	return record, nil
}

func (f *fakeDataSource) OverridePayment(_ context.Context, paymentID, _ string) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.payments[paymentID]
	if !ok {
		return nil, model.UnknownPaymentError{PaymentID: paymentID}
	}
	if record.Status != model.StatusRejected {
		return nil, fmt.Errorf("payment %s is %s, not overridable", paymentID, record.Status)
	}
	record.Status = model.StatusAccepted
	record.UpdatedAt = time.Now()
	return record, nil
}

func (f *fakeDataSource) FindPaymentsBetween(_ context.Context, start, end time.Time) ([]*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []*model.PaymentRecord
	for _, record := range f.payments {
		key := record.ReconciliationKey
		if !key.Before(start) && key.Before(end) {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ReconciliationKey.Before(records[j].ReconciliationKey)
	})
	return records, nil
}

func (f *fakeDataSource) GetPaymentsByStatus(_ context.Context, status model.PaymentStatus, _, _ int) ([]*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []*model.PaymentRecord
	for _, record := range f.payments {
		if record.Status == status {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeDataSource) LastReconciledWindow(_ context.Context) (*model.ReconciliationWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.windows) == 0 {
		return nil, nil
	}
	return f.windows[len(f.windows)-1], nil
}

func (f *fakeDataSource) PersistWindow(_ context.Context, window *model.ReconciliationWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.windows) > 0 {
		previous := f.windows[len(f.windows)-1]
		if !previous.End.Equal(window.Start) {
			return model.OverlappingWindowError{PreviousEnd: previous.End, Start: window.Start}
		}
	}
	f.windows = append(f.windows, window)
	return nil
}

func (f *fakeDataSource) GetWindows(_ context.Context, _, _ int) ([]*model.ReconciliationWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	windows := make([]*model.ReconciliationWindow, len(f.windows))
	copy(windows, f.windows)
	sort.Slice(windows, func(i, j int) bool { return windows[j].End.Before(windows[i].End) })
	return windows, nil
}

// newTestService wires an Oppgjor instance against miniredis and the
// in-memory datasource.
func newTestService(t *testing.T) (*Oppgjor, *fakeDataSource, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	conf := &config.Configuration{
		ProjectName: "Oppgjor Test",
		DataSource:  config.DataSourceConfig{Dns: "test-dns"},
		Redis:       config.RedisConfig{Dns: mr.Addr()},
		Transport: config.TransportConfig{
			Dns:                  mr.Addr(),
			SendQueue:            "oppgjor:orders:out",
			ReplyQueue:           "oppgjor:receipts:in",
			SourceComponent:      "OPPGJOR",
			DestinationComponent: "UTBETALING",
			TimeoutSec:           1,
		},
		Queue: config.QueueConfig{
			DispatchQueue:       "new:dispatch",
			ReconciliationQueue: "new:reconciliation",
			MaxDispatchRetries:  3,
		},
	}
	config.MockConfig(conf)

	transport, err := NewTransport(conf)
	if err != nil {
		t.Fatalf("transport setup failed: %v", err)
	}
	t.Cleanup(func() { _ = transport.Close() })

	ds := newFakeDataSource()
	service := &Oppgjor{
		queue:      NewQueue(conf),
		transport:  transport,
		redis:      redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		datasource: ds,
	}
	return service, ds, mr
}

func mustFetchConfig(t *testing.T) *config.Configuration {
	t.Helper()
	conf, err := config.Fetch()
	if err != nil {
		t.Fatalf("config not mocked: %v", err)
	}
	return conf
}

func decisionMock(sequence int, cancellation bool) *model.PaymentDecision {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &model.PaymentDecision{
		DecisionID:   model.GenerateUUIDWithSuffix("dec"),
		CaseID:       fmt.Sprintf("case_%d", gofakeit.Number(1000, 9999)),
		PersonID:     "01019012345",
		Sequence:     sequence,
		SourceSystem: "PEN",
		Cancellation: cancellation,
		Units: []model.BeneficiaryUnit{
			{UnitCode: "4410", EffectiveFrom: from},
		},
		Periods: []model.BenefitPeriod{
			{CategoryCode: "UFOREP", Amount: 1250000, From: from, To: from.AddDate(0, 1, -1)},
		},
	}
}
