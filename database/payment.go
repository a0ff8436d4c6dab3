package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/oppgjor/internal/apierror"
	"github.com/jerry-enebeli/oppgjor/model"
)

const paymentColumns = `id, payment_id, decision_id, case_id, person_id, sequence, status, order_payload,
		receipt_payload, error_code, error_message, receipt_at, reconciliation_key, created_at, updated_at`

// RecordPayment inserts a new ledger entry. The entry arrives in status SENT
// with its reconciliation key already assigned; the key is never updated
// afterwards.
func (d Datasource) RecordPayment(ctx context.Context, record *model.PaymentRecord) (*model.PaymentRecord, error) {
	ctx, span := otel.Tracer("payment.ledger").Start(ctx, "Saving payment to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO oppgjor.payments(payment_id, decision_id, case_id, person_id, sequence, status, order_payload, reconciliation_key, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		record.PaymentID, record.DecisionID, record.CaseID, record.PersonID, record.Sequence,
		record.Status, record.OrderPayload, record.ReconciliationKey, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, model.DuplicateOrderError{DecisionID: record.DecisionID, Sequence: record.Sequence}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment", err)
	}

	return record, nil
}

// GetPayment retrieves a ledger entry by its payment id.
func (d Datasource) GetPayment(ctx context.Context, paymentID string) (*model.PaymentRecord, error) {
	ctx, span := otel.Tracer("payment.ledger").Start(ctx, "Fetching payment from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM oppgjor.payments
		WHERE payment_id = $1
	`, paymentID)

	record, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.UnknownPaymentError{PaymentID: paymentID}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment", err)
	}
	return record, nil
}

// ApplyReceipt records a settlement receipt and transitions the payment's
// status, atomically. The status only moves forward: receipts applied to a
// payment already in a terminal state are stored for the audit trail but do
// not change the status.
func (d Datasource) ApplyReceipt(ctx context.Context, paymentID string, receipt *model.SettlementReceipt) (*model.PaymentRecord, error) {
	ctx, span := otel.Tracer("payment.ledger").Start(ctx, "Applying settlement receipt")
	defer span.End()

	newStatus, ok := receipt.Severity.Status()
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unknown severity code '%s'", receipt.Severity), nil)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var currentStatus model.PaymentStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM oppgjor.payments WHERE payment_id = $1 FOR UPDATE
	`, paymentID).Scan(&currentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.UnknownPaymentError{PaymentID: paymentID}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock payment", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO oppgjor.settlement_receipts(receipt_id, payment_id, severity, error_code, error_message, raw, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		receipt.ReceiptID, paymentID, receipt.Severity, receipt.ErrorCode, receipt.ErrorMessage, receipt.Raw, receipt.ReceivedAt,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record settlement receipt", err)
	}

	if !currentStatus.Terminal() {
		_, err = tx.ExecContext(ctx, `
			UPDATE oppgjor.payments
			SET status = $2, error_code = $3, error_message = $4, receipt_payload = $5, receipt_at = $6, updated_at = $7
			WHERE payment_id = $1
		`, paymentID, newStatus, receipt.ErrorCode, receipt.ErrorMessage, receipt.Raw, receipt.ReceivedAt, time.Now())
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payment status", err)
		}
	}

	record, err := scanPayment(tx.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM oppgjor.payments
		WHERE payment_id = $1
	`, paymentID))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to re-read payment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit receipt", err)
	}
	return record, nil
}

// OverridePayment applies the manual operator correction. This is the single
// allowed transition out of a terminal state: REJECTED -> ACCEPTED. The
// override leaves a synthetic receipt row naming the operator.
func (d Datasource) OverridePayment(ctx context.Context, paymentID, operator string) (*model.PaymentRecord, error) {
	ctx, span := otel.Tracer("payment.ledger").Start(ctx, "Overriding rejected payment")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var currentStatus model.PaymentStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM oppgjor.payments WHERE payment_id = $1 FOR UPDATE
	`, paymentID).Scan(&currentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.UnknownPaymentError{PaymentID: paymentID}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock payment", err)
	}

	if currentStatus != model.StatusRejected {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Payment '%s' is %s; only rejected payments can be overridden", paymentID, currentStatus), nil)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE oppgjor.payments SET status = $2, updated_at = $3 WHERE payment_id = $1
	`, paymentID, model.StatusAccepted, now)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to override payment status", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO oppgjor.settlement_receipts(receipt_id, payment_id, severity, error_code, error_message, raw, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		model.GenerateUUIDWithSuffix("man"), paymentID, model.SeverityOK, "", "",
		fmt.Sprintf("manual override by %s", operator), now,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record override receipt", err)
	}

	record, err := scanPayment(tx.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM oppgjor.payments
		WHERE payment_id = $1
	`, paymentID))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to re-read payment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit override", err)
	}
	return record, nil
}

// FindPaymentsBetween returns records whose reconciliation key falls in the
// half-open range [windowStart, windowEnd), ordered by key ascending.
func (d Datasource) FindPaymentsBetween(ctx context.Context, windowStart, windowEnd time.Time) ([]*model.PaymentRecord, error) {
	ctx, span := otel.Tracer("payment.ledger").Start(ctx, "Fetching payments for reconciliation window")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM oppgjor.payments
		WHERE reconciliation_key >= $1 AND reconciliation_key < $2
		ORDER BY reconciliation_key ASC
	`, windowStart, windowEnd)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payments", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// GetPaymentsByStatus lists ledger entries in a given status, newest first.
// Operators use this to spot payments stuck in SENT or REJECTED. Pages are
// cached briefly; the ledger only moves forward, so a stale page can at worst
// show a payment one transition behind.
func (d Datasource) GetPaymentsByStatus(ctx context.Context, status model.PaymentStatus, limit, offset int) ([]*model.PaymentRecord, error) {
	ctx, span := otel.Tracer("payment.ledger").Start(ctx, "Fetching payments by status")
	defer span.End()

	cacheKey := fmt.Sprintf("payments:status:%s:%d:%d", status, limit, offset)

	var cached []*model.PaymentRecord
	if d.Cache != nil {
		err := d.Cache.Get(ctx, cacheKey, &cached)
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM oppgjor.payments
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payments", err)
	}
	defer rows.Close()

	records, err := collectPayments(rows)
	if err != nil {
		return nil, err
	}

	if d.Cache != nil && len(records) > 0 {
		if err := d.Cache.Set(ctx, cacheKey, records, 1*time.Minute); err != nil {
			// Log the error, but don't return it as the main operation succeeded
			log.Printf("Failed to cache payments: %v", err)
		}
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*model.PaymentRecord, error) {
	record := &model.PaymentRecord{}
	var receiptPayload, errorCode, errorMessage sql.NullString
	var receiptAt sql.NullTime

	err := row.Scan(
		&record.ID, &record.PaymentID, &record.DecisionID, &record.CaseID, &record.PersonID,
		&record.Sequence, &record.Status, &record.OrderPayload,
		&receiptPayload, &errorCode, &errorMessage, &receiptAt,
		&record.ReconciliationKey, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ReceiptPayload = receiptPayload.String
	record.ErrorCode = errorCode.String
	record.ErrorMessage = errorMessage.String
	if receiptAt.Valid {
		t := receiptAt.Time
		record.ReceiptAt = &t
	}
	return record, nil
}

func collectPayments(rows *sql.Rows) ([]*model.PaymentRecord, error) {
	var records []*model.PaymentRecord
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment data", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over payments", err)
	}
	return records, nil
}
