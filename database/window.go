package database

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/oppgjor/internal/apierror"
	"github.com/jerry-enebeli/oppgjor/model"
)

// LastReconciledWindow returns the most recently completed reconciliation
// window, or nil when no reconciliation has run yet.
func (d Datasource) LastReconciledWindow(ctx context.Context) (*model.ReconciliationWindow, error) {
	ctx, span := otel.Tracer("reconciliation.window").Start(ctx, "Fetching last reconciled window")
	defer span.End()

	window := &model.ReconciliationWindow{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, window_id, window_start, window_end, record_count, created_at
		FROM oppgjor.reconciliation_windows
		ORDER BY window_end DESC
		LIMIT 1
	`).Scan(&window.ID, &window.WindowID, &window.Start, &window.End, &window.RecordCount, &window.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve last window", err)
	}
	return window, nil
}

// PersistWindow records a completed reconciliation run. The new window must
// start exactly at the previous window's end; the check runs under a row
// lock so two concurrent runs cannot both commit the same range.
func (d Datasource) PersistWindow(ctx context.Context, window *model.ReconciliationWindow) error {
	ctx, span := otel.Tracer("reconciliation.window").Start(ctx, "Persisting reconciliation window")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var previousEnd sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT window_end
		FROM oppgjor.reconciliation_windows
		ORDER BY window_end DESC
		LIMIT 1
		FOR UPDATE
	`).Scan(&previousEnd)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock last window", err)
	}

	if previousEnd.Valid && !previousEnd.Time.Equal(window.Start) {
		return model.OverlappingWindowError{PreviousEnd: previousEnd.Time, Start: window.Start}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO oppgjor.reconciliation_windows(window_id, window_start, window_end, record_count, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		window.WindowID, window.Start, window.End, window.RecordCount, window.CreatedAt,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to persist window", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit window", err)
	}
	return nil
}

// GetWindows returns completed windows, newest first.
func (d Datasource) GetWindows(ctx context.Context, limit, offset int) ([]*model.ReconciliationWindow, error) {
	ctx, span := otel.Tracer("reconciliation.window").Start(ctx, "Fetching reconciliation windows")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, window_id, window_start, window_end, record_count, created_at
		FROM oppgjor.reconciliation_windows
		ORDER BY window_end DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve windows", err)
	}
	defer rows.Close()

	var windows []*model.ReconciliationWindow
	for rows.Next() {
		window := &model.ReconciliationWindow{}
		err = rows.Scan(&window.ID, &window.WindowID, &window.Start, &window.End, &window.RecordCount, &window.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan window data", err)
		}
		windows = append(windows, window)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over windows", err)
	}
	return windows, nil
}
