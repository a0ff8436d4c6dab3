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
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/jerry-enebeli/oppgjor/model"
)

func TestLastReconciledWindow_NoneYet(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT id, window_id, window_start, window_end").
		WillReturnError(sql.ErrNoRows)

	window, err := ds.LastReconciledWindow(context.TODO())
	assert.NoError(t, err)
	assert.Nil(t, window)
}

func TestLastReconciledWindow_ReturnsNewest(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	end := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, window_id, window_start, window_end").
		WillReturnRows(sqlmock.NewRows([]string{"id", "window_id", "window_start", "window_end", "record_count", "created_at"}).
			AddRow(1, "win_1", end.Add(-24*time.Hour), end, 42, end))

	window, err := ds.LastReconciledWindow(context.TODO())
	assert.NoError(t, err)
	assert.Equal(t, "win_1", window.WindowID)
	assert.Equal(t, end, window.End)
	assert.Equal(t, 42, window.RecordCount)
}

func TestPersistWindow_Contiguous(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	window := &model.ReconciliationWindow{
		WindowID:    "win_2",
		Start:       start,
		End:         start.Add(24 * time.Hour),
		RecordCount: 7,
		CreatedAt:   time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT window_end").
		WillReturnRows(sqlmock.NewRows([]string{"window_end"}).AddRow(start))
	mock.ExpectExec("INSERT INTO oppgjor.reconciliation_windows").
		WithArgs(window.WindowID, window.Start, window.End, window.RecordCount, window.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = ds.PersistWindow(context.TODO(), window)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistWindow_FirstWindowEver(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	window := &model.ReconciliationWindow{
		WindowID:  "win_1",
		Start:     model.WindowEpoch,
		End:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT window_end").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO oppgjor.reconciliation_windows").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = ds.PersistWindow(context.TODO(), window)
	assert.NoError(t, err)
}

func TestPersistWindow_RejectsGap(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	previousEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	window := &model.ReconciliationWindow{
		WindowID: "win_3",
		Start:    previousEnd.Add(time.Hour), // leaves a gap
		End:      previousEnd.Add(25 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT window_end").
		WillReturnRows(sqlmock.NewRows([]string{"window_end"}).AddRow(previousEnd))
	mock.ExpectRollback()

	err = ds.PersistWindow(context.TODO(), window)
	assert.Error(t, err)

	var overlap model.OverlappingWindowError
	assert.True(t, errors.As(err, &overlap))
	assert.Equal(t, previousEnd, overlap.PreviousEnd)
}

func TestGetWindows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	end := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, window_id, window_start, window_end").
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "window_id", "window_start", "window_end", "record_count", "created_at"}).
			AddRow(2, "win_2", end.Add(-24*time.Hour), end, 7, end).
			AddRow(1, "win_1", end.Add(-48*time.Hour), end.Add(-24*time.Hour), 42, end))

	windows, err := ds.GetWindows(context.TODO(), 10, 0)
	assert.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Equal(t, "win_2", windows[0].WindowID)
	assert.Equal(t, "win_1", windows[1].WindowID)
}
