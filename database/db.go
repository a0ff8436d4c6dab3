package database

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/jerry-enebeli/oppgjor/cache"
	"github.com/jerry-enebeli/oppgjor/config"
)

// Datasource wraps the shared sql connection pool and an optional read cache.
// It is constructed once at startup and injected; there is no global lookup.
type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	conn, err := ConnectDB(configuration.DataSource.Dns)
	if err != nil {
		return nil, err
	}

	cacheInstance, err := cache.NewCache()
	if err != nil {
		log.Printf("Error creating cache: %v", err)
		// Continue without cache instead of failing completely.
	}

	return &Datasource{Conn: conn, Cache: cacheInstance}, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error ❌: %v", err)
		return nil, err
	}
	_, err = db.Exec(`CREATE SCHEMA IF NOT EXISTS oppgjor`)
	if err != nil {
		return nil, err
	}
	err = createPaymentTable(db)
	if err != nil {
		return nil, err
	}
	err = createReceiptTable(db)
	if err != nil {
		return nil, err
	}
	err = createWindowTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createPaymentTable creates the ledger table for PaymentRecord. The unique
// index on (decision_id, sequence) is what makes order recording idempotent.
func createPaymentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS oppgjor.payments (
			id SERIAL PRIMARY KEY,
			payment_id TEXT NOT NULL UNIQUE,
			decision_id TEXT NOT NULL,
			case_id TEXT NOT NULL,
			person_id TEXT NOT NULL,
			sequence INT NOT NULL,
			status TEXT NOT NULL,
			order_payload TEXT NOT NULL,
			receipt_payload TEXT,
			error_code TEXT,
			error_message TEXT,
			receipt_at TIMESTAMP,
			reconciliation_key TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (decision_id, sequence)
		)
	`)
	if err != nil {
		log.Printf("Error creating payments table: %v", err)
	}
	return err
}

// createReceiptTable creates the append-only settlement receipt table.
func createReceiptTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS oppgjor.settlement_receipts (
			id SERIAL PRIMARY KEY,
			receipt_id TEXT NOT NULL UNIQUE,
			payment_id TEXT NOT NULL REFERENCES oppgjor.payments(payment_id),
			severity TEXT NOT NULL,
			error_code TEXT,
			error_message TEXT,
			raw TEXT,
			received_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating settlement_receipts table: %v", err)
	}
	return err
}

// createWindowTable creates the audit table of completed reconciliation runs.
func createWindowTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS oppgjor.reconciliation_windows (
			id SERIAL PRIMARY KEY,
			window_id TEXT NOT NULL UNIQUE,
			window_start TIMESTAMP NOT NULL,
			window_end TIMESTAMP NOT NULL,
			record_count INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating reconciliation_windows table: %v", err)
	}
	return err
}
