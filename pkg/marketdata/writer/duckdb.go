package writer

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// DuckDBWriter writes a DuckDB database file with a single long-form prices table.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	sq         squirrel.StatementBuilderType
	outputPath string
	options    Options
	tickers    []string
}

// NewDuckDBWriter creates a new DuckDBWriter.
// outputPath is the database file; an existing prices table in it is replaced.
func NewDuckDBWriter(outputPath string, options Options) PriceWriter {
	return &DuckDBWriter{
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		outputPath: outputPath,
		options:    options,
	}
}

// Initialize opens the database, creates the prices table and begins a transaction.
func (w *DuckDBWriter) Initialize(tickers []string) (err error) {
	w.db, err = sql.Open("duckdb", w.outputPath)
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = w.db.Exec(`
		CREATE OR REPLACE TABLE prices (
			id TEXT,
			time TIMESTAMP,
			label TEXT,
			ticker TEXT,
			price DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()
		w.db = nil

		return fmt.Errorf("failed to create table: %w", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()
		w.db = nil

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.tickers = tickers

	return nil
}

// Write inserts one record per ticker within the transaction.
func (w *DuckDBWriter) Write(row types.PriceRow) error {
	if w.tx == nil {
		return fmt.Errorf("writer not initialized or transaction is nil")
	}

	if len(row.Values) != len(w.tickers) {
		return fmt.Errorf("row has %d values, expected %d", len(row.Values), len(w.tickers))
	}

	if len(row.Values) == 0 {
		return nil
	}

	label := w.options.formatTime(row)

	insert := w.sq.Insert("prices").Columns("id", "time", "label", "ticker", "price")
	for i, v := range row.Values {
		var price any
		if p, ok := roundPrice(v, w.options.Precision); ok {
			price = p
		}

		insert = insert.Values(recordID(w.tickers[i], row.Time).String(), row.Time.UTC(), label, w.tickers[i], price)
	}

	if _, err := insert.RunWith(w.tx).Exec(); err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	return nil
}

// recordID derives a stable id from the ticker and bar time, so rewriting the same table yields the same ids.
func recordID(ticker string, t time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(ticker+"|"+t.UTC().Format(time.RFC3339Nano)))
}

// Finalize commits the transaction and checkpoints the database file.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()
		w.tx = nil

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.tx = nil

	if _, err = w.db.Exec("CHECKPOINT"); err != nil {
		return "", fmt.Errorf("failed to checkpoint database: %w", err)
	}

	return w.outputPath, nil
}

// Close rolls back an unfinished transaction and closes the connection.
func (w *DuckDBWriter) Close() error {
	var closeErrors []error

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to rollback transaction: %w", err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close db connection: %w", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		errMsg := "errors occurred during close:"
		for _, e := range closeErrors {
			errMsg += fmt.Sprintf("\n- %v", e)
		}

		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}
