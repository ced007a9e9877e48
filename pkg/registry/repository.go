package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/luxtrace/assembler/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for component records
type Repository struct {
	db *sql.DB
}

// NewRepository opens the component database and ensures the schema exists
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("registry_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("registry_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open component database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("registry_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("registry_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new component record
func (r *Repository) Create(c *Component) error {
	slog.Info("registry_create_component", "component_id", c.ID, "type", c.Type, "status", StatusName(c.Status))

	query := `
		INSERT INTO components (id, component_type, serial_number, status, manufacturer_address, image, location, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		c.ID, c.Type, c.SerialNumber, c.Status,
		c.ManufacturerAddress, c.Image, c.Location, c.RecordedAt)
	if err != nil {
		slog.Error("registry_insert_failed", "component_id", c.ID, "error", err)
		return errors.Wrap(err, "failed to insert component")
	}

	slog.Info("registry_component_created", "component_id", c.ID, "status", StatusName(c.Status))
	return nil
}

// GetByID retrieves a component by its identifier.
// Returns (nil, nil) when no record exists: an empty lookup is
// "not found", not an error.
func (r *Repository) GetByID(id string) (*Component, error) {
	query := `
		SELECT id, component_type, serial_number, status,
		       manufacturer_address, image, location, recorded_at, created_at, updated_at
		FROM components WHERE id = ?
	`
	var c Component
	var manufacturer, image, location, recordedAt sql.NullString

	err := r.db.QueryRow(query, id).Scan(
		&c.ID, &c.Type, &c.SerialNumber, &c.Status,
		&manufacturer, &image, &location, &recordedAt,
		&c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Info("registry_component_not_found", "component_id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("registry_query_failed", "component_id", id, "error", err)
		return nil, errors.Wrap(err, "failed to query component")
	}

	c.ManufacturerAddress = manufacturer.String
	c.Image = image.String
	c.Location = location.String
	c.RecordedAt = recordedAt.String

	return &c, nil
}

// Certify advances a component from manufactured to certified.
// Status never regresses, so the update is guarded on the current value.
func (r *Repository) Certify(id string) error {
	slog.Info("registry_certify_component", "component_id", id)

	query := `UPDATE components SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`
	result, err := r.db.Exec(query, StatusCertified, id, StatusManufactured)
	if err != nil {
		slog.Error("registry_certify_failed", "component_id", id, "error", err)
		return errors.Wrap(err, "failed to certify component")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		slog.Error("registry_certify_rejected", "component_id", id)
		return fmt.Errorf("component %s not found or not in manufactured state", id)
	}

	slog.Info("registry_component_certified", "component_id", id)
	return nil
}

// MarkUsed advances a set of components from certified to used in one
// transaction. Called after a successful ledger commit to mirror the
// ledger's side-effect; the ledger remains authoritative for status.
func (r *Repository) MarkUsed(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("registry_begin_tx_failed", "error", err)
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `UPDATE components SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`
	for _, id := range ids {
		result, err := tx.ExecContext(ctx, query, StatusUsed, id, StatusCertified)
		if err != nil {
			slog.Error("registry_mark_used_failed", "component_id", id, "error", err)
			return errors.Wrap(err, "failed to mark component used")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to get rows affected")
		}
		if rows == 0 {
			slog.Error("registry_mark_used_rejected", "component_id", id)
			return fmt.Errorf("component %s not found or not certified", id)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("registry_commit_tx_failed", "error", err)
		return errors.Wrap(err, "failed to commit transaction")
	}

	slog.Info("registry_components_marked_used", "component_count", len(ids))
	return nil
}

// List retrieves all component records, newest first
func (r *Repository) List() ([]*Component, error) {
	query := `
		SELECT id, component_type, serial_number, status,
		       manufacturer_address, image, location, recorded_at, created_at, updated_at
		FROM components ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		slog.Error("registry_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list components")
	}
	defer rows.Close()

	var components []*Component
	for rows.Next() {
		var c Component
		var manufacturer, image, location, recordedAt sql.NullString

		err := rows.Scan(
			&c.ID, &c.Type, &c.SerialNumber, &c.Status,
			&manufacturer, &image, &location, &recordedAt,
			&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			slog.Error("registry_scan_row_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}

		c.ManufacturerAddress = manufacturer.String
		c.Image = image.String
		c.Location = location.String
		c.RecordedAt = recordedAt.String

		components = append(components, &c)
	}

	if err := rows.Err(); err != nil {
		slog.Error("registry_rows_error", "error", err)
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("registry_list_complete", "component_count", len(components))
	return components, nil
}
