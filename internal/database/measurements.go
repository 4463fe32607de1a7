package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// InsertMeasurements bulk-inserts measurements, skipping rows that collide with an
// existing (parameter, timestamp) pair. Returns the number of rows actually inserted.
func (db *DB) InsertMeasurements(ctx context.Context, rows []NewMeasurement) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	parameterIDs := make([]int64, len(rows))
	values := make([]float64, len(rows))
	capturedAt := make([]int64, len(rows))
	for i, row := range rows {
		parameterIDs[i] = row.ParameterID
		values[i] = row.Value
		capturedAt[i] = row.CapturedAt
	}

	// Column arrays keep the whole batch in one statement; ON CONFLICT absorbs duplicates.
	query := `
		INSERT INTO medida (id_parametro, valor, data_hora)
		SELECT * FROM unnest($1::bigint[], $2::double precision[], $3::bigint[])
		ON CONFLICT DO NOTHING
	`

	result, err := db.conn.ExecContext(ctx, query,
		pq.Array(parameterIDs),
		pq.Array(values),
		pq.Array(capturedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert measurements: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted measurement count: %w", err)
	}

	slog.Debug("Inserted measurements",
		"candidates", len(rows),
		"inserted", inserted,
	)

	return inserted, nil
}

// FindMeasurements returns the persisted measurements for the given parameters at one timestamp.
func (db *DB) FindMeasurements(ctx context.Context, parameterIDs []int64, capturedAt int64) ([]Measurement, error) {
	if len(parameterIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id_medida, id_parametro, valor, data_hora
		FROM medida
		WHERE id_parametro = ANY($1) AND data_hora = $2
		ORDER BY id_parametro, id_medida
	`

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(parameterIDs), capturedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.MeasurementID, &m.ParameterID, &m.Value, &m.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurements: %w", err)
	}

	return measurements, nil
}
