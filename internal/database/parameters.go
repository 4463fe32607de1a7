package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindParameterID resolves the parameter configured for a station and parameter type.
// Returns ErrParameterNotFound when the station has no such parameter.
func (db *DB) FindParameterID(ctx context.Context, stationID string, parameterTypeID int64) (int64, error) {
	query := `
		SELECT id_parametro
		FROM parametro
		WHERE id_estacao = $1 AND id_tipo_parametro = $2
		ORDER BY id_parametro
		LIMIT 1
	`

	var parameterID int64
	err := db.conn.QueryRowContext(ctx, query, stationID, parameterTypeID).Scan(&parameterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrParameterNotFound
		}
		return 0, fmt.Errorf("failed to find parameter: %w", err)
	}

	return parameterID, nil
}
