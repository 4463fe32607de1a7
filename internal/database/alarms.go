package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// InsertAlarmIfAbsent creates an alarm for (user, measurement, alert) unless one already exists.
// The existence check and the insert run as a single statement, so concurrent callers cannot
// both create the same alarm. Returns the new alarm ID, or nil if the alarm already existed.
func (db *DB) InsertAlarmIfAbsent(ctx context.Context, userID, measurementID, alertID int64) (*int64, error) {
	query := `
		INSERT INTO alarme (id_usuario, id_medida, id_alerta)
		SELECT $1::bigint, $2::bigint, $3::bigint
		WHERE NOT EXISTS (
			SELECT 1 FROM alarme
			WHERE id_usuario = $1 AND id_medida = $2 AND id_alerta = $3
		)
		ON CONFLICT DO NOTHING
		RETURNING id_alarme
	`

	var alarmID int64
	err := db.conn.QueryRowContext(ctx, query, userID, measurementID, alertID).Scan(&alarmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("Alarm already exists, skipping",
				"user_id", userID,
				"measurement_id", measurementID,
				"alert_id", alertID,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert alarm: %w", err)
	}

	slog.Info("Inserted new alarm",
		"alarm_id", alarmID,
		"user_id", userID,
		"measurement_id", measurementID,
		"alert_id", alertID,
	)

	return &alarmID, nil
}
