// Package events defines the messages the data processor emits to other systems.
package events

import "time"

// SchemaVersion is the current version of the AlarmCreated payload.
const SchemaVersion = 1

// ProcessingLogType is the message type of the processing-started notification.
const ProcessingLogType = "PROCESSING_LOG"

// ProcessingLog is sent over the notification channel when a station document starts processing.
type ProcessingLog struct {
	Type              string            `json:"type"`
	DataProcessingLog DataProcessingLog `json:"dataProcessingLog"`
}

// DataProcessingLog identifies the station and the moment processing started.
type DataProcessingLog struct {
	StationID string    `json:"id_estacao"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProcessingLog builds the processing-started notification for a station.
func NewProcessingLog(stationID string, at time.Time) ProcessingLog {
	return ProcessingLog{
		Type: ProcessingLogType,
		DataProcessingLog: DataProcessingLog{
			StationID: stationID,
			CreatedAt: at.UTC(),
		},
	}
}

// AlarmCreated is published once for every alarm row the evaluator creates.
type AlarmCreated struct {
	AlarmID       int64   `json:"alarm_id"`
	UserID        int64   `json:"user_id"`
	MeasurementID int64   `json:"measurement_id"`
	AlertID       int64   `json:"alert_id"`
	ParameterID   int64   `json:"parameter_id"`
	Value         float64 `json:"value"`
	CapturedAt    int64   `json:"captured_at"`
	Operator      string  `json:"operator"`
	Threshold     float64 `json:"threshold"`
	Title         string  `json:"title"`
	Body          string  `json:"body"`
	SchemaVersion int     `json:"schema_version"`
}
