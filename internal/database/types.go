package database

// NewMeasurement is a measurement row that has not been persisted yet.
type NewMeasurement struct {
	ParameterID int64
	Value       float64
	CapturedAt  int64
}

// Measurement is a persisted measurement row.
type Measurement struct {
	MeasurementID int64
	ParameterID   int64
	Value         float64
	CapturedAt    int64
}

// AlertRule is a threshold rule bound to a parameter together with its subscribed users.
type AlertRule struct {
	AlertID     int64
	ParameterID int64
	Operator    string
	Threshold   float64
	Title       string
	Body        string
	Subscribers []int64
}
