package domain

import "time"

// CheckinStatus records the validation outcome persisted with a check-in.
type CheckinStatus string

const (
	CheckinStatusValid  CheckinStatus = "valid"
	CheckinStatusManual CheckinStatus = "manual"
)

// CheckIn is a persisted attendance record.
type CheckIn struct {
	ID               string
	EventID          string
	UserName         string
	UserEmail        string
	Location         *LatLng
	QRToken          string
	CheckinTime      time.Time
	ValidationStatus CheckinStatus
	CreatedAt        time.Time
}
