package models

import "time"

// Location is the optional coordinate pair attached to a submission.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AttendancePayload is the wire body for POST {base}/events/attendance.
// Location is omitted entirely when resolution failed; DeviceTime is captured
// at the moment of the submission attempt, not at token acquisition.
type AttendancePayload struct {
	DeviceID   string    `json:"device_id"`
	QrToken    string    `json:"qr_token"`
	Location   *Location `json:"location,omitempty"`
	DeviceTime time.Time `json:"device_time"`
	StudentCPF string    `json:"student_cpf,omitempty"`
}

// SubmittedToken records a token that was confirmed by the BFF, so later scans
// of the same token short-circuit without another network call. The table is
// pruned to a bounded number of newest rows.
type SubmittedToken struct {
	ID          uint   `gorm:"primaryKey"`
	QrToken     string `gorm:"uniqueIndex"`
	SubmittedAt time.Time
}
