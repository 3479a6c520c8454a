package models

import "time"

// QueuedSubmission is one not-yet-confirmed attendance submission waiting for
// connectivity. Seq gives strict insertion order; ID is the stable handle used
// by Remove/IncrementRetry. An entry is deleted on confirmed success or when
// RetryCount reaches the retry cap.
type QueuedSubmission struct {
	Seq        uint   `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"uniqueIndex;size:36"`
	DeviceID   string `gorm:"size:64"`
	QrToken    string `gorm:"index"`
	Latitude   *float64
	Longitude  *float64
	DeviceTime time.Time
	StudentCPF string `gorm:"size:11"`
	EnqueuedAt time.Time
	RetryCount int
}

// Payload rebuilds the wire payload this entry was created from.
func (q QueuedSubmission) Payload() AttendancePayload {
	p := AttendancePayload{
		DeviceID:   q.DeviceID,
		QrToken:    q.QrToken,
		DeviceTime: q.DeviceTime,
		StudentCPF: q.StudentCPF,
	}
	if q.Latitude != nil && q.Longitude != nil {
		p.Location = &Location{Latitude: *q.Latitude, Longitude: *q.Longitude}
	}
	return p
}
