package models

import "time"

// DeviceIdentity is the single persisted identity row for this installation.
// DeviceID is generated once and never changes; StudentCPF and RegisteredAt are
// set when the device is linked to a student and cleared on logout.
type DeviceIdentity struct {
	ID           uint   `gorm:"primaryKey"`
	DeviceID     string `gorm:"uniqueIndex;size:64"`
	StudentCPF   string `gorm:"size:11"`
	RegisteredAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registered reports whether the device has been linked to a student.
func (d DeviceIdentity) Registered() bool {
	return d.RegisteredAt != nil
}
