// Package identity persists the device's generated identifier and its link to
// a student. When the durable store is unavailable the store degrades to an
// in-memory identity for the session; callers never see storage errors from
// the read paths.
package identity

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

type Store struct {
	db *gorm.DB

	mu  sync.Mutex
	mem *models.DeviceIdentity // session-only fallback
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetOrCreate returns the persisted device id, generating and persisting one
// if none exists. It never returns an empty string.
func (s *Store) GetOrCreate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrCreateLocked().DeviceID
}

// Current returns the identity record and whether one exists at all.
func (s *Store) Current() (models.DeviceIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		var row models.DeviceIdentity
		err := s.db.First(&row).Error
		if err == nil {
			return row, true
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("identity: read failed, using in-memory identity: %v", err)
		}
	}
	if s.mem != nil {
		return *s.mem, true
	}
	return models.DeviceIdentity{}, false
}

// Save links the device to a student CPF and marks it registered. The device
// id itself is never regenerated here.
func (s *Store) Save(studentCPF string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.loadOrCreateLocked()
	now := time.Now().UTC()
	row.StudentCPF = studentCPF
	row.RegisteredAt = &now

	if s.db != nil {
		if err := s.db.Save(row).Error; err != nil {
			log.Printf("identity: persist failed, keeping registration in memory: %v", err)
			s.mem = row
			return nil
		}
		return nil
	}
	s.mem = row
	return nil
}

// IsRegistered reports whether the device is linked to a student.
func (s *Store) IsRegistered() bool {
	ident, ok := s.Current()
	return ok && ident.Registered()
}

// Clear unlinks the device from its student. The device id survives: it is
// immutable for the lifetime of the installation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		var row models.DeviceIdentity
		err := s.db.First(&row).Error
		if err == nil {
			row.StudentCPF = ""
			row.RegisteredAt = nil
			if err := s.db.Save(&row).Error; err != nil {
				log.Printf("identity: clear failed: %v", err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("identity: clear failed: %v", err)
		}
	}
	if s.mem != nil {
		s.mem.StudentCPF = ""
		s.mem.RegisteredAt = nil
	}
}

func (s *Store) loadOrCreateLocked() *models.DeviceIdentity {
	if s.db != nil {
		var row models.DeviceIdentity
		err := s.db.First(&row).Error
		if err == nil {
			return &row
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.DeviceIdentity{DeviceID: generateID()}
			cerr := s.db.Create(&row).Error
			if cerr == nil {
				return &row
			}
			log.Printf("identity: create failed, using in-memory identity: %v", cerr)
		} else {
			log.Printf("identity: read failed, using in-memory identity: %v", err)
		}
	}
	if s.mem == nil {
		s.mem = &models.DeviceIdentity{DeviceID: generateID()}
	}
	return s.mem
}

// generateID prefers a random UUID and falls back to a timestamp-based id if
// secure randomness is unavailable.
func generateID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("dev_%d_%09d", time.Now().UnixMilli(), rand.Intn(1_000_000_000))
	}
	return id.String()
}
