// Package queue is the durable, ordered list of attendance submissions that
// have not been confirmed by the BFF. Entries are drained oldest-first; each
// carries a retry count and is dropped once the cap is reached. Entries the
// store cannot persist are kept in a session-only memory list that every read
// path merges in, so a Queued answer always means the entry is drainable.
package queue

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

type Queue struct {
	db         *gorm.DB
	maxRetries int

	mu  sync.Mutex
	mem []models.QueuedSubmission // entries the durable store could not hold
}

func New(db *gorm.DB, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Queue{db: db, maxRetries: maxRetries}
}

// Enqueue appends a new entry with retry count zero.
func (q *Queue) Enqueue(p models.AttendancePayload) models.QueuedSubmission {
	entry := models.QueuedSubmission{
		ID:         uuid.NewString(),
		DeviceID:   p.DeviceID,
		QrToken:    p.QrToken,
		DeviceTime: p.DeviceTime,
		StudentCPF: p.StudentCPF,
		EnqueuedAt: time.Now().UTC(),
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		entry.Latitude = &lat
		entry.Longitude = &lng
	}

	if q.db != nil {
		err := q.db.Create(&entry).Error
		if err == nil {
			return entry
		}
		log.Printf("queue: enqueue persist failed, keeping entry in memory: %v", err)
	}
	q.mu.Lock()
	q.mem = append(q.mem, entry)
	q.mu.Unlock()
	return entry
}

// ListAll returns all entries oldest-first: persisted rows first, then the
// memory-only entries in their own insertion order.
func (q *Queue) ListAll() []models.QueuedSubmission {
	var entries []models.QueuedSubmission
	if q.db != nil {
		if err := q.db.Order("seq asc").Find(&entries).Error; err != nil {
			log.Printf("queue: list failed, returning memory entries only: %v", err)
			entries = nil
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return append(entries, q.mem...)
}

// Remove deletes the entry with the given id; absent ids are a no-op.
func (q *Queue) Remove(id string) {
	if q.db != nil {
		if err := q.db.Where("id = ?", id).Delete(&models.QueuedSubmission{}).Error; err != nil {
			log.Printf("queue: remove %s failed: %v", id, err)
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.mem {
		if e.ID == id {
			q.mem = append(q.mem[:i], q.mem[i+1:]...)
			return
		}
	}
}

// IncrementRetry bumps the entry's retry count. When the count reaches the
// cap the entry is removed instead and true is returned.
func (q *Queue) IncrementRetry(id string) (dropped bool) {
	if q.db != nil {
		var entry models.QueuedSubmission
		err := q.db.Where("id = ?", id).First(&entry).Error
		if err == nil {
			entry.RetryCount++
			if entry.RetryCount >= q.maxRetries {
				log.Printf("queue: dropping %s (token %s) after %d failed attempts", id, entry.QrToken, entry.RetryCount)
				q.Remove(id)
				return true
			}
			if err := q.db.Save(&entry).Error; err != nil {
				log.Printf("queue: retry update for %s failed: %v", id, err)
			}
			return false
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("queue: retry lookup for %s failed, checking memory entries: %v", id, err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.mem {
		if q.mem[i].ID != id {
			continue
		}
		q.mem[i].RetryCount++
		if q.mem[i].RetryCount >= q.maxRetries {
			log.Printf("queue: dropping %s (token %s) after %d failed attempts", id, q.mem[i].QrToken, q.mem[i].RetryCount)
			q.mem = append(q.mem[:i], q.mem[i+1:]...)
			return true
		}
		return false
	}
	return false
}

// HasToken reports whether any pending entry carries the given token.
func (q *Queue) HasToken(token string) bool {
	if q.db != nil {
		var n int64
		err := q.db.Model(&models.QueuedSubmission{}).Where("qr_token = ?", token).Count(&n).Error
		if err == nil && n > 0 {
			return true
		}
		if err != nil {
			log.Printf("queue: token lookup failed, checking memory entries: %v", err)
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.mem {
		if e.QrToken == token {
			return true
		}
	}
	return false
}

// Count returns the number of pending entries.
func (q *Queue) Count() int64 {
	var n int64
	if q.db != nil {
		if err := q.db.Model(&models.QueuedSubmission{}).Count(&n).Error; err != nil {
			log.Printf("queue: count failed, counting memory entries only: %v", err)
			n = 0
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return n + int64(len(q.mem))
}

// Clear removes every entry.
func (q *Queue) Clear() {
	if q.db != nil {
		if err := q.db.Where("1 = 1").Delete(&models.QueuedSubmission{}).Error; err != nil {
			log.Printf("queue: clear failed: %v", err)
		}
	}
	q.mu.Lock()
	q.mem = nil
	q.mu.Unlock()
}
