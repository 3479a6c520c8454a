package orchestrator

import (
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

// tokenHistory is the persisted dedup guard: every confirmed token is
// recorded, and later scans of it short-circuit. The table is pruned to the
// newest limit rows. Without a durable store it degrades to a session map.
type tokenHistory struct {
	db    *gorm.DB
	limit int

	mu  sync.Mutex
	mem map[string]struct{}
}

func newTokenHistory(db *gorm.DB, limit int) *tokenHistory {
	if limit <= 0 {
		limit = 500
	}
	return &tokenHistory{db: db, limit: limit, mem: make(map[string]struct{})}
}

func (h *tokenHistory) Seen(token string) bool {
	if h.db != nil {
		var n int64
		if err := h.db.Model(&models.SubmittedToken{}).Where("qr_token = ?", token).Count(&n).Error; err != nil {
			log.Printf("history: lookup failed, treating token as new: %v", err)
			return false
		}
		return n > 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.mem[token]
	return ok
}

func (h *tokenHistory) Record(token string) {
	if h.db != nil {
		row := models.SubmittedToken{QrToken: token, SubmittedAt: time.Now().UTC()}
		if err := h.db.Create(&row).Error; err != nil {
			// Unique violations from a re-recorded token are fine.
			log.Printf("history: record %q: %v", token, err)
			return
		}
		h.prune()
		return
	}
	h.mu.Lock()
	h.mem[token] = struct{}{}
	h.mu.Unlock()
}

func (h *tokenHistory) prune() {
	keep := h.db.Model(&models.SubmittedToken{}).Select("id").Order("id desc").Limit(h.limit)
	if err := h.db.Where("id NOT IN (?)", keep).Delete(&models.SubmittedToken{}).Error; err != nil {
		log.Printf("history: prune failed: %v", err)
	}
}
