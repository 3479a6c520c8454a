package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/akipresenca/aki_device_agent/internal/database"
	"github.com/akipresenca/aki_device_agent/internal/models"
)

type QueueSuite struct {
	suite.Suite
	db    *gorm.DB
	queue *Queue
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}

func (s *QueueSuite) SetupTest() {
	db, err := database.Connect(":memory:")
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.db = db
	s.queue = New(db, 3)
}

func payloadFor(token string) models.AttendancePayload {
	return models.AttendancePayload{
		DeviceID:   "device-1",
		QrToken:    token,
		DeviceTime: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func (s *QueueSuite) TestOrderingAndCount() {
	var tokens []string
	for i := 0; i < 5; i++ {
		tok := fmt.Sprintf("AKI_2026_%03d", i)
		tokens = append(tokens, tok)
		s.queue.Enqueue(payloadFor(tok))
		s.Equal(int64(i+1), s.queue.Count())
	}

	entries := s.queue.ListAll()
	s.Require().Len(entries, 5)
	for i, e := range entries {
		s.Equal(tokens[i], e.QrToken)
		s.Zero(e.RetryCount)
	}
}

func (s *QueueSuite) TestRemove() {
	a := s.queue.Enqueue(payloadFor("tok-a"))
	b := s.queue.Enqueue(payloadFor("tok-b"))

	s.queue.Remove(a.ID)
	entries := s.queue.ListAll()
	s.Require().Len(entries, 1)
	s.Equal(b.ID, entries[0].ID)

	s.Run("unknown id is a no-op", func() {
		s.queue.Remove("no-such-id")
		s.Equal(int64(1), s.queue.Count())
	})
}

func (s *QueueSuite) TestIncrementRetryDropsAtCap() {
	entry := s.queue.Enqueue(payloadFor("tok-retry"))

	s.False(s.queue.IncrementRetry(entry.ID))
	s.False(s.queue.IncrementRetry(entry.ID))

	entries := s.queue.ListAll()
	s.Require().Len(entries, 1)
	s.Equal(2, entries[0].RetryCount)

	s.True(s.queue.IncrementRetry(entry.ID))
	s.Equal(int64(0), s.queue.Count())
}

func (s *QueueSuite) TestRoundTrip() {
	lat, lng := -23.5505, -46.6333
	p := payloadFor("tok-roundtrip")
	p.Location = &models.Location{Latitude: lat, Longitude: lng}
	p.StudentCPF = "11144477735"

	created := s.queue.Enqueue(p)
	s.False(s.queue.IncrementRetry(created.ID))

	// Reload through a fresh Queue over the same database.
	reloaded := New(s.db, 3).ListAll()
	s.Require().Len(reloaded, 1)
	got := reloaded[0]

	s.Equal(created.ID, got.ID)
	s.Equal(1, got.RetryCount)
	s.Equal(p.DeviceID, got.DeviceID)
	s.Equal(p.QrToken, got.QrToken)
	s.Equal(p.StudentCPF, got.StudentCPF)

	rebuilt := got.Payload()
	s.Require().NotNil(rebuilt.Location)
	s.Equal(lat, rebuilt.Location.Latitude)
	s.Equal(lng, rebuilt.Location.Longitude)
	s.True(p.DeviceTime.Equal(rebuilt.DeviceTime))
}

func (s *QueueSuite) TestClear() {
	s.queue.Enqueue(payloadFor("tok-1"))
	s.queue.Enqueue(payloadFor("tok-2"))
	s.queue.Clear()
	s.Equal(int64(0), s.queue.Count())
	s.Empty(s.queue.ListAll())
}

func (s *QueueSuite) TestHasToken() {
	s.queue.Enqueue(payloadFor("tok-pending"))
	s.True(s.queue.HasToken("tok-pending"))
	s.False(s.queue.HasToken("tok-unknown"))
}

// Entries that the durable store refuses to persist must stay reachable:
// every read path merges the memory fallback, so a queued submission can
// still be listed, drained and retried.
func (s *QueueSuite) TestFailingStoreKeepsEntriesReachable() {
	persisted := s.queue.Enqueue(payloadFor("tok-durable"))
	s.Require().NoError(s.db.Migrator().DropTable("queued_submissions"))

	entry := s.queue.Enqueue(payloadFor("tok-memory"))

	s.Run("entry is visible to reads", func() {
		s.Equal(int64(1), s.queue.Count())
		entries := s.queue.ListAll()
		s.Require().Len(entries, 1)
		s.Equal(entry.ID, entries[0].ID)
		s.True(s.queue.HasToken("tok-memory"))
		s.False(s.queue.HasToken(persisted.QrToken))
	})

	s.Run("entry can be retried and dropped", func() {
		s.False(s.queue.IncrementRetry(entry.ID))
		s.False(s.queue.IncrementRetry(entry.ID))
		s.True(s.queue.IncrementRetry(entry.ID))
		s.Equal(int64(0), s.queue.Count())
	})

	s.Run("entry can be removed", func() {
		again := s.queue.Enqueue(payloadFor("tok-memory-2"))
		s.queue.Remove(again.ID)
		s.Equal(int64(0), s.queue.Count())
	})
}

func (s *QueueSuite) TestDegradesWithoutStore() {
	q := New(nil, 3)

	a := q.Enqueue(payloadFor("tok-a"))
	q.Enqueue(payloadFor("tok-b"))
	s.Equal(int64(2), q.Count())

	entries := q.ListAll()
	s.Require().Len(entries, 2)
	s.Equal("tok-a", entries[0].QrToken)

	s.False(q.IncrementRetry(a.ID))
	s.False(q.IncrementRetry(a.ID))
	s.True(q.IncrementRetry(a.ID))
	s.Equal(int64(1), q.Count())

	q.Clear()
	s.Equal(int64(0), q.Count())
}
