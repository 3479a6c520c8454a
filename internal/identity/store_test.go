package identity

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/akipresenca/aki_device_agent/internal/database"
)

type IdentityStoreSuite struct {
	suite.Suite
	db    *gorm.DB
	store *Store
}

func TestIdentityStoreSuite(t *testing.T) {
	suite.Run(t, new(IdentityStoreSuite))
}

func (s *IdentityStoreSuite) SetupTest() {
	db, err := database.Connect(":memory:")
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.db = db
	s.store = NewStore(db)
}

func (s *IdentityStoreSuite) TestGetOrCreate() {
	s.Run("generates a non-empty id", func() {
		id := s.store.GetOrCreate()
		s.NotEmpty(id)
	})

	s.Run("is stable across calls", func() {
		first := s.store.GetOrCreate()
		s.Equal(first, s.store.GetOrCreate())
	})

	s.Run("survives a new store over the same database", func() {
		first := s.store.GetOrCreate()
		again := NewStore(s.db).GetOrCreate()
		s.Equal(first, again)
	})
}

func (s *IdentityStoreSuite) TestRegistrationLifecycle() {
	id := s.store.GetOrCreate()
	s.False(s.store.IsRegistered())

	s.Require().NoError(s.store.Save("11144477735"))
	s.True(s.store.IsRegistered())

	ident, ok := s.store.Current()
	s.Require().True(ok)
	s.Equal(id, ident.DeviceID)
	s.Equal("11144477735", ident.StudentCPF)
	s.NotNil(ident.RegisteredAt)

	s.Run("clear unlinks but keeps the device id", func() {
		s.store.Clear()
		s.False(s.store.IsRegistered())

		ident, ok := s.store.Current()
		s.Require().True(ok)
		s.Equal(id, ident.DeviceID)
		s.Empty(ident.StudentCPF)
		s.Nil(ident.RegisteredAt)
	})
}

func (s *IdentityStoreSuite) TestSaveBeforeGetOrCreate() {
	s.Require().NoError(s.store.Save("52998224725"))
	s.True(s.store.IsRegistered())
	s.NotEmpty(s.store.GetOrCreate())
}

func (s *IdentityStoreSuite) TestDegradesWithoutStore() {
	store := NewStore(nil)

	s.Run("still produces a stable id", func() {
		id := store.GetOrCreate()
		s.NotEmpty(id)
		s.Equal(id, store.GetOrCreate())
	})

	s.Run("registration works for the session", func() {
		s.Require().NoError(store.Save("11144477735"))
		s.True(store.IsRegistered())
		store.Clear()
		s.False(store.IsRegistered())
	})
}
