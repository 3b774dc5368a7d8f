package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agentmemory/internal/memlog/models"
	"agentmemory/pkg/domain"
	"agentmemory/pkg/platform/sentinel"
)

type LogStoreSuite struct {
	suite.Suite
	ctx   context.Context
	logs  *InMemoryLogs
	atts  *InMemoryAttestations
	agent domain.Address
}

func TestLogStoreSuite(t *testing.T) {
	suite.Run(t, new(LogStoreSuite))
}

func (s *LogStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.logs = NewInMemoryLogs()
	s.atts = NewInMemoryAttestations()
	s.agent = domain.DeriveAddress("test", []byte("agent"))
}

func (s *LogStoreSuite) newLog(at time.Time) *models.MemoryLog {
	log, err := models.NewMemoryLog(s.agent, "input", "logic", at)
	s.Require().NoError(err)
	return log
}

func (s *LogStoreSuite) TestCreateAndFind() {
	log := s.newLog(time.Unix(1000, 0))
	s.Require().NoError(s.logs.Create(s.ctx, log))

	found, err := s.logs.FindByAddress(s.ctx, log.Address)
	s.Require().NoError(err)
	s.Equal(log.MerkleRoot, found.MerkleRoot)

	_, err = s.logs.FindByAddress(s.ctx, domain.DeriveAddress("test", []byte("missing")))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LogStoreSuite) TestCreateOccupiedKey() {
	log := s.newLog(time.Unix(1000, 0))
	s.Require().NoError(s.logs.Create(s.ctx, log))
	s.ErrorIs(s.logs.Create(s.ctx, s.newLog(time.Unix(1000, 0))), sentinel.ErrAlreadyUsed)
}

func (s *LogStoreSuite) TestFindReturnsCopy() {
	log := s.newLog(time.Unix(1000, 0))
	s.Require().NoError(s.logs.Create(s.ctx, log))

	found, err := s.logs.FindByAddress(s.ctx, log.Address)
	s.Require().NoError(err)
	found.IsAttested = true

	again, err := s.logs.FindByAddress(s.ctx, log.Address)
	s.Require().NoError(err)
	s.False(again.IsAttested, "caller mutation must not alias store state")
}

func (s *LogStoreSuite) TestExecuteValidateThenMutate() {
	log := s.newLog(time.Unix(1000, 0))
	s.Require().NoError(s.logs.Create(s.ctx, log))

	updated, err := s.logs.Execute(s.ctx, log.Address,
		func(l *models.MemoryLog) error { return l.CanAttest() },
		func(l *models.MemoryLog) { l.ApplyAttested() },
	)
	s.Require().NoError(err)
	s.True(updated.IsAttested)

	// The second transition fails validation and mutates nothing.
	_, err = s.logs.Execute(s.ctx, log.Address,
		func(l *models.MemoryLog) error { return l.CanAttest() },
		func(l *models.MemoryLog) { l.ApplyAttested() },
	)
	s.Error(err)
}

func (s *LogStoreSuite) TestListByAgent() {
	s.Require().NoError(s.logs.Create(s.ctx, s.newLog(time.Unix(1000, 0))))
	s.Require().NoError(s.logs.Create(s.ctx, s.newLog(time.Unix(1001, 0))))

	other, err := models.NewMemoryLog(domain.DeriveAddress("test", []byte("other")), "i", "l", time.Unix(1000, 0))
	s.Require().NoError(err)
	s.Require().NoError(s.logs.Create(s.ctx, other))

	mine, err := s.logs.ListByAgent(s.ctx, s.agent)
	s.Require().NoError(err)
	s.Len(mine, 2)
}

func (s *LogStoreSuite) TestAttestationKeyedByLog() {
	log := s.newLog(time.Unix(1000, 0))
	att, err := models.NewAttestation(log.Address, "outcome", true, 10, time.Unix(1060, 0))
	s.Require().NoError(err)
	s.Require().NoError(s.atts.Create(s.ctx, att))

	found, err := s.atts.FindByLog(s.ctx, log.Address)
	s.Require().NoError(err)
	s.Equal(att.OutcomeHash, found.OutcomeHash)

	// A second attestation for the same log derives the same key.
	dup, err := models.NewAttestation(log.Address, "different", false, -10, time.Unix(1120, 0))
	s.Require().NoError(err)
	s.ErrorIs(s.atts.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
}
