package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisRecord_VerifyHash(t *testing.T) {
	genesis, err := NewGenesisRecord(uuid.New(), "chain-1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, genesis.SequenceNum)
	assert.Empty(t, genesis.PrevHash)

	ok, err := genesis.VerifyHash()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApprovalChain_SequenceAndHashLinking(t *testing.T) {
	genesis, err := NewGenesisRecord(uuid.New(), "chain-1", nil, "")
	require.NoError(t, err)

	actor := uuid.New()
	r1, err := NewApprovalRecord(uuid.New(), genesis, ApprovalActionScheduleGenerated,
		map[string]interface{}{"run_id": "abc"}, &actor, ActorTypeSystem, "generated", "ScheduleRun", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r1.SequenceNum)
	assert.Equal(t, genesis.RecordHash, r1.PrevHash)

	r2, err := NewApprovalRecord(uuid.New(), r1, ApprovalActionScheduleApproved,
		map[string]interface{}{"run_id": "abc"}, &actor, ActorTypeHuman, "approved", "ScheduleRun", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, r2.SequenceNum)
	assert.Equal(t, r1.RecordHash, r2.PrevHash)

	for _, r := range []*ApprovalRecord{genesis, r1, r2} {
		ok, err := r.VerifyHash()
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestApprovalRecord_TamperDetection(t *testing.T) {
	genesis, err := NewGenesisRecord(uuid.New(), "chain-1", nil, "")
	require.NoError(t, err)
	r1, err := NewApprovalRecord(uuid.New(), genesis, ApprovalActionScheduleGenerated,
		map[string]interface{}{"run_id": "abc"}, nil, ActorTypeSystem, "", "", nil)
	require.NoError(t, err)

	r1.Payload["run_id"] = "tampered"

	ok, err := r1.VerifyHash()
	require.NoError(t, err)
	assert.False(t, ok)
}
