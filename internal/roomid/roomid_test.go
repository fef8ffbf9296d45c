package roomid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveOrderIndependent(t *testing.T) {
	ab, err := Derive("alice", "bob")
	require.NoError(t, err)
	ba, err := Derive("bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice-bob", ab)
	assert.Equal(t, ab, ba)
}

func TestDeriveSortsLexicographically(t *testing.T) {
	id, err := Derive("u9", "u10")
	require.NoError(t, err)
	// string order, not numeric order
	assert.Equal(t, "u10-u9", id)
}

func TestDeriveRejectsSelfRoom(t *testing.T) {
	_, err := Derive("alice", "alice")
	require.ErrorIs(t, err, ErrSelfRoom)
}

func TestDeriveRejectsEmptyID(t *testing.T) {
	_, err := Derive("", "bob")
	require.ErrorIs(t, err, ErrEmptyUserID)
	_, err = Derive("alice", "")
	require.ErrorIs(t, err, ErrEmptyUserID)
}

func TestParticipantsSorted(t *testing.T) {
	pair, err := Participants("bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, pair)
}
