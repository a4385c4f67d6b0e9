package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bossrush/internal/entities"
)

func newTestParty() *entities.Party {
	return entities.NewParty("ABCDEF", "host", &entities.Room{Index: 0})
}

func TestNewParty(t *testing.T) {
	party := newTestParty()

	assert.Equal(t, "ABCDEF", party.Code)
	assert.Equal(t, "host", party.HostID)
	assert.Equal(t, entities.PartyStatusLobby, party.Status)
	assert.Equal(t, []string{"host"}, party.Members)
	assert.True(t, party.IsMember("host"))
	require.NotNil(t, party.Player("host"))
	assert.Equal(t, 0, party.Encounter.CurrentRoomIndex)
	require.Len(t, party.Encounter.Rooms, 1)
}

func TestParty_Membership(t *testing.T) {
	party := newTestParty()

	t.Run("members keep join order", func(t *testing.T) {
		party.AddMember("second")
		party.AddMember("third")
		assert.Equal(t, []string{"host", "second", "third"}, party.Members)
	})

	t.Run("adding twice is a no-op", func(t *testing.T) {
		existing := party.Player("second")
		got := party.AddMember("second")
		assert.Same(t, existing, got)
		assert.Equal(t, 3, party.MemberCount())
	})

	t.Run("remove reports presence", func(t *testing.T) {
		assert.True(t, party.RemoveMember("second"))
		assert.False(t, party.RemoveMember("second"))
		assert.False(t, party.IsMember("second"))
		assert.Nil(t, party.Player("second"))
	})
}

func TestParty_AdvanceRoom(t *testing.T) {
	party := newTestParty()
	party.AdvanceRoom(&entities.Room{Index: 1})

	assert.Equal(t, 1, party.Encounter.CurrentRoomIndex)
	require.Len(t, party.Encounter.Rooms, 2)
	assert.Equal(t, 1, party.CurrentRoom().Index)
}

func TestParty_AllDown(t *testing.T) {
	t.Run("full health party is up", func(t *testing.T) {
		party := newTestParty()
		party.AddMember("second")
		assert.False(t, party.AllDown())
	})

	t.Run("one survivor keeps the run alive", func(t *testing.T) {
		party := newTestParty()
		party.AddMember("second")
		party.Player("host").ApplyDamage(100)
		assert.False(t, party.AllDown())
	})

	t.Run("everyone at zero is a wipe", func(t *testing.T) {
		party := newTestParty()
		party.AddMember("second")
		party.Player("host").ApplyDamage(100)
		party.Player("second").ApplyDamage(100)
		assert.True(t, party.AllDown())
	})

	t.Run("empty party is a disband not a wipe", func(t *testing.T) {
		party := newTestParty()
		party.RemoveMember("host")
		assert.False(t, party.AllDown())
	})
}

func TestParty_Snapshots(t *testing.T) {
	party := newTestParty()
	party.AddMember("second")

	t.Run("members copy is detached", func(t *testing.T) {
		members := party.MembersCopy()
		members[0] = "mutated"
		assert.Equal(t, "host", party.Members[0])
	})

	t.Run("stats snapshot copies values", func(t *testing.T) {
		party.Player("host").Kills = 3
		stats := party.StatsSnapshot()
		require.Contains(t, stats, "host")
		assert.Equal(t, 3, stats["host"].Kills)

		party.Player("host").Kills = 7
		assert.Equal(t, 3, stats["host"].Kills, "snapshot must not track later mutations")
	})
}
