package gameengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllocatePinIsSixDigitsAndUnique(t *testing.T) {
	r := NewRegistry()
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pin := r.allocatePinLocked()
		require.Len(t, pin, 6)
		require.False(t, seen[pin])
		seen[pin] = true
		r.putLocked(newGame(pin, "host", "", false, DefaultMaxPlayers))
	}
}

func TestSweepEndedRemovesExpiredGamesOnly(t *testing.T) {
	r := NewRegistry()
	r.mu.Lock()

	fresh := newGame("111111", "host", "", true, DefaultMaxPlayers)
	fresh.State = StateEnded
	fresh.EndedAt = time.Now()
	r.putLocked(fresh)

	stale := newGame("222222", "host", "", true, DefaultMaxPlayers)
	stale.State = StateEnded
	stale.EndedAt = time.Now().Add(-(EndedTTL + time.Second))
	r.putLocked(stale)

	r.mu.Unlock()

	r.SweepEnded(time.Now())

	r.mu.Lock()
	_, freshStillThere := r.games["111111"]
	_, staleStillThere := r.games["222222"]
	r.mu.Unlock()

	require.True(t, freshStillThere)
	require.False(t, staleStillThere)
}

func TestSnapshotOnlyListsPublicLobbyGames(t *testing.T) {
	r := NewRegistry()
	r.mu.Lock()
	r.putLocked(newGame("111111", "host", "", true, DefaultMaxPlayers))
	r.putLocked(newGame("222222", "host", "", false, DefaultMaxPlayers))
	inProgress := newGame("333333", "host", "", true, DefaultMaxPlayers)
	inProgress.State = StateInProgress
	r.putLocked(inProgress)
	r.mu.Unlock()

	games := r.Snapshot()
	require.Len(t, games, 1)
	require.Equal(t, "111111", games[0]["pin"])
}
