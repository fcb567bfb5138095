// internal/game/registry_test.go
package game

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsesh/jamsesh/internal/models"
)

func testAvatar() models.Avatar {
	return models.Avatar{Emoji: "🎸", Color: "#ff6b6b"}
}

func testSongs(n int) []models.Song {
	songs := make([]models.Song, n)
	for i := range songs {
		songs[i] = models.Song{
			Title:    fmt.Sprintf("Track %d", i),
			Artist:   fmt.Sprintf("Artist %d", i),
			Source:   "itunes",
			SourceID: fmt.Sprintf("%d", 1000+i),
			Duration: 200,
		}
	}
	return songs
}

// newTestLobby creates a lobby with a host and n-1 joined players, all
// ready, and pool songs in place.
func newTestLobby(t *testing.T, r *Registry, players, songs int) (*Lobby, []string) {
	t.Helper()
	conns := []string{"conn-host"}
	l, _ := r.CreateLobby("conn-host", "Host", testAvatar())
	for i := 1; i < players; i++ {
		conn := fmt.Sprintf("conn-%d", i)
		_, _, err := r.JoinLobby(conn, l.Code, fmt.Sprintf("Player %d", i), testAvatar())
		require.NoError(t, err)
		_, err = r.ToggleReady(conn)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	if songs > 0 {
		_, err := r.AddSongsBulk("conn-host", testSongs(songs))
		require.NoError(t, err)
	}
	return l, conns
}

func TestLobbyCodeFormatAndUniqueness(t *testing.T) {
	r := NewRegistry()
	codePattern := regexp.MustCompile(`^[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{5}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		l, _ := r.CreateLobby(fmt.Sprintf("c%d", i), "Host", testAvatar())
		assert.Regexp(t, codePattern, l.Code)
		assert.False(t, seen[l.Code], "duplicate code %s", l.Code)
		seen[l.Code] = true
	}
}

func TestCreateLobbyHostIsReady(t *testing.T) {
	r := NewRegistry()
	l, p := r.CreateLobby("conn-host", "Host", testAvatar())

	assert.True(t, p.IsHost)
	assert.True(t, p.IsReady)
	assert.Equal(t, p.ID, l.HostID)
	assert.Equal(t, StateWaiting, l.State)
}

func TestJoinLobbyCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	l, _ := r.CreateLobby("conn-host", "Host", testAvatar())

	joined, p, err := r.JoinLobby("conn-2", strings.ToLower(l.Code), "Guest", testAvatar())
	require.NoError(t, err)
	assert.Equal(t, l, joined)
	assert.False(t, p.IsHost)
	assert.False(t, p.IsReady)
}

func TestJoinLobbyErrors(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.JoinLobby("conn-x", "ZZZZZ", "Guest", testAvatar())
	assert.ErrorIs(t, err, ErrLobbyNotFound)

	l, conns := newTestLobby(t, r, 2, 3)

	// Full lobby.
	_, _, err = r.UpdateSettings(conns[0], map[string]interface{}{"maxPlayers": float64(2)})
	require.NoError(t, err)
	_, _, err = r.JoinLobby("conn-late", l.Code, "Late", testAvatar())
	assert.ErrorIs(t, err, ErrLobbyFull)

	// Game in progress.
	_, _, err = r.UpdateSettings(conns[0], map[string]interface{}{"maxPlayers": float64(8)})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)
	_, _, err = r.JoinLobby("conn-later", l.Code, "Later", testAvatar())
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestLeaveTransfersHostToEarliestJoiner(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 3, 0)

	res, err := r.LeaveLobby(conns[0])
	require.NoError(t, err)
	require.NotNil(t, res.NewHost)
	assert.False(t, res.LobbyDeleted)
	assert.Equal(t, "Player 1", res.NewHost.Name, "earliest remaining joiner becomes host")
	assert.True(t, res.NewHost.IsHost)

	l.Mu.Lock()
	assert.Equal(t, res.NewHost.ID, l.HostID)
	l.Mu.Unlock()
}

func TestLeaveLastPlayerDeletesLobby(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 2, 0)

	res, err := r.LeaveLobby(conns[1])
	require.NoError(t, err)
	assert.False(t, res.LobbyDeleted)

	res, err = r.LeaveLobby(conns[0])
	require.NoError(t, err)
	assert.True(t, res.LobbyDeleted)

	_, ok := r.GetLobby(l.Code)
	assert.False(t, ok)
	_, _, err = r.Resolve(conns[0])
	assert.ErrorIs(t, err, ErrNotInLobby)
}

func TestKickPlayer(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 3, 0)

	l.Mu.Lock()
	targetID := l.PlayersInOrderUnsafe()[2].ID
	hostID := l.HostID
	l.Mu.Unlock()

	// Non-host cannot kick.
	_, err := r.KickPlayer(conns[1], targetID)
	assert.ErrorIs(t, err, ErrNotHost)

	// Host cannot be kicked.
	_, err = r.KickPlayer(conns[0], hostID)
	assert.ErrorIs(t, err, ErrNotHost)

	removed, err := r.KickPlayer(conns[0], targetID)
	require.NoError(t, err)
	assert.Equal(t, conns[2], removed.ConnectionID)

	_, _, err = r.Resolve(conns[2])
	assert.ErrorIs(t, err, ErrNotInLobby)
}

func TestCanStartGame(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 2, 2)

	l.Mu.Lock()
	assert.False(t, l.CanStartUnsafe(), "needs at least 3 songs")
	l.Mu.Unlock()

	_, err := r.AddSong(conns[0], testSongs(1)[0])
	require.NoError(t, err)

	l.Mu.Lock()
	assert.True(t, l.CanStartUnsafe(), "exactly 3 songs is enough")
	l.Mu.Unlock()

	// An unready non-host blocks the start.
	_, err = r.ToggleReady(conns[1])
	require.NoError(t, err)
	l.Mu.Lock()
	assert.False(t, l.CanStartUnsafe())
	l.Mu.Unlock()

	_, err = r.StartGame(conns[0])
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestStartGameClampsRounds(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 4)

	started, err := r.StartGame(conns[0])
	require.NoError(t, err)
	assert.Equal(t, l, started)

	l.Mu.Lock()
	assert.Equal(t, StatePlaying, l.State)
	assert.Equal(t, 4, l.Settings.Rounds, "rounds clamped to pool size")
	assert.Empty(t, l.RoundHistory)
	l.Mu.Unlock()
}

func TestStartGameHostOnly(t *testing.T) {
	r := NewRegistry()
	_, conns := newTestLobby(t, r, 2, 3)

	_, err := r.StartGame(conns[1])
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestUpdateSettings(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 2, 3)

	// Non-host updates are rejected.
	_, changed, err := r.UpdateSettings(conns[1], map[string]interface{}{"rounds": float64(5)})
	assert.ErrorIs(t, err, ErrNotHost)
	assert.False(t, changed)

	settings, changed, err := r.UpdateSettings(conns[0], map[string]interface{}{
		"rounds":       float64(5),
		"timePerRound": float64(20),
		"guessStyle":   GuessStyleGrid,
		"showArtist":   true,
		"bogus":        "ignored",
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 5, settings.Rounds)
	assert.Equal(t, 20, settings.TimePerRound)
	assert.Equal(t, GuessStyleGrid, settings.GuessStyle)
	assert.True(t, settings.ShowArtist)

	// Settings freeze once play starts.
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)
	_, _, err = r.UpdateSettings(conns[0], map[string]interface{}{"rounds": float64(2)})
	assert.ErrorIs(t, err, ErrGameInProgress)

	l.Mu.Lock()
	assert.Equal(t, 5, l.Settings.Rounds)
	l.Mu.Unlock()
}

func TestAddAndRemoveSongs(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 2, 0)

	added, err := r.AddSongsBulk(conns[0], testSongs(3))
	require.NoError(t, err)
	require.Len(t, added, 3)
	for _, s := range added {
		assert.NotEqual(t, uuid.Nil, s.ID)
		assert.Greater(t, s.EndTime, s.StartTime, "snippet window clamped on add")
	}

	// Non-host song mutation is rejected.
	_, err = r.AddSong(conns[1], testSongs(1)[0])
	assert.ErrorIs(t, err, ErrNotHost)

	require.NoError(t, r.RemoveSong(conns[0], added[0].ID))
	l.Mu.Lock()
	assert.Len(t, l.Songs, 2)
	l.Mu.Unlock()
}

func TestCleanupRemovesOnlyExpiredLobbies(t *testing.T) {
	r := NewRegistry()
	old, oldConns := newTestLobby(t, r, 2, 0)
	young, youngConns := newTestLobby(t, r, 1, 0)

	old.Mu.Lock()
	old.CreatedAt = time.Now().Add(-3 * time.Hour)
	old.Mu.Unlock()

	removed := r.Cleanup(2 * time.Hour)
	assert.Equal(t, []string{old.Code}, removed)

	_, ok := r.GetLobby(old.Code)
	assert.False(t, ok)
	_, _, err := r.Resolve(oldConns[0])
	assert.ErrorIs(t, err, ErrNotInLobby)

	_, ok = r.GetLobby(young.Code)
	assert.True(t, ok)
	_, _, err = r.Resolve(youngConns[0])
	assert.NoError(t, err)
}
