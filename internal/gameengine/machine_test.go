package gameengine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMachine() (*Machine, *Registry) {
	reg := NewRegistry()
	return NewMachine(reg), reg
}

func TestRegisterIsIdempotentAndSetsUsername(t *testing.T) {
	m, _ := newTestMachine()
	cs := &ConnState{}

	out := m.Handle(cs, map[string]any{"type": "REGISTER", "username": "alice"})
	require.Equal(t, "REGISTER_OK", out.Reply["type"])
	require.Equal(t, "alice", cs.Username)

	out = m.Handle(cs, map[string]any{"type": "REGISTER", "username": "alice"})
	require.Equal(t, "REGISTER_OK", out.Reply["type"])
}

func TestCreateGameRequiresUsername(t *testing.T) {
	m, _ := newTestMachine()
	cs := &ConnState{}

	out := m.Handle(cs, map[string]any{"type": "CREATE_GAME", "theme": "movies"})
	require.Equal(t, "ERROR", out.Reply["type"])
}

func TestCreateGameThenJoinBroadcastsPlayerJoined(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{}
	m.Handle(host, map[string]any{"type": "REGISTER", "username": "host"})

	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "theme": "history", "isPublic": true})
	game := created.Reply["game"].(map[string]any)
	pin := game["pin"].(string)
	require.Len(t, pin, 6)
	require.Equal(t, "lobby", game["state"])

	guest := &ConnState{}
	m.Handle(guest, map[string]any{"type": "REGISTER", "username": "guest"})

	out := m.Handle(guest, map[string]any{"type": "JOIN_GAME", "pin": pin})
	require.Equal(t, "JOINED_GAME", out.Reply["type"])
	require.NotNil(t, out.Broadcast)
	require.Equal(t, pin, out.Broadcast.Pin)
	require.Equal(t, "PLAYER_JOINED", out.Broadcast.Frame["type"])
	require.Equal(t, pin, guest.CurrentPin)
}

func TestJoinGameRejectsFullLobby(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{}
	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "username": "host", "maxPlayers": 1})
	pin := created.Reply["game"].(map[string]any)["pin"].(string)

	guest := &ConnState{}
	out := m.Handle(guest, map[string]any{"type": "JOIN_GAME", "pin": pin, "username": "guest"})
	require.Equal(t, "ERROR", out.Reply["type"])
	require.Equal(t, "Game is full", out.Reply["message"])
}

func TestStartGameRequiresHostAndQuestion(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{}
	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "username": "host"})
	pin := created.Reply["game"].(map[string]any)["pin"].(string)

	notHost := &ConnState{}
	out := m.Handle(notHost, map[string]any{"type": "START_GAME", "pin": pin, "username": "impostor"})
	require.Equal(t, "ERROR", out.Reply["type"])

	out = m.Handle(host, map[string]any{"type": "START_GAME", "pin": pin, "username": "host"})
	require.Equal(t, "ERROR", out.Reply["type"])
	require.Equal(t, "Add at least 1 question before starting", out.Reply["message"])

	m.Handle(host, map[string]any{"type": "SUBMIT_QUESTION", "pin": pin, "username": "host", "question": "2+2?", "answerTrue": true})

	out = m.Handle(host, map[string]any{"type": "START_GAME", "pin": pin, "username": "host"})
	require.Nil(t, out.Reply)
	require.Equal(t, "GAME_STARTED", out.Broadcast.Frame["type"])
}

func TestAnswerAwardsScoreOnceAndFlagsDuplicates(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{}
	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "username": "host"})
	pin := created.Reply["game"].(map[string]any)["pin"].(string)
	m.Handle(host, map[string]any{"type": "SUBMIT_QUESTION", "pin": pin, "username": "host", "question": "q", "answerTrue": true})
	m.Handle(host, map[string]any{"type": "START_GAME", "pin": pin, "username": "host"})

	guest := &ConnState{}
	m.Handle(guest, map[string]any{"type": "JOIN_GAME", "pin": pin, "username": "guest"})

	out := m.Handle(guest, map[string]any{"type": "ANSWER", "pin": pin, "username": "guest", "correct": true})
	frame := out.Broadcast.Frame
	require.Equal(t, "SCORE_UPDATE", frame["type"])
	require.Equal(t, true, frame["correct"])
	require.Nil(t, frame["duplicate"])

	out = m.Handle(guest, map[string]any{"type": "ANSWER", "pin": pin, "username": "guest", "correct": true})
	require.Equal(t, true, out.Broadcast.Frame["duplicate"])

	game := m.reg.games[pin]
	require.Equal(t, ScorePerCorrectAnswer, game.Scores["guest"])
}

func TestNextQuestionEndsGameAfterLast(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{}
	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "username": "host"})
	pin := created.Reply["game"].(map[string]any)["pin"].(string)
	m.Handle(host, map[string]any{"type": "SUBMIT_QUESTION", "pin": pin, "username": "host", "question": "q1"})
	m.Handle(host, map[string]any{"type": "START_GAME", "pin": pin, "username": "host"})

	out := m.Handle(host, map[string]any{"type": "NEXT_QUESTION", "pin": pin, "username": "host"})
	require.Equal(t, "GAME_ENDED", out.Broadcast.Frame["type"])
	require.Equal(t, StateEnded, m.reg.games[pin].State)
}

func TestExitGamePromotesHostAndDeletesEmptyGame(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{CurrentPin: ""}
	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "username": "host"})
	pin := created.Reply["game"].(map[string]any)["pin"].(string)
	host.Username = "host"
	host.CurrentPin = pin

	guest := &ConnState{Username: "guest", CurrentPin: ""}
	m.Handle(guest, map[string]any{"type": "JOIN_GAME", "pin": pin, "username": "guest"})

	out := m.Handle(host, map[string]any{"type": "EXIT_GAME", "pin": pin})
	require.NotNil(t, out.Broadcast)
	game := out.Broadcast.Frame["game"].(map[string]any)
	require.Equal(t, "guest", game["host"])

	out = m.Handle(guest, map[string]any{"type": "EXIT_GAME", "pin": pin})
	require.Nil(t, out.Broadcast)
	_, ok := m.reg.games[pin]
	require.False(t, ok)
}

func TestHandleConcurrency(t *testing.T) {
	m, _ := newTestMachine()
	host := &ConnState{}
	created := m.Handle(host, map[string]any{"type": "CREATE_GAME", "username": "host", "isPublic": true})
	pin := created.Reply["game"].(map[string]any)["pin"].(string)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cs := &ConnState{}
			username := "player" + string(rune('A'+i%26)) + string(rune('0'+i/26))
			m.Handle(cs, map[string]any{"type": "JOIN_GAME", "pin": pin, "username": username})
		}(i)
	}
	wg.Wait()

	out := m.Handle(&ConnState{}, map[string]any{"type": "LIST_GAMES"})
	games := out.Reply["games"].([]map[string]any)
	require.Len(t, games, 1)
	game := m.reg.games[pin]
	require.LessOrEqual(t, len(game.Players), n+1)
}
