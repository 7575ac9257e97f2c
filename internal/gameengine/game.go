// Package gameengine implements the authoritative game data model and
// state machine described by the Game Registry and Game State Machine
// components. It contains no I/O: it is driven by decoded protocol
// frames and returns the replies/broadcasts the caller must send.
package gameengine

import "time"

type State string

const (
	StateLobby      State = "lobby"
	StateInProgress State = "inProgress"
	StateEnded      State = "ended"
)

// DefaultMaxPlayers is used when CREATE_GAME omits maxPlayers.
const DefaultMaxPlayers = 20

// ScorePerCorrectAnswer is the fixed point award for a correct answer;
// there is no time or streak bonus.
const ScorePerCorrectAnswer = 100

// EndedTTL is the grace period an ended game remains addressable.
const EndedTTL = 120 * time.Second

type Question struct {
	Author     string `json:"author"`
	Text       string `json:"text"`
	AnswerTrue bool   `json:"answerTrue"`
}

// Game is the authoritative record for one live quiz session.
type Game struct {
	PIN                  string
	Host                 string
	State                State
	Theme                string
	IsPublic             bool
	MaxPlayers           int
	Players              []string // insertion order; host promotion depends on this
	Scores               map[string]int
	Questions            []Question
	CurrentQuestionIndex int
	AnsweredByIndex      map[int]map[string]bool
	CreatedAt            time.Time
	EndedAt              time.Time
}

func newGame(pin, host string, theme string, isPublic bool, maxPlayers int) *Game {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	g := &Game{
		PIN:             pin,
		Host:            host,
		State:           StateLobby,
		Theme:           theme,
		IsPublic:        isPublic,
		MaxPlayers:      maxPlayers,
		Players:         make([]string, 0, maxPlayers),
		Scores:          make(map[string]int),
		AnsweredByIndex: make(map[int]map[string]bool),
		CreatedAt:       time.Now(),
	}
	g.addPlayerLocked(host)
	return g
}

func (g *Game) hasPlayer(username string) bool {
	for _, p := range g.Players {
		if p == username {
			return true
		}
	}
	return false
}

func (g *Game) addPlayerLocked(username string) {
	if g.hasPlayer(username) {
		return
	}
	g.Players = append(g.Players, username)
	if _, ok := g.Scores[username]; !ok {
		g.Scores[username] = 0
	}
}

// removePlayerLocked removes username from Players, and from Scores
// only when the game is still in lobby: scores are kept once the game
// has started so post-game screens don't lose players.
func (g *Game) removePlayerLocked(username string) {
	dst := g.Players[:0]
	for _, p := range g.Players {
		if p == username {
			continue
		}
		dst = append(dst, p)
	}
	g.Players = dst

	if g.State == StateLobby {
		delete(g.Scores, username)
	}
}

// promoteHostLocked assigns the first remaining player as host, if any.
func (g *Game) promoteHostLocked() {
	if len(g.Players) == 0 {
		g.Host = ""
		return
	}
	g.Host = g.Players[0]
}

func (g *Game) answeredSetLocked(idx int) map[string]bool {
	set, ok := g.AnsweredByIndex[idx]
	if !ok {
		set = make(map[string]bool)
		g.AnsweredByIndex[idx] = set
	}
	return set
}

// Serialize returns the outbound wire shape for a game.
func (g *Game) Serialize() map[string]any {
	players := make([]string, len(g.Players))
	copy(players, g.Players)

	scores := make(map[string]int, len(g.Scores))
	for k, v := range g.Scores {
		scores[k] = v
	}

	questions := make([]map[string]any, len(g.Questions))
	for i, q := range g.Questions {
		questions[i] = map[string]any{
			"author":     q.Author,
			"text":       q.Text,
			"answerTrue": q.AnswerTrue,
		}
	}

	return map[string]any{
		"pin":                  g.PIN,
		"host":                 g.Host,
		"state":                string(g.State),
		"theme":                g.Theme,
		"isPublic":             g.IsPublic,
		"maxPlayers":           g.MaxPlayers,
		"players":              players,
		"scores":               scores,
		"questions":            questions,
		"currentQuestionIndex": g.CurrentQuestionIndex,
	}
}
