package gameengine

import (
	"fmt"
	"time"
)

// ConnState is the per-connection data the state machine reads and
// mutates: which username this socket has registered, and which PIN it
// currently belongs to. It carries no socket reference; the gameserver
// package owns that.
type ConnState struct {
	Username   string
	CurrentPin string
}

// Broadcast is an outgoing frame addressed to every connection whose
// CurrentPin matches Pin.
type Broadcast struct {
	Pin   string
	Frame map[string]any
}

// Outcome is what handling one inbound message produces: at most one
// reply to the sender, and at most one broadcast to a PIN.
type Outcome struct {
	Reply     map[string]any
	Broadcast *Broadcast
}

// Machine is the per-registry dispatcher: Handle processes exactly one
// decoded message at a time under the registry's lock, so every handler
// observes a consistent snapshot and broadcasts linearize with state
// transitions.
type Machine struct {
	reg *Registry
	now func() time.Time
}

func NewMachine(reg *Registry) *Machine {
	return &Machine{reg: reg, now: time.Now}
}

func errorFrame(message string) map[string]any {
	return map[string]any{"type": "ERROR", "message": message}
}

func unknownTypeError(t string) map[string]any {
	return errorFrame(fmt.Sprintf("Unknown type: %s", t))
}

func getString(msg map[string]any, key string) string {
	v, ok := msg[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getInt(msg map[string]any, key string) (int, bool) {
	v, ok := msg[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// coerceBool applies the ANSWER message's boolean-coercion rule for the
// `correct` field: true, "true", 1, "1" are true.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t == 1
	}
	return false
}

// coerceTruthy implements plain JS-style truthiness for `answerTrue`.
func coerceTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}

// resolveActor resolves the acting username:
// actor = msg.username || conn.username || "Unknown".
func resolveActor(cs *ConnState, msg map[string]any) string {
	if u := getString(msg, "username"); u != "" {
		return u
	}
	if cs.Username != "" {
		return cs.Username
	}
	return "Unknown"
}

// Handle processes one decoded frame for the connection described by
// cs, mutating cs and the registry as needed, and returns what must be
// sent back out.
func (m *Machine) Handle(cs *ConnState, msg map[string]any) Outcome {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	msgType := getString(msg, "type")

	switch msgType {
	case "REGISTER":
		return m.handleRegister(cs, msg)
	case "LIST_GAMES":
		return m.handleListGames(cs, msg)
	case "CREATE_GAME":
		return m.handleCreateGame(cs, msg)
	case "JOIN_GAME":
		return m.handleJoinGame(cs, msg)
	case "EXIT_GAME":
		return m.handleExitGame(cs, msg)
	case "SUBMIT_QUESTION":
		return m.handleSubmitQuestion(cs, msg)
	case "START_GAME":
		return m.handleStartGame(cs, msg)
	case "ANSWER":
		return m.handleAnswer(cs, msg)
	case "NEXT_QUESTION":
		return m.handleNextQuestion(cs, msg)
	case "END_GAME":
		return m.handleEndGame(cs, msg)
	case "CHAT":
		return m.handleChat(cs, msg)
	default:
		return Outcome{Reply: unknownTypeError(msgType)}
	}
}

func (m *Machine) handleRegister(cs *ConnState, msg map[string]any) Outcome {
	username := getString(msg, "username")
	cs.Username = username
	return Outcome{Reply: map[string]any{"type": "REGISTER_OK", "username": username}}
}

func (m *Machine) handleListGames(cs *ConnState, msg map[string]any) Outcome {
	m.reg.sweepEndedLocked(m.now())

	games := make([]map[string]any, 0)
	for _, g := range m.reg.games {
		if g.State == StateLobby && g.IsPublic {
			games = append(games, g.Serialize())
		}
	}

	return Outcome{Reply: map[string]any{"type": "GAMES_LIST", "games": games}}
}

func (m *Machine) handleCreateGame(cs *ConnState, msg map[string]any) Outcome {
	if cs.Username == "" && getString(msg, "username") == "" {
		return Outcome{Reply: errorFrame("Must REGISTER or supply username first")}
	}

	host := getString(msg, "username")
	if host == "" {
		host = cs.Username
	}

	theme := getString(msg, "theme")
	isPublic, _ := msg["isPublic"].(bool)
	maxPlayers := DefaultMaxPlayers
	if n, ok := getInt(msg, "maxPlayers"); ok && n > 0 {
		maxPlayers = n
	}

	pin := m.reg.allocatePinLocked()
	g := newGame(pin, host, theme, isPublic, maxPlayers)
	m.reg.putLocked(g)

	cs.CurrentPin = pin

	return Outcome{Reply: map[string]any{"type": "GAME_CREATED", "game": g.Serialize()}}
}

func (m *Machine) handleJoinGame(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	g, ok := m.reg.getLocked(pin)
	if !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	if g.State != StateLobby {
		return Outcome{Reply: errorFrame("Game has already started")}
	}

	if len(g.Players) >= g.MaxPlayers {
		return Outcome{Reply: errorFrame("Game is full")}
	}

	username := getString(msg, "username")
	if username == "" {
		username = cs.Username
	}
	if username == "" {
		return Outcome{Reply: errorFrame("Must REGISTER or supply username first")}
	}

	g.addPlayerLocked(username)
	cs.CurrentPin = pin
	cs.Username = username

	return Outcome{
		Reply: map[string]any{"type": "JOINED_GAME", "game": g.Serialize()},
		Broadcast: &Broadcast{
			Pin:   pin,
			Frame: map[string]any{"type": "PLAYER_JOINED", "pin": pin, "game": g.Serialize()},
		},
	}
}

func (m *Machine) handleExitGame(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	if pin == "" {
		pin = cs.CurrentPin
	}
	if pin == "" || cs.Username == "" {
		return Outcome{}
	}

	g, ok := m.reg.getLocked(pin)
	if !ok {
		cs.CurrentPin = ""
		return Outcome{}
	}

	user := cs.Username
	g.removePlayerLocked(user)

	wasHost := g.Host == user
	if wasHost {
		g.promoteHostLocked()
	}

	cs.CurrentPin = ""

	if len(g.Players) == 0 {
		m.reg.removeLocked(pin)
		return Outcome{}
	}

	return Outcome{
		Broadcast: &Broadcast{
			Pin:   pin,
			Frame: map[string]any{"type": "PLAYER_LEFT", "pin": pin, "game": g.Serialize()},
		},
	}
}

func (m *Machine) handleSubmitQuestion(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	g, ok := m.reg.getLocked(pin)
	if !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	if g.State != StateLobby {
		return Outcome{Reply: errorFrame("Cannot submit questions after the game has started")}
	}

	username := getString(msg, "username")
	if username == "" {
		username = cs.Username
	}
	if username == "" {
		return Outcome{Reply: errorFrame("Must REGISTER or supply username first")}
	}

	question := getString(msg, "question")
	answerTrue := coerceTruthy(msg["answerTrue"])

	g.Questions = append(g.Questions, Question{
		Author:     username,
		Text:       question,
		AnswerTrue: answerTrue,
	})

	return Outcome{
		Broadcast: &Broadcast{
			Pin: pin,
			Frame: map[string]any{
				"type":       "QUESTION_SUBMITTED",
				"pin":        pin,
				"username":   username,
				"question":   question,
				"answerTrue": answerTrue,
			},
		},
	}
}

func (m *Machine) handleStartGame(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	if pin == "" {
		pin = cs.CurrentPin
	}
	g, ok := m.reg.getLocked(pin)
	if !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	if g.State != StateLobby {
		return Outcome{Reply: errorFrame("Game has already started")}
	}

	actor := resolveActor(cs, msg)
	if actor != g.Host {
		return Outcome{Reply: errorFrame("Only host can start")}
	}

	if len(g.Questions) == 0 {
		return Outcome{Reply: errorFrame("Add at least 1 question before starting")}
	}

	g.State = StateInProgress
	g.CurrentQuestionIndex = 0
	g.AnsweredByIndex = make(map[int]map[string]bool)

	return Outcome{
		Broadcast: &Broadcast{
			Pin:   pin,
			Frame: map[string]any{"type": "GAME_STARTED", "pin": pin, "game": g.Serialize()},
		},
	}
}

func (m *Machine) handleAnswer(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	if pin == "" {
		pin = cs.CurrentPin
	}
	g, ok := m.reg.getLocked(pin)
	if !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	if g.State != StateInProgress {
		return Outcome{Reply: errorFrame("Game is not in progress")}
	}

	username := getString(msg, "username")
	if username == "" {
		username = cs.Username
	}
	if username == "" {
		return Outcome{Reply: errorFrame("Must REGISTER or supply username first")}
	}

	if !g.hasPlayer(username) {
		g.addPlayerLocked(username)
	}

	idx := g.CurrentQuestionIndex
	answered := g.answeredSetLocked(idx)

	if answered[username] {
		return Outcome{
			Broadcast: &Broadcast{
				Pin: pin,
				Frame: map[string]any{
					"type":       "SCORE_UPDATE",
					"pin":        pin,
					"game":       g.Serialize(),
					"answeredBy": username,
					"correct":    coerceBool(msg["correct"]),
					"duplicate":  true,
				},
			},
		}
	}

	answered[username] = true
	correct := coerceBool(msg["correct"])
	if correct {
		g.Scores[username] += ScorePerCorrectAnswer
	}

	return Outcome{
		Broadcast: &Broadcast{
			Pin: pin,
			Frame: map[string]any{
				"type":       "SCORE_UPDATE",
				"pin":        pin,
				"game":       g.Serialize(),
				"answeredBy": username,
				"correct":    correct,
			},
		},
	}
}

func (m *Machine) handleNextQuestion(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	if pin == "" {
		pin = cs.CurrentPin
	}
	g, ok := m.reg.getLocked(pin)
	if !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	if g.State != StateInProgress {
		return Outcome{Reply: errorFrame("Game is not in progress")}
	}

	actor := resolveActor(cs, msg)
	if actor != g.Host {
		return Outcome{Reply: errorFrame("Only host can advance questions")}
	}

	idx := g.CurrentQuestionIndex + 1
	if idx >= len(g.Questions) {
		g.State = StateEnded
		g.EndedAt = m.now()
		return Outcome{
			Broadcast: &Broadcast{
				Pin:   pin,
				Frame: map[string]any{"type": "GAME_ENDED", "pin": pin, "game": g.Serialize()},
			},
		}
	}

	g.CurrentQuestionIndex = idx
	return Outcome{
		Broadcast: &Broadcast{
			Pin:   pin,
			Frame: map[string]any{"type": "NEXT_QUESTION", "pin": pin, "game": g.Serialize()},
		},
	}
}

func (m *Machine) handleEndGame(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	if pin == "" {
		pin = cs.CurrentPin
	}
	g, ok := m.reg.getLocked(pin)
	if !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	actor := resolveActor(cs, msg)
	if actor != g.Host {
		return Outcome{Reply: errorFrame("Only host can end the game")}
	}

	if g.State != StateEnded {
		g.State = StateEnded
		g.EndedAt = m.now()
	}

	return Outcome{
		Broadcast: &Broadcast{
			Pin:   pin,
			Frame: map[string]any{"type": "GAME_ENDED", "pin": pin, "game": g.Serialize()},
		},
	}
}

func (m *Machine) handleChat(cs *ConnState, msg map[string]any) Outcome {
	pin := getString(msg, "pin")
	if pin == "" {
		pin = cs.CurrentPin
	}
	if _, ok := m.reg.getLocked(pin); !ok {
		return Outcome{Reply: errorFrame("Game not found")}
	}

	from := resolveActor(cs, msg)
	message := getString(msg, "message")

	return Outcome{
		Broadcast: &Broadcast{
			Pin:   pin,
			Frame: map[string]any{"type": "CHAT", "pin": pin, "from": from, "message": message},
		},
	}
}
