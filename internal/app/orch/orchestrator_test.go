package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/imposter/internal/content"
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const code = domain.RoomCode("GAME22")

var testTopics = []byte(`
topics:
  - name: Animals
    words: [Giraffe, Penguin, Octopus]
  - name: Food
    words: [Lasagna, Sushi]
`)

type frame struct {
	Conn domain.ConnID
	Type string
	Raw  string
}

// recorder is a Transport that keeps every frame for inspection.
type recorder struct {
	mu      sync.Mutex
	frames  []frame
	seen    map[domain.ConnID]int
	gone    map[domain.ConnID]bool
	dropped []domain.ConnID
}

func newRecorder() *recorder {
	return &recorder{seen: make(map[domain.ConnID]int), gone: make(map[domain.ConnID]bool)}
}

func (r *recorder) Connected(conn domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.gone[conn]
}

func (r *recorder) Drop(conn domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gone[conn] = true
	r.dropped = append(r.dropped, conn)
	return true
}

// lose marks a socket as gone before its Disconnect reaches the dispatcher.
func (r *recorder) lose(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gone[conn] = true
}

func (r *recorder) droppedConns() []domain.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ConnID(nil), r.dropped...)
}

func (r *recorder) Send(conn domain.ConnID, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	var env struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &env)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame{Conn: conn, Type: env.Type, Raw: string(raw)})
}

// next waits for the next frame of type typ addressed to conn, skipping
// frames of other types.
func (r *recorder) next(t *testing.T, conn domain.ConnID, typ string) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for i := r.seen[conn]; i < len(r.frames); i++ {
			f := r.frames[i]
			if f.Conn != conn || f.Type != typ {
				continue
			}
			r.seen[conn] = i + 1
			r.mu.Unlock()
			return f
		}
		r.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s on %s", typ, conn)
	return frame{}
}

func (r *recorder) all() []frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame(nil), r.frames...)
}

func (r *recorder) count(conn domain.ConnID, typ string) int {
	n := 0
	for _, f := range r.all() {
		if f.Conn == conn && f.Type == typ {
			n++
		}
	}
	return n
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(f.Raw), &v))
	return v
}

type harness struct {
	o    *Orchestrator
	rec  *recorder
	conn map[domain.PlayerID]domain.ConnID
}

var players = []struct {
	name string
	conn domain.ConnID
	id   domain.PlayerID
}{
	{"Ada", "c1", "p1"},
	{"Bo", "c2", "p2"},
	{"Cy", "c3", "p3"},
	{"Di", "c4", "p4"},
}

func newHarness(t *testing.T, tick time.Duration) *harness {
	t.Helper()
	cat, err := content.Parse(testTopics)
	require.NoError(t, err)

	n := 0
	store := core.NewStore(
		core.WithCodeGenerator(func() (domain.RoomCode, error) { return code, nil }),
		core.WithPlayerIDs(func() domain.PlayerID {
			n++
			return domain.PlayerID(fmt.Sprintf("p%d", n))
		}),
	)
	machine := core.NewMachine(cat, core.WithRand(rand.New(rand.NewPCG(42, 99))))
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	o := New(ctx, store, machine, rec, Config{RoleRevealSeconds: 3, ResultsSeconds: 3, TickInterval: tick})
	t.Cleanup(func() {
		cancel()
		<-o.Done()
	})

	h := &harness{o: o, rec: rec, conn: make(map[domain.PlayerID]domain.ConnID)}
	for _, p := range players {
		h.conn[p.id] = p.conn
	}
	return h
}

func (h *harness) seat(t *testing.T) {
	t.Helper()
	h.o.Post(CreateRoom{Conn: "c1", Name: "Ada"})
	h.rec.next(t, "c1", TypeRoomState)
	for _, p := range players[1:] {
		h.o.Post(JoinRoom{Conn: p.conn, Code: "game22", Name: p.name})
		h.rec.next(t, p.conn, TypeRoomState)
	}
}

// start seats four players, starts a round and returns the role each
// connection received.
func (h *harness) start(t *testing.T) map[domain.ConnID]core.RolePayload {
	t.Helper()
	h.seat(t)
	h.o.Post(StartGame{Conn: "c1"})
	roles := make(map[domain.ConnID]core.RolePayload)
	for _, p := range players {
		roles[p.conn] = decode[roleAssignedMsg](t, h.rec.next(t, p.conn, TypeRoleAssigned)).Role
	}
	return roles
}

func (h *harness) waitPhase(t *testing.T, conn domain.ConnID, phase domain.Phase) {
	t.Helper()
	for {
		msg := decode[phaseChangedMsg](t, h.rec.next(t, conn, TypePhaseChanged))
		if msg.Phase == phase {
			return
		}
	}
}

func (h *harness) summary(t *testing.T) RoomSummary {
	t.Helper()
	s, ok := h.o.Room(context.Background(), code)
	require.True(t, ok)
	return s
}

func imposterConn(t *testing.T, roles map[domain.ConnID]core.RolePayload) domain.ConnID {
	t.Helper()
	var found []domain.ConnID
	for c, r := range roles {
		if r.IsImposter {
			found = append(found, c)
		}
	}
	require.Len(t, found, 1)
	return found[0]
}

func secretWord(roles map[domain.ConnID]core.RolePayload) string {
	for _, r := range roles {
		if r.Word != "" {
			return r.Word
		}
	}
	return ""
}

// describeAll answers every turn_changed seen by c1 with a description.
func (h *harness) describeAll(t *testing.T) {
	t.Helper()
	for range players {
		turn := decode[turnChangedMsg](t, h.rec.next(t, "c1", TypeTurnChanged))
		h.o.Post(SubmitDescription{Conn: h.conn[turn.SpeakerID], Text: "a clue from " + turn.Name})
	}
}

func TestOrchestrator_RolesArePrivate(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)

	withWord := 0
	topic := roles["c1"].Topic
	for _, r := range roles {
		assert.Equal(t, topic, r.Topic)
		if r.Word != "" {
			withWord++
		}
	}
	assert.Equal(t, 3, withWord)
	imposterConn(t, roles)
	assert.Equal(t, 1, h.rec.count("c1", TypeRoleAssigned))
}

func TestOrchestrator_FullRound(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)
	word := secretWord(roles)

	h.o.Post(Advance{Conn: "c1"})
	h.waitPhase(t, "c2", domain.PhaseDescription)
	h.describeAll(t)
	h.waitPhase(t, "c3", domain.PhaseVoting)

	h.o.Post(SelectVote{Conn: "c2", Target: "p1"})
	sel := decode[voteSelectedMsg](t, h.rec.next(t, "c2", TypeVoteSelected))
	assert.False(t, sel.Confirmed)
	h.o.Post(ConfirmVote{Conn: "c2"})
	sel = decode[voteSelectedMsg](t, h.rec.next(t, "c2", TypeVoteSelected))
	assert.Equal(t, voteSelectedMsg{Type: TypeVoteSelected, Target: "p1", Confirmed: true}, sel)

	h.o.Post(SubmitVote{Conn: "c3", Target: "p1"})
	h.o.Post(SubmitVote{Conn: "c4", Target: "p1"})
	h.o.Post(SubmitVote{Conn: "c1", Target: "p2"})

	res := decode[resultsMsg](t, h.rec.next(t, "c4", TypeResults)).Result
	assert.Equal(t, domain.PlayerID("p1"), res.EliminatedID)
	assert.Equal(t, word, res.Word)
	assert.Equal(t, imposterConn(t, roles) == "c1", res.ImposterCaught)
	require.Len(t, res.Summary, 4)
	assert.Equal(t, 3, res.Summary[0].Votes)

	// nothing sent to more than one connection gave the secret away
	for _, f := range h.rec.all() {
		switch f.Type {
		case TypeRoleAssigned, TypeRoomState, TypeVoteSelected, TypeResults, TypeError:
			continue
		}
		assert.NotContains(t, f.Raw, word, f.Type)
		assert.NotContains(t, f.Raw, "isImposter", f.Type)
		assert.NotContains(t, f.Raw, "target", f.Type)
	}

	h.o.Post(Advance{Conn: "c1"})
	h.waitPhase(t, "c1", domain.PhasePostGame)

	h.o.Post(PlayAgain{Conn: "c1"})
	h.waitPhase(t, "c1", domain.PhaseLobby)
	state := decode[roomStateMsg](t, h.rec.next(t, "c2", TypeRoomState)).State
	assert.Equal(t, domain.PhaseLobby, state.Phase)
	assert.Equal(t, 2, state.RoundNumber)
	assert.Nil(t, state.Role)
}

func TestOrchestrator_TieReplaysWithSameImposter(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)
	imposter := imposterConn(t, roles)
	word := secretWord(roles)

	h.o.Post(Advance{Conn: "c1"})
	h.describeAll(t)
	h.waitPhase(t, "c1", domain.PhaseVoting)

	h.o.Post(SubmitVote{Conn: "c1", Target: "p2"})
	h.o.Post(SubmitVote{Conn: "c2", Target: "p1"})
	h.o.Post(SubmitVote{Conn: "c3", Target: "p1"})
	h.o.Post(SubmitVote{Conn: "c4", Target: "p2"})

	tie := decode[voteTieMsg](t, h.rec.next(t, "c3", TypeVoteTie))
	assert.ElementsMatch(t, []string{"Ada", "Bo"}, tie.Names)

	for _, p := range players {
		msg := decode[roleAssignedMsg](t, h.rec.next(t, p.conn, TypeRoleAssigned))
		assert.Equal(t, 1, msg.TieBreaks)
		assert.Equal(t, p.conn == imposter, msg.Role.IsImposter)
		if p.conn != imposter {
			assert.NotEqual(t, word, msg.Role.Word)
		}
	}
	h.waitPhase(t, "c1", domain.PhaseDescription)
	assert.Zero(t, h.rec.count("c1", TypeResults))
}

func TestOrchestrator_TimersDriveTheRound(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	h.start(t)

	tm := decode[timerMsg](t, h.rec.next(t, "c1", TypeTimer))
	assert.Equal(t, TagRoleReveal, tm.Tag)
	assert.Equal(t, 3, tm.Remaining)
	h.waitPhase(t, "c1", domain.PhasePostGame)

	res := decode[resultsMsg](t, h.rec.next(t, "c3", TypeResults)).Result
	assert.Empty(t, res.EliminatedID)
	assert.False(t, res.ImposterCaught)
	for range players {
		d := decode[descriptionSubmittedMsg](t, h.rec.next(t, "c2", TypeDescriptionSubmitted))
		assert.Equal(t, core.PlaceholderSilent, d.Description.Text)
	}
}

func TestOrchestrator_CurrentSpeakerDisconnects(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)
	imposter := imposterConn(t, roles)
	h.o.Post(Advance{Conn: "c1"})

	// the imposter stays seated and watches the broadcasts
	var leaving turnChangedMsg
	for {
		leaving = decode[turnChangedMsg](t, h.rec.next(t, imposter, TypeTurnChanged))
		if h.conn[leaving.SpeakerID] != imposter {
			break
		}
		h.o.Post(SubmitDescription{Conn: imposter, Text: "hmm"})
	}

	h.o.Post(Disconnect{Conn: h.conn[leaving.SpeakerID]})

	left := decode[playerLeftMsg](t, h.rec.next(t, imposter, TypePlayerLeft))
	assert.Equal(t, leaving.SpeakerID, left.PlayerID)
	var filled descriptionSubmittedMsg
	for {
		filled = decode[descriptionSubmittedMsg](t, h.rec.next(t, imposter, TypeDescriptionSubmitted))
		if filled.Description.PlayerID == leaving.SpeakerID {
			break
		}
	}
	assert.Equal(t, core.PlaceholderDisconnected, filled.Description.Text)
	next := decode[turnChangedMsg](t, h.rec.next(t, imposter, TypeTurnChanged))
	assert.NotEqual(t, leaving.SpeakerID, next.SpeakerID)
	assert.Equal(t, leaving.TurnIndex+1, next.TurnIndex)
	assert.Equal(t, 3, h.summary(t).Players)
}

func TestOrchestrator_ImposterLeavingAbortsRound(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)
	imposter := imposterConn(t, roles)
	word := secretWord(roles)
	watcher := domain.ConnID("c1")
	if imposter == "c1" {
		watcher = "c2"
	}

	h.o.Post(Leave{Conn: imposter})

	ab := decode[roundAbortedMsg](t, h.rec.next(t, watcher, TypeRoundAborted))
	assert.Equal(t, ReasonImposterLeft, ab.Reason)
	f := h.rec.next(t, watcher, TypeRoomState)
	state := decode[roomStateMsg](t, f).State
	assert.Equal(t, domain.PhaseLobby, state.Phase)
	assert.NotContains(t, f.Raw, word)
	assert.Equal(t, 1, state.RoundNumber)
}

func TestOrchestrator_TooFewPlayersAbortsRound(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)
	imposter := imposterConn(t, roles)

	var crew []domain.ConnID
	for _, p := range players {
		if p.conn != imposter {
			crew = append(crew, p.conn)
		}
	}
	h.o.Post(Leave{Conn: crew[0]})
	assert.Equal(t, domain.PhaseRoleReveal, h.summary(t).Phase)

	h.o.Post(Leave{Conn: crew[1]})
	ab := decode[roundAbortedMsg](t, h.rec.next(t, imposter, TypeRoundAborted))
	assert.Equal(t, ReasonNotEnoughPlayers, ab.Reason)
	assert.Equal(t, domain.PhaseLobby, h.summary(t).Phase)
}

func TestOrchestrator_RejoinRestoresRole(t *testing.T) {
	h := newHarness(t, time.Hour)
	roles := h.start(t)

	h.o.Post(JoinRoom{Conn: "c2-again", Code: "game22", Name: " bo "})
	state := decode[roomStateMsg](t, h.rec.next(t, "c2-again", TypeRoomState)).State
	require.NotNil(t, state.Role)
	assert.Equal(t, roles["c2"], *state.Role)
	assert.Equal(t, domain.PlayerID("p2"), state.You)
	require.NotNil(t, state.Timer)
	assert.Equal(t, TagRoleReveal, state.Timer.Tag)

	assert.Equal(t, []domain.ConnID{"c2"}, h.rec.droppedConns())

	// the stale socket closing must not remove the rebound player
	h.o.Post(Disconnect{Conn: "c2"})
	assert.Equal(t, 4, h.summary(t).Players)
	assert.Zero(t, h.rec.count("c1", TypePlayerLeft))
}

func TestOrchestrator_DuplicateNameInLobbyIsTaken(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.seat(t)

	h.o.Post(JoinRoom{Conn: "newcomer", Code: code, Name: "BO"})
	e := decode[errorMsg](t, h.rec.next(t, "newcomer", TypeError))
	assert.Equal(t, domain.CodeNameTaken, e.Error.Code)
	assert.Zero(t, h.rec.count("newcomer", TypeRoomState))
	assert.Empty(t, h.rec.droppedConns())

	h.o.Post(RequestState{Conn: "c2"})
	state := decode[roomStateMsg](t, h.rec.next(t, "c2", TypeRoomState)).State
	assert.Equal(t, domain.PlayerID("p2"), state.You)
	assert.Equal(t, 4, h.summary(t).Players)
}

func TestOrchestrator_LobbyRejoinOnceSocketIsGone(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.seat(t)

	h.rec.lose("c2")
	h.o.Post(JoinRoom{Conn: "c2-again", Code: code, Name: "Bo"})
	state := decode[roomStateMsg](t, h.rec.next(t, "c2-again", TypeRoomState)).State
	assert.Equal(t, domain.PlayerID("p2"), state.You)
	assert.Equal(t, []domain.ConnID{"c2"}, h.rec.droppedConns())

	h.o.Post(Disconnect{Conn: "c2"})
	assert.Equal(t, 4, h.summary(t).Players)
	assert.Equal(t, 3, h.rec.count("c1", TypePlayerJoined), "a rejoin is not announced as a new player")
	assert.Zero(t, h.rec.count("c1", TypePlayerLeft))
}

func TestOrchestrator_Errors(t *testing.T) {
	h := newHarness(t, time.Hour)

	h.o.Post(StartGame{Conn: "stranger"})
	e := decode[errorMsg](t, h.rec.next(t, "stranger", TypeError))
	assert.Equal(t, domain.CodeNotInRoom, e.Error.Code)

	h.o.Post(JoinRoom{Conn: "stranger", Code: "NOPE22", Name: "Eve"})
	e = decode[errorMsg](t, h.rec.next(t, "stranger", TypeError))
	assert.Equal(t, domain.CodeRoomNotFound, e.Error.Code)

	h.o.Post(CreateRoom{Conn: "c1", Name: "Ada"})
	h.o.Post(JoinRoom{Conn: "c2", Code: code, Name: "Bo"})
	h.o.Post(JoinRoom{Conn: "c3", Code: code, Name: "Cy"})

	h.o.Post(StartGame{Conn: "c2"})
	e = decode[errorMsg](t, h.rec.next(t, "c2", TypeError))
	assert.Equal(t, domain.CodeNotHost, e.Error.Code)

	h.o.Post(StartGame{Conn: "c1"})
	e = decode[errorMsg](t, h.rec.next(t, "c1", TypeError))
	assert.Equal(t, domain.CodeNotEnoughPlayers, e.Error.Code)
	assert.Equal(t, 4, e.Error.Required)
	assert.Equal(t, 3, e.Error.Current)

	h.o.Post(UpdateSettings{Conn: "c1", Settings: core.Settings{DescriptionSeconds: 500, VotingSeconds: 60}})
	e = decode[errorMsg](t, h.rec.next(t, "c1", TypeError))
	assert.Equal(t, domain.CodeSettingsOutOfRange, e.Error.Code)

	h.o.Post(Chat{Conn: "c1", Text: "hello"})
	e = decode[errorMsg](t, h.rec.next(t, "c1", TypeError))
	assert.Equal(t, domain.CodeInvalidPhase, e.Error.Code)
}

func TestOrchestrator_SettingsAndHostHandover(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.seat(t)

	want := core.Settings{DescriptionSeconds: 20, VotingSeconds: 45}
	h.o.Post(UpdateSettings{Conn: "c1", Settings: want})
	got := decode[settingsUpdatedMsg](t, h.rec.next(t, "c4", TypeSettingsUpdated))
	assert.Equal(t, want, got.Settings)

	h.o.Post(Leave{Conn: "c1"})
	hc := decode[hostChangedMsg](t, h.rec.next(t, "c3", TypeHostChanged))
	assert.Equal(t, domain.PlayerID("p2"), hc.HostID)

	h.o.Post(RequestState{Conn: "c2"})
	state := decode[roomStateMsg](t, h.rec.next(t, "c2", TypeRoomState)).State
	assert.Equal(t, domain.PlayerID("p2"), state.HostID)
	assert.Equal(t, want, state.Settings)
	assert.Len(t, state.Players, 3)
}

func TestOrchestrator_ChatDuringVoting(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.start(t)
	h.o.Post(Advance{Conn: "c1"})
	h.describeAll(t)
	h.waitPhase(t, "c1", domain.PhaseVoting)

	h.o.Post(Chat{Conn: "c3", Text: "  it was " + strings.Repeat("!", 3)})
	msg := decode[chatMessageMsg](t, h.rec.next(t, "c4", TypeChatMessage)).Message
	assert.Equal(t, "it was !!!", msg.Text)
	assert.Equal(t, "Cy", msg.Name)
}

func TestOrchestrator_RoomInfo(t *testing.T) {
	h := newHarness(t, time.Hour)
	_, ok := h.o.Room(context.Background(), code)
	assert.False(t, ok)

	h.seat(t)
	assert.Equal(t, RoomSummary{Code: code, Phase: domain.PhaseLobby, Players: 4, Joinable: true, Found: true}, h.summary(t))
}
