package core

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/dkeye/imposter/internal/domain"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// fixedTopics cycles through pairs, skipping the excluded word.
type fixedTopics struct {
	pairs [][2]string
	calls int
}

func (f *fixedTopics) Pick(_ *rand.Rand, exclude string) (string, string) {
	for i := range f.pairs {
		p := f.pairs[(f.calls+i)%len(f.pairs)]
		if p[1] != exclude {
			f.calls++
			return p[0], p[1]
		}
	}
	return f.pairs[0][0], f.pairs[0][1]
}

func defaultTopics() *fixedTopics {
	return &fixedTopics{pairs: [][2]string{
		{"Animals", "Giraffe"},
		{"Food", "Lasagna"},
		{"Places", "Lighthouse"},
	}}
}

func seqCodes(codes ...string) CodeGenerator {
	i := 0
	return func() (domain.RoomCode, error) {
		c := codes[i%len(codes)]
		i++
		return domain.RoomCode(c), nil
	}
}

func seqIDs() func() domain.PlayerID {
	n := 0
	return func() domain.PlayerID {
		n++
		return domain.PlayerID(fmt.Sprintf("p%d", n))
	}
}

type fixture struct {
	store   *Store
	machine *Machine
	topics  *fixedTopics
}

func newFixture(t *testing.T, opts ...StoreOption) *fixture {
	t.Helper()
	topics := defaultTopics()
	base := []StoreOption{
		WithPlayerIDs(seqIDs()),
		WithStoreClock(func() time.Time { return epoch }),
		WithCodeGenerator(seqCodes("ROOM22", "ROOM33", "ROOM44")),
	}
	return &fixture{
		store: NewStore(append(base, opts...)...),
		machine: NewMachine(topics,
			WithRand(newRand(7)),
			WithMachineClock(func() time.Time { return epoch })),
		topics: topics,
	}
}

func connFor(name string) domain.ConnID { return domain.ConnID("conn-" + name) }

// seat creates a room hosted by the first name and joins the rest.
func (f *fixture) seat(t *testing.T, names ...string) *Room {
	t.Helper()
	room, _, err := f.store.CreateRoom(names[0], connFor(names[0]))
	require.NoError(t, err)
	for _, n := range names[1:] {
		_, _, err := f.store.JoinRoom(room.Code, n, connFor(n))
		require.NoError(t, err)
	}
	return room
}

func (f *fixture) fourPlayers(t *testing.T) *Room {
	t.Helper()
	return f.seat(t, "Ada", "Bo", "Cy", "Di")
}

// toDescription starts a round and skips the role reveal.
func (f *fixture) toDescription(t *testing.T, room *Room) []RoleAssignment {
	t.Helper()
	roles, err := f.machine.StartGame(room, room.HostID)
	require.NoError(t, err)
	require.NoError(t, f.machine.TransitionToDescriptionPhase(room))
	return roles
}

// toVoting plays every turn with a short description.
func (f *fixture) toVoting(t *testing.T, room *Room) {
	t.Helper()
	f.toDescription(t, room)
	f.describeAll(t, room)
	require.NoError(t, f.machine.TransitionToVotingPhase(room))
}

func (f *fixture) describeAll(t *testing.T, room *Room) {
	t.Helper()
	for {
		p, ok := room.CurrentSpeaker()
		if !ok {
			return
		}
		_, err := f.machine.SubmitDescription(room, p.ID, "clue from "+p.Name)
		require.NoError(t, err)
	}
}

func imposterOf(t *testing.T, room *Room) domain.PlayerID {
	t.Helper()
	round, ok := room.Round()
	require.True(t, ok)
	return round.imposterID
}

func ids(players []*Player) []domain.PlayerID {
	out := make([]domain.PlayerID, 0, len(players))
	for _, p := range players {
		out = append(out, p.ID)
	}
	return out
}

func newRand(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b9)) }
