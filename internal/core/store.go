package core

import (
	"time"

	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

// Store is the registry of live rooms. It is not safe for concurrent use;
// the orchestrator owns it and calls it from a single goroutine.
type Store struct {
	rooms    map[domain.RoomCode]*Room
	conns    map[domain.ConnID]domain.RoomCode
	codes    CodeGenerator
	newID    func() domain.PlayerID
	now      func() time.Time
	defaults Settings
}

type StoreOption func(*Store)

func WithCodeGenerator(g CodeGenerator) StoreOption {
	return func(s *Store) { s.codes = g }
}

func WithPlayerIDs(f func() domain.PlayerID) StoreOption {
	return func(s *Store) { s.newID = f }
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithDefaultSettings sets the durations new rooms start with.
func WithDefaultSettings(d Settings) StoreOption {
	return func(s *Store) { s.defaults = d.Clamp() }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rooms:    make(map[domain.RoomCode]*Room),
		conns:    make(map[domain.ConnID]domain.RoomCode),
		codes:    RandomCode,
		newID:    domain.NewPlayerID,
		now:      time.Now,
		defaults: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Removal describes the effect of removing a player.
type Removal struct {
	Room        *Room
	Player      *Player
	NewHostID   domain.PlayerID
	RoomDeleted bool
}

// Rejoin reports a connection rebound onto an existing player.
type Rejoin struct {
	Room         *Room
	Player       *Player
	PreviousConn domain.ConnID
}

func (s *Store) Len() int { return len(s.rooms) }

func (s *Store) Room(code domain.RoomCode) (*Room, bool) {
	r, ok := s.rooms[code]
	return r, ok
}

// Lookup finds the room and player a connection currently represents.
func (s *Store) Lookup(conn domain.ConnID) (*Room, *Player, bool) {
	code, ok := s.conns[conn]
	if !ok {
		return nil, nil, false
	}
	room, ok := s.rooms[code]
	if !ok {
		return nil, nil, false
	}
	for _, p := range room.players {
		if p.Conn == conn {
			return room, p, true
		}
	}
	return nil, nil, false
}

// CreateRoom allocates a fresh code and seats the creator as host.
func (s *Store) CreateRoom(name string, conn domain.ConnID) (*Room, *Player, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return nil, nil, err
	}
	code, err := s.allocateCode()
	if err != nil {
		return nil, nil, err
	}
	room := newRoom(code, s.now(), s.defaults)
	p := s.seat(room, name, conn)
	room.HostID = p.ID
	s.rooms[code] = room

	log.Info().Str("module", "core.store").Str("room", string(code)).Str("player", string(p.ID)).Msg("room created")
	return room, p, nil
}

func (s *Store) allocateCode() (domain.RoomCode, error) {
	for range maxCodeAttempts {
		code, err := s.codes()
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (s *Store) JoinRoom(code domain.RoomCode, name string, conn domain.ConnID) (*Room, *Player, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return nil, nil, err
	}
	room, ok := s.rooms[code]
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	if !room.Phase().Joinable() {
		return nil, nil, domain.ErrGameInProgress
	}
	if _, taken := room.playerByName(name); taken {
		return nil, nil, domain.ErrNameTaken
	}
	p := s.seat(room, name, conn)
	log.Info().Str("module", "core.store").Str("room", string(code)).Str("player", string(p.ID)).Msg("player joined")
	return room, p, nil
}

func (s *Store) seat(room *Room, name string, conn domain.ConnID) *Player {
	p := &Player{
		ID:       s.newID(),
		Name:     name,
		Conn:     conn,
		JoinedAt: s.now(),
	}
	room.players = append(room.players, p)
	s.conns[conn] = room.Code
	return p
}

// AttemptRejoin rebinds conn onto the player with the same name, in any phase.
func (s *Store) AttemptRejoin(code domain.RoomCode, name string, conn domain.ConnID) (*Rejoin, bool) {
	room, ok := s.rooms[code]
	if !ok {
		return nil, false
	}
	p, ok := room.playerByName(domain.TrimName(name))
	if !ok {
		return nil, false
	}
	prev := p.Conn
	if prev != conn {
		delete(s.conns, prev)
	}
	p.Conn = conn
	s.conns[conn] = code

	log.Info().Str("module", "core.store").Str("room", string(code)).Str("player", string(p.ID)).Msg("player rejoined")
	return &Rejoin{Room: room, Player: p, PreviousConn: prev}, true
}

// RemovePlayer drops the player bound to conn. The room is deleted when it
// becomes empty; otherwise the host moves to the earliest remaining player.
func (s *Store) RemovePlayer(conn domain.ConnID) (*Removal, bool) {
	room, p, ok := s.Lookup(conn)
	if !ok {
		return nil, false
	}
	delete(s.conns, conn)

	room.releaseSeat(p.ID)
	for i, q := range room.players {
		if q.ID == p.ID {
			room.players = append(room.players[:i], room.players[i+1:]...)
			break
		}
	}

	res := &Removal{Room: room, Player: p}
	if len(room.players) == 0 {
		delete(s.rooms, room.Code)
		res.RoomDeleted = true
		log.Info().Str("module", "core.store").Str("room", string(room.Code)).Msg("room deleted")
		return res, true
	}
	if room.HostID == p.ID {
		room.HostID = room.players[0].ID
		res.NewHostID = room.HostID
	}
	log.Info().Str("module", "core.store").Str("room", string(room.Code)).Str("player", string(p.ID)).Msg("player removed")
	return res, true
}
