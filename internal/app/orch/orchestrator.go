package orch

import (
	"context"
	"time"

	"github.com/dkeye/imposter/internal/app/clock"
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

// MinActivePlayers is the headcount below which a running round is aborted.
const MinActivePlayers = 3

// Transport delivers payloads to connections. Send must not block.
// Connected and Drop let the dispatcher resolve a seat claimed by a second
// socket.
type Transport interface {
	Send(conn domain.ConnID, msg any)
	Connected(conn domain.ConnID) bool
	Drop(conn domain.ConnID) bool
}

type Config struct {
	RoleRevealSeconds int
	ResultsSeconds    int
	TickInterval      time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoleRevealSeconds: 8,
		ResultsSeconds:    15,
		TickInterval:      clock.DefaultInterval,
	}
}

// Orchestrator is the single dispatcher for every room. Player actions,
// disconnects and timer fires all arrive on inbox and run one at a time,
// so the core needs no locks; a late trigger simply fails its phase check.
type Orchestrator struct {
	inbox   chan Msg
	store   *core.Store
	machine *core.Machine
	clock   *clock.Coordinator
	out     Transport
	cfg     Config

	ctx  context.Context
	done chan struct{}
}

func New(ctx context.Context, store *core.Store, machine *core.Machine, out Transport, cfg Config) *Orchestrator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = clock.DefaultInterval
	}
	o := &Orchestrator{
		inbox:   make(chan Msg, 256),
		store:   store,
		machine: machine,
		out:     out,
		cfg:     cfg,
		ctx:     ctx,
		done:    make(chan struct{}),
	}
	o.clock = clock.New(o.exec, clock.WithInterval(cfg.TickInterval))

	go o.loop()
	return o
}

// Post queues msg for the dispatcher. It returns false once the
// orchestrator has stopped.
func (o *Orchestrator) Post(msg Msg) bool {
	select {
	case o.inbox <- msg:
		return true
	case <-o.ctx.Done():
		return false
	}
}

// Room answers a RoomInfo query.
func (o *Orchestrator) Room(ctx context.Context, code domain.RoomCode) (RoomSummary, bool) {
	reply := make(chan RoomSummary, 1)
	if !o.Post(RoomInfo{Code: code, Reply: reply}) {
		return RoomSummary{}, false
	}
	select {
	case s := <-reply:
		return s, s.Found
	case <-ctx.Done():
		return RoomSummary{}, false
	case <-o.done:
		return RoomSummary{}, false
	}
}

// Done is closed when the dispatcher has exited.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

func (o *Orchestrator) exec(fn func()) { o.Post(task{fn: fn}) }

func (o *Orchestrator) loop() {
	defer close(o.done)
	for {
		select {
		case <-o.ctx.Done():
			o.clock.Stop()
			log.Info().Str("module", "orch").Msg("dispatcher stopped")
			return
		case m := <-o.inbox:
			o.dispatch(m)
		}
	}
}

func (o *Orchestrator) dispatch(m Msg) {
	switch msg := m.(type) {
	case task:
		msg.fn()
	case CreateRoom:
		o.createRoom(msg)
	case JoinRoom:
		o.joinRoom(msg)
	case Leave:
		o.removeConn(msg.Conn, "leave")
	case Disconnect:
		o.removeConn(msg.Conn, "disconnect")
	case StartGame:
		o.startGame(msg)
	case UpdateSettings:
		o.updateSettings(msg)
	case Advance:
		o.advance(msg)
	case SubmitDescription:
		o.submitDescription(msg)
	case SelectVote:
		o.selectVote(msg)
	case ConfirmVote:
		o.confirmVote(msg)
	case SubmitVote:
		o.submitVote(msg)
	case Chat:
		o.chat(msg)
	case PlayAgain:
		o.playAgain(msg)
	case RequestState:
		o.requestState(msg)
	case RoomInfo:
		o.roomInfo(msg)
	default:
		log.Warn().Str("module", "orch").Msgf("unknown message %T", m)
	}
}

// member resolves the sender of an action or reports NOT_IN_ROOM to it.
func (o *Orchestrator) member(conn domain.ConnID) (*core.Room, *core.Player, bool) {
	room, p, ok := o.store.Lookup(conn)
	if !ok {
		o.sendError(conn, domain.ErrNotInRoom)
		return nil, nil, false
	}
	return room, p, true
}

func (o *Orchestrator) sendError(conn domain.ConnID, err error) {
	e := domain.AsError(err)
	if e.Code == domain.CodeInternal {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(conn)).Msg("internal error")
	}
	o.out.Send(conn, errorMsg{Type: TypeError, Error: e})
}

func (o *Orchestrator) broadcast(room *core.Room, msg any) {
	for _, p := range room.Players() {
		o.out.Send(p.Conn, msg)
	}
}

func (o *Orchestrator) broadcastExcept(room *core.Room, skip domain.PlayerID, msg any) {
	for _, p := range room.Players() {
		if p.ID != skip {
			o.out.Send(p.Conn, msg)
		}
	}
}

func (o *Orchestrator) snapshot(room *core.Room, viewer domain.PlayerID) core.View {
	v := o.machine.Snapshot(room, viewer)
	if rem, ok := o.clock.Remaining(room.Code); ok {
		v.Timer = &core.TimerInfo{Tag: o.clock.Tag(room.Code), Remaining: rem}
	}
	return v
}

func (o *Orchestrator) sendState(room *core.Room, p *core.Player) {
	o.out.Send(p.Conn, roomStateMsg{Type: TypeRoomState, State: o.snapshot(room, p.ID)})
}

// broadcastState sends every member its own view.
func (o *Orchestrator) broadcastState(room *core.Room) {
	for _, p := range room.Players() {
		o.sendState(room, p)
	}
}

// liveRoom resolves a room for a timer callback. A room that emptied since
// the timer was armed is logged and dropped.
func (o *Orchestrator) liveRoom(code domain.RoomCode, tag string) (*core.Room, bool) {
	room, ok := o.store.Room(code)
	if !ok {
		log.Warn().Str("module", "orch").Str("room", string(code)).Str("tag", tag).Msg("timer fired for missing room")
	}
	return room, ok
}

func (o *Orchestrator) startTimer(room *core.Room, tag string, seconds int, onExpire func(*core.Room)) {
	code := room.Code
	o.clock.Start(code, tag, seconds,
		func(remaining int) {
			r, ok := o.store.Room(code)
			if !ok {
				return
			}
			o.broadcast(r, timerMsg{Type: TypeTimer, Tag: tag, Remaining: remaining})
		},
		func() {
			r, ok := o.liveRoom(code, tag)
			if !ok {
				return
			}
			onExpire(r)
		},
	)
}
