package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tolarian/cardtable-backend/internal/game"
	"github.com/tolarian/cardtable-backend/internal/sanitize"
	"github.com/tolarian/cardtable-backend/pkg/types"
)

// ErrClosed is returned by the synchronous helpers once the session's
// goroutine has exited.
var ErrClosed = errors.New("session closed")

type Msg interface{ isSessionMsg() }

type Join struct {
	ConnID string
	Player types.PlayerInfo
	Outbox chan types.ServerEvent // where this connection receives events
}

func (Join) isSessionMsg() {}

type Disconnect struct{ ConnID string }

func (Disconnect) isSessionMsg() {}

// Signal carries an opaque WebRTC payload toward one peer connection.
type Signal struct {
	From    string
	Target  string
	Payload json.RawMessage
}

func (Signal) isSessionMsg() {}

type MediaToggle struct {
	From    string
	Kind    string
	Enabled bool
}

func (MediaToggle) isSessionMsg() {}

// PassTurn advances the circular turn pointer. On an empty room the
// error goes to From only (when set); nothing is broadcast.
type PassTurn struct{ From string }

func (PassTurn) isSessionMsg() {}

type Start struct{ Reply chan error }

func (Start) isSessionMsg() {}

type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

type PlayerCount struct{ Reply chan int }

func (PlayerCount) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// removalExpired is posted by a pending-removal timer. Gen guards
// against a timer that was superseded by a reconnect+disconnect cycle
// before its message was processed.
type removalExpired struct {
	PlayerID string
	Gen      uint64
}

func (removalExpired) isSessionMsg() {}

// View reflects internal state without data races (tests and the REST
// snapshot both read through it).
type View struct {
	Room       types.RoomView
	NumConns   int
	NumPending int
}

type pendingRemoval struct {
	timer *time.Timer
	gen   uint64
}

// Session owns all mutable state for one room. Every mutation flows
// through the inbox and is applied by the single loop goroutine, so
// connections observe broadcasts in application order.
type Session struct {
	inbox   chan Msg
	room    *game.Room
	conns   map[string]chan types.ServerEvent // connID -> outbox
	pending map[string]*pendingRemoval        // playerID -> grace timer
	gen     uint64

	grace   time.Duration
	onEmpty func(code string)
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts the session goroutine. onEmpty is invoked (on the session
// goroutine, so it must not block) whenever the player list becomes
// empty after a removal.
func New(parent context.Context, code string, grace time.Duration, onEmpty func(code string), log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan Msg, 64),
		room:    game.NewRoom(code),
		conns:   make(map[string]chan types.ServerEvent),
		pending: make(map[string]*pendingRemoval),
		grace:   grace,
		onEmpty: onEmpty,
		log:     log.With(zap.String("room", code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Deliver enqueues a message unless the session has already shut down.
// The shutdown check runs first so a dead session never reports a
// delivery as accepted just because the inbox still had buffer space.
func (s *Session) Deliver(m Msg) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case <-s.ctx.Done():
		return false
	case s.inbox <- m:
		return true
	}
}

// Players reports the current player count, counting pending-removal
// players. 0 when the session is gone.
func (s *Session) Players() int {
	reply := make(chan int, 1)
	if !s.Deliver(PlayerCount{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-s.ctx.Done():
		return 0
	}
}

// MarkStarted flips the one-way started flag.
func (s *Session) MarkStarted() error {
	reply := make(chan error, 1)
	if !s.Deliver(Start{Reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// State returns a sanitized snapshot of the room.
func (s *Session) State() (View, bool) {
	reply := make(chan View, 1)
	if !s.Deliver(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-s.ctx.Done():
		return View{}, false
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.handleJoin(msg)

			case Disconnect:
				s.handleDisconnect(msg)

			case removalExpired:
				if s.handleRemovalExpired(msg) {
					return
				}

			case Signal:
				// Forward verbatim; a target that already left is an
				// expected race during peer teardown, not an error.
				if _, ok := s.conns[msg.Target]; !ok {
					break
				}
				s.send(msg.Target, types.ServerEvent{
					Type:   types.EvtSignal,
					From:   msg.From,
					Signal: msg.Payload,
				})

			case MediaToggle:
				s.handleMediaToggle(msg)

			case PassTurn:
				ts, err := s.room.AdvanceTurn()
				if err != nil {
					if msg.From != "" {
						s.send(msg.From, types.ServerEvent{Type: types.EvtError, Error: err.Error()})
					}
					break
				}
				turn, player := ts.Turn, ts.TurnPlayer
				s.broadcast(types.ServerEvent{
					Type:       types.EvtTurnUpdate,
					Turn:       &turn,
					TurnPlayer: &player,
					TurnPhase:  string(ts.Phase),
				})

			case Start:
				msg.Reply <- s.room.Start()

			case GetState:
				msg.Reply <- View{
					Room:       s.room.Snapshot(),
					NumConns:   len(s.conns),
					NumPending: len(s.pending),
				}

			case PlayerCount:
				msg.Reply <- len(s.room.Players)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleJoin(msg Join) {
	res := s.room.Join(msg.ConnID, msg.Player)
	if res.Reconnected {
		// Cancel the grace timer; turn order, counters and media state
		// were never touched.
		if pr, ok := s.pending[res.Player.ID]; ok {
			pr.timer.Stop()
			delete(s.pending, res.Player.ID)
		}
		// A still-open previous connection loses its binding.
		if res.PrevConnID != "" && res.PrevConnID != msg.ConnID {
			if ch, ok := s.conns[res.PrevConnID]; ok {
				close(ch)
				delete(s.conns, res.PrevConnID)
			}
		}
	}
	s.conns[msg.ConnID] = msg.Outbox

	s.send(msg.ConnID, types.ServerEvent{
		Type:         types.EvtYouAre,
		ConnectionID: msg.ConnID,
		Name:         sanitize.Escape(res.Player.Name),
	})
	s.broadcastPlayers()

	s.log.Info("player joined",
		zap.String("player_id", res.Player.ID),
		zap.String("conn_id", msg.ConnID),
		zap.Bool("reconnect", res.Reconnected),
		zap.Int("turn_order", res.Player.TurnOrder))
}

func (s *Session) handleDisconnect(msg Disconnect) {
	if ch, ok := s.conns[msg.ConnID]; ok {
		close(ch)
		delete(s.conns, msg.ConnID)
	}
	s.startRemoval(msg.ConnID)
}

// handleRemovalExpired reports whether the session shut itself down
// because the room emptied.
func (s *Session) handleRemovalExpired(msg removalExpired) bool {
	pr, ok := s.pending[msg.PlayerID]
	if !ok || pr.gen != msg.Gen {
		return false // canceled by a reconnect, or superseded
	}
	delete(s.pending, msg.PlayerID)

	if !s.room.Remove(msg.PlayerID) {
		return false
	}
	s.broadcastPlayers()
	s.log.Info("player removed after grace window", zap.String("player_id", msg.PlayerID))

	if len(s.room.Players) == 0 {
		code := s.room.Code
		s.shutdown()
		if s.onEmpty != nil {
			s.onEmpty(code)
		}
		return true
	}
	return false
}

func (s *Session) handleMediaToggle(msg MediaToggle) {
	p := s.room.SetMedia(msg.From, msg.Kind, msg.Enabled)
	if p == nil {
		return
	}
	enabled := msg.Enabled
	ev := types.ServerEvent{
		Type:    types.EvtPeerMediaToggle,
		From:    msg.From,
		Kind:    msg.Kind,
		Enabled: &enabled,
	}
	for id := range s.conns {
		if id != msg.From {
			s.send(id, ev)
		}
	}
}

func (s *Session) broadcastPlayers() {
	s.broadcast(types.ServerEvent{
		Type:    types.EvtPlayersUpdate,
		Players: s.room.SanitizedPlayers(),
	})
}

func (s *Session) broadcast(ev types.ServerEvent) {
	for id := range s.conns {
		s.send(id, ev)
	}
}

func (s *Session) send(connID string, ev types.ServerEvent) {
	ch, ok := s.conns[connID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		// Connection is slow/full - drop it and let the grace window
		// handle its player like any other disconnect.
		close(ch)
		delete(s.conns, connID)
		s.startRemoval(connID)
	}
}

// startRemoval clears the player's live connection and arms the grace
// timer. The slot is kept for the grace window so a reconnect reclaims
// it silently instead of disrupting the mesh and the turn order.
func (s *Session) startRemoval(connID string) {
	p := s.room.DisconnectConn(connID)
	if p == nil {
		return
	}
	s.gen++
	gen := s.gen
	playerID := p.ID
	t := time.AfterFunc(s.grace, func() {
		select {
		case s.inbox <- removalExpired{PlayerID: playerID, Gen: gen}:
		case <-s.ctx.Done():
		}
	})
	s.pending[playerID] = &pendingRemoval{timer: t, gen: gen}

	s.log.Info("player disconnected, removal pending",
		zap.String("player_id", playerID),
		zap.Duration("grace", s.grace))
}

func (s *Session) shutdown() {
	for id, ch := range s.conns {
		close(ch)
		delete(s.conns, id)
	}
	for id, pr := range s.pending {
		pr.timer.Stop()
		delete(s.pending, id)
	}
	s.cancel()
	s.drain()
}

// drain answers messages that were enqueued concurrently with shutdown
// so no joiner or caller is left hanging on a dead inbox.
func (s *Session) drain() {
	for {
		select {
		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Outbox <- types.ServerEvent{Type: types.EvtError, Error: "Room not found"}
				close(msg.Outbox)
			case Start:
				msg.Reply <- ErrClosed
			case GetState:
				msg.Reply <- View{}
			case PlayerCount:
				msg.Reply <- 0
			}
		default:
			return
		}
	}
}
