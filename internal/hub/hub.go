package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/tolarian/cardtable-backend/internal/session"
)

var ErrRoomExists = errors.New("room already exists")
var ErrCodeSpaceExhausted = errors.New("could not generate an unused room code")

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 8

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	Reply chan error
}

type GetRoom struct {
	Code  string
	Reply chan *session.Session
}

type ListRooms struct {
	Reply chan []string
}

// GenerateCode draws codes until one is absent from the registry,
// bounded by the configured attempt cap.
type GenerateCode struct {
	Reply chan CodeReply
}

type CodeReply struct {
	Code string
	Err  error
}

// RemoveRoom is posted by a session whose player list emptied. The hub
// re-checks the count before deleting so a room recreated under the
// same code in the meantime is not torn down.
type RemoveRoom struct{ Code string }

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()   {}
func (GetRoom) isHubMsg()      {}
func (ListRooms) isHubMsg()    {}
func (GenerateCode) isHubMsg() {}
func (RemoveRoom) isHubMsg()   {}
func (ShutdownHub) isHubMsg()  {}

type Options struct {
	GraceWindow   time.Duration // disconnect grace before removal
	SweepInterval time.Duration // empty-room sweep period
	CodeAttempts  int           // draw-and-check cap for GenerateCode
}

// Hub owns the code -> session registry. Like the sessions it manages,
// it is a single goroutine fed by an inbox of tagged messages.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*session.Session
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options, log *zap.Logger) *Hub {
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = 3 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 10 * time.Minute
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = 100
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*session.Session),
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	sweep := time.NewTicker(h.opts.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-sweep.C:
			h.sweepEmptyRooms()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if _, ok := h.rooms[msg.Code]; ok {
					msg.Reply <- ErrRoomExists
					break
				}
				h.rooms[msg.Code] = h.newSession(msg.Code)
				h.log.Info("room created", zap.String("room", msg.Code))
				msg.Reply <- nil

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case ListRooms:
				codes := make([]string, 0, len(h.rooms))
				for code := range h.rooms {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case GenerateCode:
				code, err := h.generateCode()
				msg.Reply <- CodeReply{Code: code, Err: err}

			case RemoveRoom:
				h.removeIfEmpty(msg.Code)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) newSession(code string) *session.Session {
	onEmpty := func(code string) {
		// Fired on the session goroutine; hand off so it never blocks
		// against a hub that is mid-query on another session.
		go func() {
			select {
			case h.inbox <- RemoveRoom{Code: code}:
			case <-h.ctx.Done():
			}
		}()
	}
	return session.New(h.ctx, code, h.opts.GraceWindow, onEmpty, h.log)
}

// generateCode draws 8-character [A-Z0-9] codes until one misses the
// registry. The 36^8 space makes collisions vanishingly rare; the
// attempt cap exists to fail closed instead of looping forever if that
// assumption ever breaks.
func (h *Hub) generateCode() (string, error) {
	for i := 0; i < h.opts.CodeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func randomCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}

func (h *Hub) removeIfEmpty(code string) {
	sess, ok := h.rooms[code]
	if !ok {
		return
	}
	if sess.Players() > 0 {
		return
	}
	delete(h.rooms, code)
	sess.Deliver(session.Shutdown{})
	h.log.Info("room removed", zap.String("room", code))
}

// sweepEmptyRooms is the periodic backstop for rooms that were created
// over the REST surface but never joined; emptied rooms are normally
// removed synchronously via RemoveRoom.
func (h *Hub) sweepEmptyRooms() {
	for code := range h.rooms {
		h.removeIfEmpty(code)
	}
}

func (h *Hub) shutdown() {
	for code, sess := range h.rooms {
		sess.Deliver(session.Shutdown{})
		delete(h.rooms, code)
	}
	h.cancel()
}
