package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tolarian/cardtable-backend/internal/hub"
	"github.com/tolarian/cardtable-backend/internal/session"
	"github.com/tolarian/cardtable-backend/pkg/types"
)

const writeTimeout = 5 * time.Second

// Handler is the session gateway: it accepts a persistent connection,
// assigns it a connection identity, and dispatches named events to the
// room the connection binds itself to with join_room.
//
// The outbox channel is written and eventually closed only by the
// owning session; the reader loop reports its own errors by writing
// frames directly (conn.Write is safe for concurrent use), so the two
// paths never race on the channel.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan types.ServerEvent, 16)

		var sess *session.Session // nil until join_room succeeds

		defer func() {
			if sess != nil {
				// Starts the grace window; the session closes out.
				sess.Deliver(session.Disconnect{ConnID: connID})
			} else {
				close(out)
			}
		}()

		// Writer goroutine: drains the outbox until the session closes it.
		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for ev := range out {
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		log.Info("connection opened", zap.String("conn_id", connID))

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Abnormal drop: the deferred Disconnect covers it.
				return
			}

			var ev types.ClientEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				writeErr(r.Context(), conn, "bad json")
				continue
			}

			switch ev.Type {
			case types.EvtJoinRoom:
				if sess != nil {
					writeErr(r.Context(), conn, "already in a room")
					continue
				}
				if ev.Player.ID == "" {
					writeErr(r.Context(), conn, "player id required")
					continue
				}
				reply := make(chan *session.Session, 1)
				h.Inbox() <- hub.GetRoom{Code: ev.Room, Reply: reply}
				target := <-reply
				if target == nil || !target.Deliver(session.Join{
					ConnID: connID,
					Player: ev.Player,
					Outbox: out,
				}) {
					writeErr(r.Context(), conn, "Room not found")
					continue
				}
				sess = target

			case types.EvtSignal:
				if sess == nil {
					writeErr(r.Context(), conn, "join a room first")
					continue
				}
				sess.Deliver(session.Signal{
					From:    connID,
					Target:  ev.Target,
					Payload: ev.Signal,
				})

			case types.EvtMediaToggle:
				if sess == nil {
					writeErr(r.Context(), conn, "join a room first")
					continue
				}
				sess.Deliver(session.MediaToggle{
					From:    connID,
					Kind:    ev.Kind,
					Enabled: ev.Enabled,
				})

			case types.EvtPassTurn:
				if sess == nil {
					writeErr(r.Context(), conn, "join a room first")
					continue
				}
				sess.Deliver(session.PassTurn{From: connID})

			default:
				writeErr(r.Context(), conn, "unknown event type")
			}
		}
	}
}

func writeErr(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerEvent{Type: types.EvtError, Error: msg})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
