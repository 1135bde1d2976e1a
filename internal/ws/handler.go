package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/internal/store"
	"github.com/mesahub/mesa-backend/internal/table"
	"github.com/mesahub/mesa-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades GET /ws/{userID} and bridges the connection onto the
// session table: a writer goroutine drains the table outbox, the request
// goroutine reads commands.
func Handler(tb *table.Table, st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			http.Error(w, "missing user id", http.StatusBadRequest)
			return
		}
		if _, err := st.GetUser(r.Context(), userID); err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// the browser client runs on a different origin in dev
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, 16)
		tb.Inbox() <- table.Join{UserID: userID, Outbox: out}
		defer func() { tb.Inbox() <- table.Leave{UserID: userID, Outbox: out} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal envelope", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Leave in the defer tells the table either way
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Warn("bad client message", zap.String("user_id", userID), zap.Error(err))
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"bad json"}`))
				continue
			}

			tb.Inbox() <- table.FromClient{UserID: userID, Msg: cm}
		}
	}
}
