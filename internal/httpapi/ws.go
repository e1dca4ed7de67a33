package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SCRAME314/elehant-water-new/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway serves a local dashboard; cross-origin policy is left to
	// whatever fronts it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// registerReadingsSocket streams every reading-store update to connected
// websocket clients as JSON, so consumers refresh within one scan cycle.
func registerReadingsSocket(mux *http.ServeMux, st *store.Store) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("ws: upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		updates, cancel := st.Subscribe(16)
		defer cancel()

		// Reader goroutine: we send only, but must consume control frames
		// and notice the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Snapshot first so a fresh client starts from current state.
		for _, reading := range st.All() {
			if err := writeReading(conn, reading); err != nil {
				return
			}
		}

		for {
			select {
			case reading, ok := <-updates:
				if !ok {
					return
				}
				if err := writeReading(conn, reading); err != nil {
					slog.Debug("ws: client write failed", "error", err)
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}

func writeReading(conn *websocket.Conn, r store.Reading) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(r)
}
