package webpanel

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// SnapshotFunc construye el estado completo del widget para un guild
// (lo implementa el BattleService).
type SnapshotFunc func(ctx context.Context, guildID string) (any, error)

type Server struct {
	hub      *Hub
	snapshot SnapshotFunc
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

func New(hub *Hub, snapshot SnapshotFunc) *Server {
	s := &Server{
		hub:      hub,
		snapshot: snapshot,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// el widget se embebe desde cualquier lado (OBS, browser)
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/widget/ws/", s.handleWidgetWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func (s *Server) handleWidgetWS(w http.ResponseWriter, r *http.Request) {
	guildID := strings.TrimPrefix(r.URL.Path, "/widget/ws/")
	if guildID == "" || strings.Contains(guildID, "/") {
		http.Error(w, "bad guild id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[widget] upgrade guild=%s: %v", guildID, err)
		return
	}

	s.hub.Register(guildID, conn)
	defer func() {
		s.hub.Unregister(guildID, conn)
		_ = conn.Close()
	}()

	// push inicial con el estado completo, vía el hub para no pisar un
	// Broadcast en vuelo sobre la misma conexión
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	data, err := s.snapshot(ctx, guildID)
	cancel()
	if err != nil {
		log.Printf("[widget] snapshot inicial guild=%s: %v", guildID, err)
	} else {
		s.hub.Send(guildID, conn, data)
	}

	// loop de lectura solo para detectar el cierre
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) Start(addr string) {
	log.Printf("🌐 widget HTTP escuchando en %s", addr)
	if err := http.ListenAndServe(addr, s.mux); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
