package webpanel

import (
	"encoding/json"
	"log"
	"sync"
)

// WidgetConn es lo mínimo que el hub necesita de una conexión (websocket
// real en producción, stub en tests).
type WidgetConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const textMessage = 1 // websocket.TextMessage

// Hub fanea snapshots a los widgets conectados, agrupados por guild.
// Sin reintentos ni garantía de entrega: una conexión que falla se da de
// baja y el resto sigue recibiendo. gorilla/websocket admite UN solo
// escritor por conexión, así que cada conexión lleva su propio lock de
// escritura y todo write (fan-out o push directo) pasa por él.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[WidgetConn]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{conns: map[string]map[WidgetConn]*sync.Mutex{}}
}

func (h *Hub) Register(guildID string, c WidgetConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[guildID]
	if !ok {
		set = map[WidgetConn]*sync.Mutex{}
		h.conns[guildID] = set
	}
	set[c] = &sync.Mutex{}
	log.Printf("[widget] conexión registrada guild=%s total=%d", guildID, len(set))
}

func (h *Hub) Unregister(guildID string, c WidgetConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[guildID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, guildID)
		}
	}
}

// Broadcast serializa una vez y escribe a cada suscriptor. Implementa
// service.Broadcaster.
func (h *Hub) Broadcast(guildID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[widget] marshal guild=%s: %v", guildID, err)
		return
	}

	type target struct {
		c   WidgetConn
		wmu *sync.Mutex
	}
	h.mu.Lock()
	targets := make([]target, 0, len(h.conns[guildID]))
	for c, wmu := range h.conns[guildID] {
		targets = append(targets, target{c: c, wmu: wmu})
	}
	h.mu.Unlock()

	for _, t := range targets {
		t.wmu.Lock()
		err := t.c.WriteMessage(textMessage, raw)
		t.wmu.Unlock()
		if err != nil {
			// conexión muerta: fuera, y seguimos con las demás
			log.Printf("[widget] write guild=%s: %v", guildID, err)
			h.Unregister(guildID, t.c)
			_ = t.c.Close()
		}
	}
}

// Send escribe un payload a UNA conexión registrada, bajo el mismo lock de
// escritura que usa Broadcast (se usa para el push inicial del snapshot).
func (h *Hub) Send(guildID string, c WidgetConn, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[widget] marshal guild=%s: %v", guildID, err)
		return
	}

	h.mu.Lock()
	wmu := h.conns[guildID][c]
	h.mu.Unlock()
	if wmu == nil {
		return
	}

	wmu.Lock()
	err = c.WriteMessage(textMessage, raw)
	wmu.Unlock()
	if err != nil {
		log.Printf("[widget] write guild=%s: %v", guildID, err)
		h.Unregister(guildID, c)
		_ = c.Close()
	}
}

func (h *Hub) Count(guildID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[guildID])
}
