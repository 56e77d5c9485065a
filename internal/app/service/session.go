package service

import (
	"sort"
	"sync"
)

// MemberStats son los puntos efímeros de UNA batalla. Viven en memoria y
// se pierden en un restart: contrato explícito, no bug.
type MemberStats struct {
	Points      int
	Wins        int
	Submissions int
}

type SessionEntry struct {
	UserID string
	MemberStats
}

type Duelist struct {
	UserID       string
	SubmissionID int64
	TrackURL     string
}

// Battle es la ronda en curso (rey vs retador, o duelo final de tiebreaker).
type Battle struct {
	King       Duelist
	Challenger Duelist
	Tiebreaker bool
}

// guildSession agrupa todo el estado en memoria de un guild: stats de la
// batalla abierta, mensajes a limpiar, la ronda en curso, las entregas del
// tiebreaker y el contador de reviews de la sesión regular. Su propio mutex
// hace atómicos los read-increment-write (antes cada mapa iba suelto).
type guildSession struct {
	mu              sync.Mutex
	stats           map[string]*MemberStats
	battleMessages  []string
	battle          *Battle
	tiebreaker      map[string]string // userID -> track URL, primera entrega gana
	tiebreakerOrder []string
	regularReviewed int
}

// SessionRegistry: un guildSession por guild, creado lazy y destruido en
// finalize (ciclo de vida explícito del estado efímero).
type SessionRegistry struct {
	mu      sync.Mutex
	byGuild map[string]*guildSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{byGuild: map[string]*guildSession{}}
}

func (r *SessionRegistry) get(guildID string) *guildSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	gs, ok := r.byGuild[guildID]
	if !ok {
		gs = &guildSession{stats: map[string]*MemberStats{}, tiebreaker: map[string]string{}}
		r.byGuild[guildID] = gs
	}
	return gs
}

// Drop descarta TODO el estado efímero del guild.
func (r *SessionRegistry) Drop(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byGuild, guildID)
}

func (r *SessionRegistry) ResetStats(guildID string) {
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.stats = map[string]*MemberStats{}
	gs.mu.Unlock()
}

func (gs *guildSession) stat(userID string) *MemberStats {
	st, ok := gs.stats[userID]
	if !ok {
		st = &MemberStats{}
		gs.stats[userID] = st
	}
	return st
}

func (r *SessionRegistry) RecordSubmission(guildID, userID string) {
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.stat(userID).Submissions++
	gs.mu.Unlock()
}

// RecordRoundWin suma punto y win de la ronda en una sola sección crítica.
func (r *SessionRegistry) RecordRoundWin(guildID, userID string) {
	gs := r.get(guildID)
	gs.mu.Lock()
	st := gs.stat(userID)
	st.Points++
	st.Wins++
	gs.mu.Unlock()
}

// AddPoints suma puntos manuales. Sumar crea la entrada si hace falta;
// restar a alguien que no está en la batalla se ignora, para no inventar
// participantes con puntaje negativo en el scoreboard.
func (r *SessionRegistry) AddPoints(guildID, userID string, delta int) {
	gs := r.get(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if delta < 0 {
		if st, ok := gs.stats[userID]; ok {
			st.Points += delta
		}
		return
	}
	gs.stat(userID).Points += delta
}

// Sorted devuelve el scoreboard de la sesión: puntos desc y, a igual
// puntaje, user id asc, para que el orden sea determinista.
func (r *SessionRegistry) Sorted(guildID string) []SessionEntry {
	gs := r.get(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	out := make([]SessionEntry, 0, len(gs.stats))
	for uid, st := range gs.stats {
		out = append(out, SessionEntry{UserID: uid, MemberStats: *st})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (r *SessionRegistry) TrackMessage(guildID, messageID string) {
	if messageID == "" {
		return
	}
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.battleMessages = append(gs.battleMessages, messageID)
	gs.mu.Unlock()
}

func (r *SessionRegistry) PopMessages(guildID string) []string {
	gs := r.get(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	msgs := gs.battleMessages
	gs.battleMessages = nil
	return msgs
}

func (r *SessionRegistry) SetBattle(guildID string, b *Battle) {
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.battle = b
	gs.mu.Unlock()
}

func (r *SessionRegistry) CurrentBattle(guildID string) *Battle {
	gs := r.get(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.battle == nil {
		return nil
	}
	b := *gs.battle
	return &b
}

func (r *SessionRegistry) ClearBattle(guildID string) {
	r.SetBattle(guildID, nil)
}

// ResetTiebreaker limpia las entregas pendientes del duelo.
func (r *SessionRegistry) ResetTiebreaker(guildID string) {
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.tiebreaker = map[string]string{}
	gs.tiebreakerOrder = nil
	gs.mu.Unlock()
}

// TiebreakerSubmit registra la PRIMERA entrega del duelista; las siguientes
// se ignoran sin rechazo. Devuelve si se aceptó y, si ya entregaron los dos,
// el par en orden de llegada.
func (r *SessionRegistry) TiebreakerSubmit(guildID, userID, trackURL string) (accepted bool, duelists []Duelist) {
	gs := r.get(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, dup := gs.tiebreaker[userID]; dup {
		return false, nil
	}
	gs.tiebreaker[userID] = trackURL
	gs.tiebreakerOrder = append(gs.tiebreakerOrder, userID)

	if len(gs.tiebreaker) < 2 {
		return true, nil
	}
	for _, uid := range gs.tiebreakerOrder {
		duelists = append(duelists, Duelist{UserID: uid, TrackURL: gs.tiebreaker[uid]})
	}
	return true, duelists
}

func (r *SessionRegistry) IncRegularReviewed(guildID string) {
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.regularReviewed++
	gs.mu.Unlock()
}

func (r *SessionRegistry) ResetRegularReviewed(guildID string) {
	gs := r.get(guildID)
	gs.mu.Lock()
	gs.regularReviewed = 0
	gs.mu.Unlock()
}

func (r *SessionRegistry) RegularReviewed(guildID string) int {
	gs := r.get(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.regularReviewed
}
