package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

// Fakes programables para los ports del service. Cada método delega en su
// campo Func si está seteado; si no, devuelve un default inofensivo. Los
// fakes de settings e inventario guardan estado en memoria para poder
// testear flujos completos sin base.

type fakeSubs struct {
	nextID int64
	byID   map[int64]storage.Submission
	queue  []int64        // ids pendientes en orden de llegada
	prio   map[int64]bool // submitted_at pisado al epoch: salen primero

	EnqueueFunc       func(ctx context.Context, guildID, userID, trackURL, subType string) (int64, error)
	DequeueNextFunc   func(ctx context.Context, guildID, subType string) (storage.Submission, error)
	PrioritizeFunc    func(ctx context.Context, id int64) error
	ReviewingUserFunc func(ctx context.Context, guildID, subType string) (string, error)

	prioritized []int64
	cleared     []string
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{byID: map[int64]storage.Submission{}, prio: map[int64]bool{}}
}

func (f *fakeSubs) Enqueue(ctx context.Context, guildID, userID, trackURL, subType string) (int64, error) {
	if f.EnqueueFunc != nil {
		return f.EnqueueFunc(ctx, guildID, userID, trackURL, subType)
	}
	f.nextID++
	f.byID[f.nextID] = storage.Submission{
		ID: f.nextID, GuildID: guildID, UserID: userID,
		TrackURL: trackURL, Status: storage.SubmissionPending, Type: subType,
	}
	f.queue = append(f.queue, f.nextID)
	return f.nextID, nil
}

// DequeueNext imita el ORDER BY del repo real: los priorizados comparten el
// submitted_at del epoch y salen primero (entre ellos por id), el resto en
// orden de llegada.
func (f *fakeSubs) DequeueNext(ctx context.Context, guildID, subType string) (storage.Submission, error) {
	if f.DequeueNextFunc != nil {
		return f.DequeueNextFunc(ctx, guildID, subType)
	}
	for _, onlyPrio := range []bool{true, false} {
		for _, id := range f.queue {
			sub := f.byID[id]
			if f.prio[id] != onlyPrio {
				continue
			}
			if sub.Status == storage.SubmissionPending && sub.GuildID == guildID && sub.Type == subType {
				return sub, nil
			}
		}
	}
	return storage.Submission{}, storage.ErrNotFound
}

func (f *fakeSubs) Get(ctx context.Context, id int64) (storage.Submission, error) {
	sub, ok := f.byID[id]
	if !ok {
		return storage.Submission{}, storage.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSubs) Mark(ctx context.Context, id int64, status string, reviewerID *string) error {
	sub, ok := f.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	sub.Status = status
	sub.ReviewerID = reviewerID
	f.byID[id] = sub
	return nil
}

func (f *fakeSubs) Prioritize(ctx context.Context, id int64) error {
	if f.PrioritizeFunc != nil {
		return f.PrioritizeFunc(ctx, id)
	}
	f.prioritized = append(f.prioritized, id)
	f.prio[id] = true
	return nil
}

func (f *fakeSubs) ClearUnreviewed(ctx context.Context, guildID, subType string) (int64, error) {
	f.cleared = append(f.cleared, subType)
	var n int64
	for id, sub := range f.byID {
		if sub.GuildID == guildID && sub.Type == subType && sub.Status != storage.SubmissionReviewed {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) QueueCount(ctx context.Context, guildID, subType string) (int, error) {
	n := 0
	for _, sub := range f.byID {
		if sub.GuildID == guildID && sub.Type == subType && sub.Status == storage.SubmissionPending {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) ReviewedCount(ctx context.Context, guildID, subType string) (int, error) {
	n := 0
	for _, sub := range f.byID {
		if sub.GuildID == guildID && sub.Type == subType && sub.Status == storage.SubmissionReviewed {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) UserCount(ctx context.Context, guildID, userID, subType string) (int, error) {
	n := 0
	for _, sub := range f.byID {
		if sub.GuildID == guildID && sub.UserID == userID && sub.Type == subType {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) LatestPending(ctx context.Context, guildID, userID, subType string) (int64, error) {
	var best int64
	for _, sub := range f.byID {
		if sub.GuildID == guildID && sub.UserID == userID && sub.Type == subType &&
			sub.Status == storage.SubmissionPending && sub.ID > best {
			best = sub.ID
		}
	}
	if best == 0 {
		return 0, storage.ErrNotFound
	}
	return best, nil
}

func (f *fakeSubs) ReviewingUser(ctx context.Context, guildID, subType string) (string, error) {
	if f.ReviewingUserFunc != nil {
		return f.ReviewingUserFunc(ctx, guildID, subType)
	}
	for _, sub := range f.byID {
		if sub.GuildID == guildID && sub.Type == subType && sub.Status == storage.SubmissionReviewing {
			return sub.UserID, nil
		}
	}
	return "", storage.ErrNotFound
}

type battleRecord struct{ winner, loser string }

type fakeBoard struct {
	battles []battleRecord
	adjusts map[string]int
	top     []storage.LeaderboardRow

	RecordBattleFunc func(ctx context.Context, guildID, winnerID, loserID string) error
	TopFunc          func(ctx context.Context, guildID string, limit int) ([]storage.LeaderboardRow, error)
}

func newFakeBoard() *fakeBoard { return &fakeBoard{adjusts: map[string]int{}} }

func (f *fakeBoard) RecordBattle(ctx context.Context, guildID, winnerID, loserID string) error {
	if f.RecordBattleFunc != nil {
		return f.RecordBattleFunc(ctx, guildID, winnerID, loserID)
	}
	f.battles = append(f.battles, battleRecord{winner: winnerID, loser: loserID})
	return nil
}

func (f *fakeBoard) Adjust(ctx context.Context, guildID, userID string, delta int) error {
	f.adjusts[userID] += delta
	return nil
}

func (f *fakeBoard) Top(ctx context.Context, guildID string, limit int) ([]storage.LeaderboardRow, error) {
	if f.TopFunc != nil {
		return f.TopFunc(ctx, guildID, limit)
	}
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeBoard) Reset(ctx context.Context, guildID string) error {
	f.battles = nil
	f.top = nil
	return nil
}

type fakeSettings struct {
	st storage.GuildSettings
}

func newFakeSettings(status string) *fakeSettings {
	return &fakeSettings{st: storage.GuildSettings{
		GuildID:             "g1",
		SubmissionStatus:    status,
		SubmissionsEnabled:  true,
		SubmissionChannelID: "ch-subs",
		KothChannelID:       "ch-koth",
		ReviewChannelID:     "ch-review",
	}}
}

func (f *fakeSettings) Get(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	return f.st, nil
}

func (f *fakeSettings) SetStatus(ctx context.Context, guildID, status string) error {
	f.st.SubmissionStatus = status
	return nil
}

func (f *fakeSettings) SetKing(ctx context.Context, guildID string, userID *string, submissionID *int64) error {
	f.st.KothKingID = userID
	f.st.KothKingSubmissionID = submissionID
	return nil
}

func (f *fakeSettings) SetTiebreakerUsers(ctx context.Context, guildID string, pair *string) error {
	f.st.KothTiebreakerUsers = pair
	return nil
}

func (f *fakeSettings) ResetKothFields(ctx context.Context, guildID string) error {
	f.st.KothKingID = nil
	f.st.KothKingSubmissionID = nil
	f.st.KothTiebreakerUsers = nil
	f.st.SubmissionStatus = storage.StatusKothClosed
	return nil
}

func (f *fakeSettings) SetPanelMessage(ctx context.Context, guildID, messageID string) error {
	f.st.PanelMessageID = messageID
	return nil
}

func (f *fakeSettings) Update(ctx context.Context, guildID string, u storage.GuildSettingsUpdate) (storage.GuildSettings, error) {
	if u.SubmissionChannelID != nil {
		f.st.SubmissionChannelID = *u.SubmissionChannelID
	}
	if u.KothChannelID != nil {
		f.st.KothChannelID = *u.KothChannelID
	}
	if u.ReviewChannelID != nil {
		f.st.ReviewChannelID = *u.ReviewChannelID
	}
	if u.KothWinnerRoleID != nil {
		f.st.KothWinnerRoleID = *u.KothWinnerRoleID
	}
	if u.SubmissionsEnabled != nil {
		f.st.SubmissionsEnabled = *u.SubmissionsEnabled
	}
	return f.st, nil
}

type fakeInv struct {
	stock map[string]int // userID -> cantidad

	UseFunc func(ctx context.Context, guildID, userID, itemID string) (bool, error)
}

func newFakeInv() *fakeInv { return &fakeInv{stock: map[string]int{}} }

func (f *fakeInv) Count(ctx context.Context, guildID, userID, itemID string) (int, error) {
	return f.stock[userID], nil
}

func (f *fakeInv) Use(ctx context.Context, guildID, userID, itemID string) (bool, error) {
	if f.UseFunc != nil {
		return f.UseFunc(ctx, guildID, userID, itemID)
	}
	if f.stock[userID] <= 0 {
		return false, nil
	}
	f.stock[userID]--
	return true, nil
}

func (f *fakeInv) Grant(ctx context.Context, guildID, userID, itemID string, qty int) error {
	f.stock[userID] += qty
	return nil
}

type fakeAnnouncer struct {
	nextMsgID int

	announced    []string // "channel|content"
	deleted      []string // "channel|message"
	granted      []string // "user|role"
	rolesCleared []string
	dms          []string // "user|content"

	GrantRoleFunc func(ctx context.Context, guildID, userID, roleID string) error
	AnnounceFunc  func(ctx context.Context, channelID, content string) (string, error)
}

func (f *fakeAnnouncer) Announce(ctx context.Context, channelID, content string) (string, error) {
	if f.AnnounceFunc != nil {
		return f.AnnounceFunc(ctx, channelID, content)
	}
	f.nextMsgID++
	f.announced = append(f.announced, channelID+"|"+content)
	return fmt.Sprintf("msg-%d", f.nextMsgID), nil
}

func (f *fakeAnnouncer) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.deleted = append(f.deleted, channelID+"|"+messageID)
	return nil
}

func (f *fakeAnnouncer) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	if f.GrantRoleFunc != nil {
		return f.GrantRoleFunc(ctx, guildID, userID, roleID)
	}
	f.granted = append(f.granted, userID+"|"+roleID)
	return nil
}

func (f *fakeAnnouncer) RemoveRoleFromAll(ctx context.Context, guildID, roleID string) error {
	f.rolesCleared = append(f.rolesCleared, roleID)
	return nil
}

func (f *fakeAnnouncer) DirectMessage(ctx context.Context, userID, content string) error {
	f.dms = append(f.dms, userID+"|"+content)
	return nil
}

func (f *fakeAnnouncer) announcedTo(channelID string) []string {
	var out []string
	for _, a := range f.announced {
		if strings.HasPrefix(a, channelID+"|") {
			out = append(out, strings.TrimPrefix(a, channelID+"|"))
		}
	}
	return out
}

type fakeBroadcaster struct {
	payloads []any
}

func (f *fakeBroadcaster) Broadcast(guildID string, payload any) {
	f.payloads = append(f.payloads, payload)
}

// fixture arma un service completo sobre fakes, listo para los escenarios.
type fixture struct {
	svc      *BattleService
	subs     *fakeSubs
	board    *fakeBoard
	settings *fakeSettings
	inv      *fakeInv
	ann      *fakeAnnouncer
	bcast    *fakeBroadcaster
	sessions *SessionRegistry
}

func newFixture(status string) *fixture {
	f := &fixture{
		subs:     newFakeSubs(),
		board:    newFakeBoard(),
		settings: newFakeSettings(status),
		inv:      newFakeInv(),
		ann:      &fakeAnnouncer{},
		bcast:    &fakeBroadcaster{},
		sessions: NewSessionRegistry(),
	}
	f.svc = NewBattleService(f.subs, f.board, f.settings, f.inv, f.sessions, f.ann, f.bcast)
	return f
}

var errBoom = errors.New("boom")
