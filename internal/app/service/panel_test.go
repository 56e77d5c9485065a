package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

func TestPanelActionsPerStatus(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		status string
		want   []string
	}{
		{storage.StatusClosed, []string{ActionStartRegular, ActionStatsRegular, ActionSwitchToKoth}},
		{storage.StatusOpen, []string{ActionPlayRegular, ActionStopRegular, ActionStatsRegular}},
		{storage.StatusKothClosed, []string{ActionStartKoth, ActionStatsKoth, ActionSwitchToRegular}},
		{storage.StatusKothOpen, []string{ActionPlayKoth, ActionStopKoth, ActionStatsKoth}},
		{storage.StatusKothTiebreaker, []string{ActionCancelTiebreaker}},
	}
	for _, tc := range cases {
		f := newFixture(tc.status)
		ps, err := f.svc.PanelState(ctx, "g1")
		require.NoError(t, err, tc.status)
		assert.Equal(t, tc.want, ps.Actions, tc.status)
		assert.Equal(t, tc.status, ps.Status)
	}
}

func TestPanelStateUnknownStatusFallsBackToClosed(t *testing.T) {
	f := newFixture("estado-roto")
	ps, err := f.svc.PanelState(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusClosed, ps.Status)
	assert.Equal(t, panelActions[storage.StatusClosed], ps.Actions)
}

func TestPanelStateCountsQueueByMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusKothOpen)
	_, _ = f.subs.Enqueue(ctx, "g1", "u1", "regular.mp3", storage.TypeRegular)
	_, _ = f.subs.Enqueue(ctx, "g1", "u2", "koth-1.mp3", storage.TypeKoth)
	_, _ = f.subs.Enqueue(ctx, "g1", "u3", "koth-2.mp3", storage.TypeKoth)

	ps, err := f.svc.PanelState(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, ps.QueueCount)

	f.settings.st.SubmissionStatus = storage.StatusOpen
	ps, err = f.svc.PanelState(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, ps.QueueCount)
}

func TestPanelStateTiebreakerUsers(t *testing.T) {
	f := newFixture(storage.StatusKothTiebreaker)
	pair := "uA, uB"
	f.settings.st.KothTiebreakerUsers = &pair

	ps, err := f.svc.PanelState(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"uA", "uB"}, ps.TiebreakerUsers)
}

func TestPanelStateSessionBoardTopFive(t *testing.T) {
	f := newFixture(storage.StatusKothOpen)
	for i, uid := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		f.sessions.AddPoints("g1", uid, 10-i)
	}

	ps, err := f.svc.PanelState(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, ps.SessionBoard, 5)
	assert.Equal(t, "u1", ps.SessionBoard[0].UserID)
}

func TestWidgetSnapshotLiveVsAllTime(t *testing.T) {
	ctx := context.Background()

	// batalla abierta con puntos: board de sesión
	f := newFixture(storage.StatusKothOpen)
	king := "uK"
	f.settings.st.KothKingID = &king
	f.sessions.AddPoints("g1", "uA", 4)
	f.board.top = []storage.LeaderboardRow{{UserID: "viejo", Points: 99}}

	data, err := f.svc.WidgetSnapshot(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "full_update", data.Type)
	assert.Equal(t, "uK", data.Koth.King)
	assert.Equal(t, "Leaderboard (Current Battle)", data.Koth.LeaderboardTitle)
	require.Len(t, data.Koth.Leaderboard, 1)
	assert.Equal(t, "uA", data.Koth.Leaderboard[0].UserID)

	// sin batalla: histórico
	f2 := newFixture(storage.StatusClosed)
	f2.board.top = []storage.LeaderboardRow{{UserID: "viejo", Points: 99}}
	data, err = f2.svc.WidgetSnapshot(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Leaderboard (All-Time)", data.Koth.LeaderboardTitle)
	require.Len(t, data.Koth.Leaderboard, 1)
	assert.Equal(t, "viejo", data.Koth.Leaderboard[0].UserID)
}

func TestMutationsBroadcastSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusKothClosed)

	_, err := f.svc.StartKoth(ctx, "g1")
	require.NoError(t, err)
	assert.NotEmpty(t, f.bcast.payloads)

	last, ok := f.bcast.payloads[len(f.bcast.payloads)-1].(WidgetData)
	require.True(t, ok)
	assert.Equal(t, "full_update", last.Type)
}

func TestWidgetSnapshotToleratesReviewingLookupFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	f.subs.ReviewingUserFunc = func(context.Context, string, string) (string, error) {
		return "", errBoom
	}

	// el snapshot sale igual, con el campo vacío
	data, err := f.svc.WidgetSnapshot(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, data.Regular.Reviewing)
}
