package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

func audio(url string) []Attachment {
	return []Attachment{{URL: url, ContentType: "audio/mpeg"}}
}

func member(id string) Author {
	return Author{ID: id, Username: "name-" + id, AvatarURL: "https://cdn.test/" + id + ".png"}
}

func TestIntakeIgnoresNonAudio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)

	out, err := f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"),
		[]Attachment{{URL: "foto.png", ContentType: "image/png"}})
	require.NoError(t, err)
	assert.Nil(t, out)

	n, _ := f.subs.QueueCount(ctx, "g1", storage.TypeRegular)
	assert.Zero(t, n)
}

func TestIntakeIgnoresWrongChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)

	out, err := f.svc.HandleMessage(ctx, "g1", "ch-random", member("u1"), audio("track.mp3"))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestIntakeDisabledGuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	f.settings.st.SubmissionsEnabled = false

	out, err := f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"), audio("track.mp3"))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestIntakeRegularEnqueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)

	out, err := f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"), audio("track.mp3"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "✅", out.React)
	assert.True(t, out.PanelDirty)

	n, _ := f.subs.QueueCount(ctx, "g1", storage.TypeRegular)
	assert.Equal(t, 1, n)
}

func TestIntakeFirstTimerGetsPriority(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)

	out, err := f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"), audio("primer-track.mp3"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.NotEmpty(t, out.DM)
	assert.Len(t, f.subs.prioritized, 1)

	// el segundo track del mismo user ya no se prioriza ni avisa
	out, err = f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"), audio("segundo-track.mp3"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Empty(t, out.DM)
	assert.Len(t, f.subs.prioritized, 1)
}

func TestIntakeKothCountsSessionSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusKothOpen)

	out, err := f.svc.HandleMessage(ctx, "g1", "ch-koth", member("u1"), audio("track.mp3"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "✅", out.React)

	board := f.sessions.Sorted("g1")
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Submissions)

	n, _ := f.subs.QueueCount(ctx, "g1", storage.TypeKoth)
	assert.Equal(t, 1, n)
}

func TestIntakeTiebreakerOnlyDuelists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusKothTiebreaker)
	pair := "uA,uB"
	f.settings.st.KothTiebreakerUsers = &pair

	// un tercero no participa
	out, err := f.svc.HandleMessage(ctx, "g1", "ch-koth", member("uC"), audio("colado.mp3"))
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = f.svc.HandleMessage(ctx, "g1", "ch-koth", member("uA"), audio("final-a.mp3"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "⚔️", out.React)
	assert.Nil(t, out.FinalBattle)

	// la segunda entrega de uA se ignora en silencio
	out, err = f.svc.HandleMessage(ctx, "g1", "ch-koth", member("uA"), audio("final-a-v2.mp3"))
	require.NoError(t, err)
	assert.Nil(t, out)

	// con la entrega de uB queda armado el duelo final
	out, err = f.svc.HandleMessage(ctx, "g1", "ch-koth", member("uB"), audio("final-b.mp3"))
	require.NoError(t, err)
	require.NotNil(t, out)
	require.NotNil(t, out.FinalBattle)
	assert.True(t, out.FinalBattle.Tiebreaker)
	assert.Equal(t, "uA", out.FinalBattle.King.UserID)
	assert.Equal(t, "uB", out.FinalBattle.Challenger.UserID)

	// y quedó como ronda en curso
	b := f.sessions.CurrentBattle("g1")
	require.NotNil(t, b)
	assert.True(t, b.Tiebreaker)
}

func TestIntakeBroadcastsNewSubmissionEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)

	_, err := f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"), audio("track.mp3"))
	require.NoError(t, err)

	var ev *WidgetNewSubmission
	for _, p := range f.bcast.payloads {
		if e, ok := p.(WidgetNewSubmission); ok {
			ev = &e
			break
		}
	}
	require.NotNil(t, ev, "faltó el evento new_submission")
	assert.Equal(t, "new_submission", ev.Type)
	assert.Equal(t, "name-u1", ev.Username)
	assert.Equal(t, "https://cdn.test/u1.png", ev.AvatarURL)

	// y detrás va el snapshot completo
	last, ok := f.bcast.payloads[len(f.bcast.payloads)-1].(WidgetData)
	require.True(t, ok)
	assert.Equal(t, "full_update", last.Type)
}
