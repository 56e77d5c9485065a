package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

func TestRegularSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusClosed)

	msg, err := f.svc.StartRegular(ctx, "g1")
	require.NoError(t, err)
	assert.Contains(t, msg, "abiertas")
	assert.Equal(t, storage.StatusOpen, f.settings.st.SubmissionStatus)

	// entra un track y se reviewa
	_, err = f.svc.HandleMessage(ctx, "g1", "ch-subs", member("u1"), audio("track.mp3"))
	require.NoError(t, err)
	item, _, err := f.svc.PlayRegular(ctx, "g1", "mod")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "u1", item.UserID)

	_, err = f.svc.MarkReviewed(ctx, "g1", "mod", item.SubmissionID)
	require.NoError(t, err)

	msg, err = f.svc.StopRegular(ctx, "g1")
	require.NoError(t, err)
	assert.Contains(t, msg, "**1**")
	assert.Equal(t, storage.StatusClosed, f.settings.st.SubmissionStatus)
}

func TestStopRegularDropsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	_, _ = f.subs.Enqueue(ctx, "g1", "u1", "pendiente.mp3", storage.TypeRegular)

	_, err := f.svc.StopRegular(ctx, "g1")
	require.NoError(t, err)

	n, _ := f.subs.QueueCount(ctx, "g1", storage.TypeRegular)
	assert.Zero(t, n)
}

func TestPlayRegularServesPrioritizedBeforeQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	_, _ = f.subs.Enqueue(ctx, "g1", "u1", "primero.mp3", storage.TypeRegular)
	_, _ = f.subs.Enqueue(ctx, "g1", "u2", "segundo.mp3", storage.TypeRegular)
	id3, _ := f.subs.Enqueue(ctx, "g1", "u3", "tercero.mp3", storage.TypeRegular)

	require.NoError(t, f.subs.Prioritize(ctx, id3))

	// el priorizado salta la cola aunque llegó último
	item, _, err := f.svc.PlayRegular(ctx, "g1", "mod")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "u3", item.UserID)

	// y después sigue el orden de llegada
	item, _, err = f.svc.PlayRegular(ctx, "g1", "mod")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "u1", item.UserID)
}

func TestPrioritizeTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	_, _ = f.subs.Enqueue(ctx, "g1", "u1", "primero.mp3", storage.TypeRegular)
	id2, _ := f.subs.Enqueue(ctx, "g1", "u2", "segundo.mp3", storage.TypeRegular)

	require.NoError(t, f.subs.Prioritize(ctx, id2))
	require.NoError(t, f.subs.Prioritize(ctx, id2))

	item, _, err := f.svc.PlayRegular(ctx, "g1", "mod")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "u2", item.UserID)

	// priorizar dos veces no duplica el lugar en la cola
	item, _, err = f.svc.PlayRegular(ctx, "g1", "mod")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "u1", item.UserID)

	_, msg, err := f.svc.PlayRegular(ctx, "g1", "mod")
	require.NoError(t, err)
	assert.Contains(t, msg, "vacía")
}

func TestPlayRegularEmptyQueue(t *testing.T) {
	f := newFixture(storage.StatusOpen)
	item, msg, err := f.svc.PlayRegular(context.Background(), "g1", "mod")
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Contains(t, msg, "vacía")
}

func TestModeSwitchGuards(t *testing.T) {
	ctx := context.Background()

	f := newFixture(storage.StatusOpen)
	msg, err := f.svc.SwitchToKoth(ctx, "g1")
	require.NoError(t, err)
	assert.Contains(t, msg, "Cerrá")
	assert.Equal(t, storage.StatusOpen, f.settings.st.SubmissionStatus)

	f = newFixture(storage.StatusClosed)
	_, err = f.svc.SwitchToKoth(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusKothClosed, f.settings.st.SubmissionStatus)

	_, err = f.svc.SwitchToRegular(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusClosed, f.settings.st.SubmissionStatus)
}

func TestUsePassHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	f.inv.stock["u1"] = 1
	subID, _ := f.subs.Enqueue(ctx, "g1", "u1", "track.mp3", storage.TypeRegular)

	msg, err := f.svc.UsePass(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Contains(t, msg, "frente de la cola")
	assert.Equal(t, []int64{subID}, f.subs.prioritized)
	assert.Zero(t, f.inv.stock["u1"])
}

func TestUsePassWithoutStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	_, _ = f.subs.Enqueue(ctx, "g1", "u1", "track.mp3", storage.TypeRegular)

	msg, err := f.svc.UsePass(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Contains(t, msg, "ningún Priority Pass")
	assert.Empty(t, f.subs.prioritized)
}

func TestGrantPassValidatesQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)

	msg, err := f.svc.GrantPass(ctx, "g1", "u1", 2)
	require.NoError(t, err)
	assert.Contains(t, msg, "**2**")
	assert.Equal(t, 2, f.inv.stock["u1"])

	_, err = f.svc.GrantPass(ctx, "g1", "u1", 0)
	assert.Error(t, err)
}

func TestUsePassWithoutPendingTrack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(storage.StatusOpen)
	f.inv.stock["u1"] = 1

	msg, err := f.svc.UsePass(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Contains(t, msg, "pendiente")
	// el pass no se consume si no había track
	assert.Equal(t, 1, f.inv.stock["u1"])
}
