package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/game/draw"
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
	"github.com/nantokaworks/chzzk-games/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.RevealDelay = 30 * time.Millisecond
	cfg.SpinDuration = 30 * time.Millisecond
	return cfg
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []game.Snapshot
}

func (r *snapshotRecorder) publish(_ string, snap game.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func newTestManager(t *testing.T) (*Manager, *snapshotRecorder) {
	t.Helper()
	rec := &snapshotRecorder{}
	m := NewManager(fastConfig, rec.publish)
	t.Cleanup(m.Shutdown)
	return m, rec
}

func chatEvent(nickname, message string) types.Event {
	return types.Event{
		Nickname:   nickname,
		UserIDHash: "hash-" + nickname,
		Role:       types.RoleViewer,
		Message:    message,
	}
}

func TestActor_DrawLifecycle(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StartDraw{})
	require.NoError(t, err)

	for _, nick := range []string{"a", "b", "c"} {
		actor.Ingest(chatEvent(nick, "join"))
	}
	require.Eventually(t, func() bool {
		snap, err := actor.Snapshot(ctx)
		return err == nil && len(snap.Draw.Candidates) == 3
	}, 2*time.Second, 10*time.Millisecond, "ingested events should land in arrival order")

	_, err = actor.Do(ctx, game.StopDraw{})
	require.NoError(t, err)

	snap, err := actor.Do(ctx, game.PickDrawWinners{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, draw.StatusPicking, snap.Draw.Status)
	assert.Empty(t, snap.Draw.Winners, "winner must stay hidden during the reveal delay")

	require.Eventually(t, func() bool {
		snap, err := actor.Snapshot(ctx)
		return err == nil && snap.Draw.Status == draw.StatusEnded && len(snap.Draw.Winners) == 2
	}, 2*time.Second, 10*time.Millisecond, "reveal must commit after the delay")
}

func TestActor_CommandsRejectedMidReveal(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StartDraw{})
	require.NoError(t, err)
	actor.Ingest(chatEvent("a", "join"))
	require.Eventually(t, func() bool {
		snap, err := actor.Snapshot(ctx)
		return err == nil && len(snap.Draw.Candidates) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = actor.Do(ctx, game.StopDraw{})
	require.NoError(t, err)
	_, err = actor.Do(ctx, game.PickDrawWinners{Count: 1})
	require.NoError(t, err)

	_, err = actor.Do(ctx, game.PickDrawWinners{Count: 1})
	assert.ErrorIs(t, err, draw.ErrInvalidTransition, "the engine is not re-entrant mid-reveal")
}

func TestActor_RejectedCommandDoesNotKillActor(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StopDraw{})
	require.ErrorIs(t, err, draw.ErrInvalidTransition)

	// actorは処理を続けている
	_, err = actor.Do(ctx, game.StartDraw{})
	require.NoError(t, err)
}

func TestActor_CountdownAutoStops(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StartDraw{Duration: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := actor.Snapshot(ctx)
		return err == nil && snap.Draw.Status == draw.StatusReady
	}, 3*time.Second, 20*time.Millisecond, "countdown expiry must auto-stop recruiting")
}

func TestActor_StopBeforeExpiryCancelsCountdown(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StartDraw{Duration: 1})
	require.NoError(t, err)
	snap, err := actor.Do(ctx, game.StopDraw{})
	require.NoError(t, err)
	require.Equal(t, draw.StatusReady, snap.Draw.Status)

	// 取り消したタイマーが後から発火して二重遷移しないこと
	time.Sleep(1500 * time.Millisecond)
	snap, err = actor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, draw.StatusReady, snap.Draw.Status)
}

func TestActor_DonationVoteFlow(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StartVote{
		Title:      "후원 투표",
		Mode:       vote.ModeDonation,
		Options:    []string{"치킨", "피자"},
		UnitAmount: 1000,
	})
	require.NoError(t, err)

	ev := chatEvent("큰손", "!투표1")
	ev.DonationAmount = 3500
	actor.Ingest(ev)

	require.Eventually(t, func() bool {
		snap, err := actor.Snapshot(ctx)
		return err == nil && snap.Vote.Options[0].Count == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActor_SpinCommitsAfterDuration(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.UpdateRoulette{Items: []roulette.Item{
		{Label: "a", Weight: 1},
		{Label: "b", Weight: 2},
	}})
	require.NoError(t, err)

	snap, err := actor.Do(ctx, game.SpinRoulette{})
	require.NoError(t, err)
	assert.Equal(t, roulette.StatusSpinning, snap.Roulette.Status)
	assert.Greater(t, snap.Roulette.Rotation, 0.0)

	require.Eventually(t, func() bool {
		snap, err := actor.Snapshot(ctx)
		return err == nil && snap.Roulette.Status == roulette.StatusEnded && snap.Roulette.Winner != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_PublishesOnEveryMutation(t *testing.T) {
	m, rec := newTestManager(t)
	actor := m.Get("ch1")
	ctx := context.Background()

	_, err := actor.Do(ctx, game.StartDraw{})
	require.NoError(t, err)
	require.Greater(t, rec.count(), 0, "every mutation must broadcast a snapshot")
}

func TestManager_IngestWithoutSessionIsDropped(t *testing.T) {
	m, _ := newTestManager(t)

	m.Ingest("ghost", chatEvent("a", "hello"))

	_, ok := m.Lookup("ghost")
	assert.False(t, ok, "chat noise must not spawn channel sessions")
}

func TestManager_ChannelsAreIsolated(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a1 := m.Get("ch1")
	a2 := m.Get("ch2")

	_, err := a1.Do(ctx, game.StartDraw{})
	require.NoError(t, err)

	snap, err := a2.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.ModeNone, snap.ActiveMode, "sessions must not share state across channels")
}

func TestManager_ShutdownClosesActors(t *testing.T) {
	m, _ := newTestManager(t)
	actor := m.Get("ch1")

	m.Shutdown()

	_, err := actor.Do(context.Background(), game.StartDraw{})
	assert.ErrorIs(t, err, ErrClosed)
}
