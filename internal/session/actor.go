package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"github.com/nantokaworks/chzzk-games/internal/types"
	"go.uber.org/zap"
)

// ErrClosed は停止済みactorへの操作で返る。
var ErrClosed = errors.New("channel session closed")

// PublishFunc はスナップショットをディスプレイ面へ配る出口。
// ブロックしてはならない（actorループから直接呼ばれる）。
type PublishFunc func(snap game.Snapshot)

type commandResult struct {
	snap game.Snapshot
	err  error
}

// actorループへの受信メッセージ。コマンドもイベントもタイマー発火も
// 全て同じ受信箱を通るので、1チャンネル内の適用順は到着順そのもの。
type actorMsg interface{ isActorMsg() }

type commandMsg struct {
	cmd   game.Command
	reply chan commandResult
}

type eventMsg struct {
	ev types.Event
}

type tickMsg struct {
	gen uint64
}

type revealMsg struct {
	gen  uint64
	kind game.RevealKind
}

type snapshotMsg struct {
	reply chan game.Snapshot
}

func (commandMsg) isActorMsg()  {}
func (eventMsg) isActorMsg()    {}
func (tickMsg) isActorMsg()     {}
func (revealMsg) isActorMsg()   {}
func (snapshotMsg) isActorMsg() {}

// Actor は1チャンネルのゲームセッションを単一goroutineで直列処理する。
// dedupも票集計もread-modify-writeなので、並列化はここでは正しくない。
type Actor struct {
	channelID string
	sess      *game.Session
	inbox     chan actorMsg
	publish   PublishFunc

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	lastActive atomic.Int64

	// Timer bookkeeping, only touched from the run loop. A fired
	// timer whose generation no longer matches is stale and ignored;
	// this is what makes stop/end before expiry race-free.
	countdownGen   uint64
	countdownTimer *time.Timer
	revealGen      uint64
	revealTimer    *time.Timer
}

func newActor(channelID string, cfg game.Config, publish PublishFunc) *Actor {
	a := &Actor{
		channelID: channelID,
		sess:      game.NewSession(channelID, cfg),
		inbox:     make(chan actorMsg, 256),
		publish:   publish,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	a.touch()
	go a.run()
	return a
}

// ChannelID returns the channel this actor owns.
func (a *Actor) ChannelID() string {
	return a.channelID
}

// Do applies one control command and returns the resulting snapshot.
func (a *Actor) Do(ctx context.Context, cmd game.Command) (game.Snapshot, error) {
	reply := make(chan commandResult, 1)
	select {
	case a.inbox <- commandMsg{cmd: cmd, reply: reply}:
	case <-a.quit:
		return game.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.snap, res.err
	case <-a.quit:
		return game.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}
}

// Ingest queues one chat/donation event. Fire-and-forget: when the
// queue is full the event is dropped, never blocking the caller.
func (a *Actor) Ingest(ev types.Event) {
	select {
	case a.inbox <- eventMsg{ev: ev}:
	case <-a.quit:
	default:
		logger.Warn("Channel event queue full, dropping event",
			zap.String("channel_id", a.channelID),
			zap.String("nickname", ev.Nickname))
	}
}

// Snapshot returns the current state without mutating anything.
func (a *Actor) Snapshot(ctx context.Context) (game.Snapshot, error) {
	reply := make(chan game.Snapshot, 1)
	select {
	case a.inbox <- snapshotMsg{reply: reply}:
	case <-a.quit:
		return game.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-a.quit:
		return game.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}
}

// LastActive は最後にコマンド/イベントを受けた時刻。
func (a *Actor) LastActive() time.Time {
	return time.Unix(0, a.lastActive.Load())
}

// Close stops the actor. Pending commands receive ErrClosed.
func (a *Actor) Close() {
	a.closeOnce.Do(func() { close(a.quit) })
	<-a.done
}

func (a *Actor) touch() {
	a.lastActive.Store(time.Now().UnixNano())
}

func (a *Actor) run() {
	defer close(a.done)
	defer a.stopTimers()

	for {
		select {
		case <-a.quit:
			return
		case msg := <-a.inbox:
			switch m := msg.(type) {
			case commandMsg:
				a.touch()
				a.handleCommand(m)
			case eventMsg:
				a.touch()
				if a.sess.HandleEvent(m.ev) {
					a.publish(a.sess.Snapshot())
				}
			case tickMsg:
				a.handleTick(m)
			case revealMsg:
				a.handleReveal(m)
			case snapshotMsg:
				m.reply <- a.sess.Snapshot()
			}
		}
	}
}

func (a *Actor) handleCommand(m commandMsg) {
	effect, err := a.sess.Apply(m.cmd)
	if err != nil {
		// Rejected commands leave state untouched and are reported
		// back to the control surface only; the actor keeps going.
		m.reply <- commandResult{err: err}
		return
	}

	if effect.CancelReveal {
		a.cancelReveal()
	}
	if effect.StopCountdown {
		a.stopCountdown()
	}
	if effect.StartCountdown {
		a.startCountdown()
	}
	if effect.ScheduleReveal != "" {
		a.scheduleReveal(effect.ScheduleReveal)
	}

	snap := a.sess.Snapshot()
	m.reply <- commandResult{snap: snap}
	a.publish(snap)
}

func (a *Actor) handleTick(m tickMsg) {
	if m.gen != a.countdownGen {
		return
	}

	changed, expired := a.sess.TickCountdown()
	if expired {
		a.countdownGen++
	} else {
		a.armTick()
	}
	if changed {
		a.publish(a.sess.Snapshot())
	}
}

func (a *Actor) handleReveal(m revealMsg) {
	if m.gen != a.revealGen {
		return
	}

	if err := a.sess.CommitReveal(m.kind); err != nil {
		logger.Warn("Reveal commit skipped",
			zap.String("channel_id", a.channelID),
			zap.String("kind", string(m.kind)),
			zap.Error(err))
		return
	}
	a.publish(a.sess.Snapshot())
}

func (a *Actor) startCountdown() {
	a.stopCountdown()
	a.armTick()
}

func (a *Actor) armTick() {
	gen := a.countdownGen
	a.countdownTimer = time.AfterFunc(time.Second, func() {
		a.enqueue(tickMsg{gen: gen})
	})
}

func (a *Actor) stopCountdown() {
	a.countdownGen++
	if a.countdownTimer != nil {
		a.countdownTimer.Stop()
		a.countdownTimer = nil
	}
}

func (a *Actor) scheduleReveal(kind game.RevealKind) {
	a.cancelReveal()

	delay := a.sess.Config().RevealDelay
	if kind == game.RevealSpin {
		delay = a.sess.Config().SpinDuration
	}

	gen := a.revealGen
	a.revealTimer = time.AfterFunc(delay, func() {
		a.enqueue(revealMsg{gen: gen, kind: kind})
	})
}

func (a *Actor) cancelReveal() {
	a.revealGen++
	if a.revealTimer != nil {
		a.revealTimer.Stop()
		a.revealTimer = nil
	}
}

func (a *Actor) stopTimers() {
	if a.countdownTimer != nil {
		a.countdownTimer.Stop()
	}
	if a.revealTimer != nil {
		a.revealTimer.Stop()
	}
}

// enqueue delivers timer callbacks into the serialized queue. Unlike
// Ingest this blocks: a lost tick would silently stall a countdown.
func (a *Actor) enqueue(msg actorMsg) {
	select {
	case a.inbox <- msg:
	case <-a.quit:
	}
}
