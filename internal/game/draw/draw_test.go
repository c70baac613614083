package draw

import (
	"errors"
	"testing"

	"github.com/nantokaworks/chzzk-games/internal/types"
)

func TestStartRecruit_OnlyFromIdleOrEnded(t *testing.T) {
	s := NewState()
	if err := s.StartRecruit("", false, false, 0); err != nil {
		t.Fatalf("StartRecruit from idle failed: %v", err)
	}
	if s.Status != StatusRecruiting {
		t.Fatalf("unexpected status: %v", s.Status)
	}

	if err := s.StartRecruit("", false, false, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition while recruiting, got %v", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.StartRecruit("", false, false, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from ready, got %v", err)
	}
}

func TestAdmit_KeywordPredicate(t *testing.T) {
	s := NewState()
	if err := s.StartRecruit("!참가", false, false, 0); err != nil {
		t.Fatalf("StartRecruit failed: %v", err)
	}

	if s.Admit(chatEvent("alice", "나도 끼워줘", types.RoleViewer)) {
		t.Fatal("message without keyword should be rejected")
	}
	if !s.Admit(chatEvent("alice", "!참가 갑니다", types.RoleViewer)) {
		t.Fatal("message starting with keyword should be admitted")
	}
	if len(s.Candidates) != 1 {
		t.Fatalf("unexpected candidate count: %d", len(s.Candidates))
	}
	if s.Candidates[0].LastMessage != "!참가 갑니다" {
		t.Fatalf("unexpected last message: %q", s.Candidates[0].LastMessage)
	}
}

func TestAdmit_DedupByNickname(t *testing.T) {
	s := recruitingState(t)

	if !s.Admit(chatEvent("alice", "hello", types.RoleViewer)) {
		t.Fatal("first entry should be admitted")
	}
	if s.Admit(chatEvent("alice", "hello again", types.RoleViewer)) {
		t.Fatal("duplicate nickname should be silently dropped")
	}
	// 大文字小文字は区別する
	if !s.Admit(chatEvent("Alice", "different user", types.RoleViewer)) {
		t.Fatal("dedup must be case-sensitive")
	}
	if len(s.Candidates) != 2 {
		t.Fatalf("unexpected candidate count: %d", len(s.Candidates))
	}
}

func TestAdmit_SubscriberOnly(t *testing.T) {
	s := NewState()
	if err := s.StartRecruit("", true, false, 0); err != nil {
		t.Fatalf("StartRecruit failed: %v", err)
	}

	if s.Admit(chatEvent("viewer", "hi", types.RoleViewer)) {
		t.Fatal("viewer should be rejected in subscriber-only mode")
	}
	if s.Admit(chatEvent("mod", "hi", types.RoleModerator)) {
		t.Fatal("moderator should be rejected in subscriber-only mode")
	}
	if !s.Admit(chatEvent("sub", "hi", types.RoleSubscriber)) {
		t.Fatal("subscriber should be admitted")
	}
	if !s.Admit(chatEvent("streamer", "hi", types.RoleOwner)) {
		t.Fatal("owner should be admitted")
	}
}

func TestAdmit_OnlyWhileRecruiting(t *testing.T) {
	s := recruitingState(t)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.Admit(chatEvent("late", "too late", types.RoleViewer)) {
		t.Fatal("entries after stop should be rejected")
	}
}

func TestPick_DrawsDistinctWinnersWithoutReplacement(t *testing.T) {
	stubRandomIndex(t)

	s := recruitingState(t,
		chatEvent("a", "join", types.RoleViewer),
		chatEvent("b", "join", types.RoleViewer),
		chatEvent("c", "join", types.RoleViewer),
	)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := s.Pick(2); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if s.Status != StatusPicking {
		t.Fatalf("unexpected status after pick: %v", s.Status)
	}
	if len(s.Winners) != 0 {
		t.Fatal("winners must stay hidden until the reveal commits")
	}
	if len(s.PendingWinners()) != 2 {
		t.Fatalf("unexpected pending count: %d", len(s.PendingWinners()))
	}

	if err := s.CommitPick(); err != nil {
		t.Fatalf("CommitPick failed: %v", err)
	}
	if s.Status != StatusEnded {
		t.Fatalf("unexpected status after commit: %v", s.Status)
	}
	if len(s.Winners) != 2 {
		t.Fatalf("unexpected winner count: %d", len(s.Winners))
	}
	if s.Winners[0].Nickname == s.Winners[1].Nickname {
		t.Fatal("winners must be distinct")
	}
	if len(s.WinnerHistory) != 2 {
		t.Fatalf("winner history should grow by 2, got %d", len(s.WinnerHistory))
	}
}

func TestPick_CountClampedToPoolSize(t *testing.T) {
	stubRandomIndex(t)

	s := recruitingState(t, generateEvents(3, "join")...)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Pick(10); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if got := len(s.PendingWinners()); got != 3 {
		t.Fatalf("expected min(count, pool) = 3 winners, got %d", got)
	}
}

func TestPick_EmptyPool(t *testing.T) {
	s := recruitingState(t)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Pick(1); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
}

func TestPick_ExcludesPreviousWinners(t *testing.T) {
	stubRandomIndex(t)

	s := NewState()
	if err := s.StartRecruit("", false, true, 0); err != nil {
		t.Fatalf("StartRecruit failed: %v", err)
	}
	s.Admit(chatEvent("a", "join", types.RoleViewer))
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Pick(1); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if err := s.CommitPick(); err != nil {
		t.Fatalf("CommitPick failed: %v", err)
	}

	// aは履歴入り。次のラウンドで再参加しても当選対象外。
	if err := s.StartRecruit("", false, true, 0); err != nil {
		t.Fatalf("second StartRecruit failed: %v", err)
	}
	s.Admit(chatEvent("a", "join", types.RoleViewer))
	s.Admit(chatEvent("b", "join", types.RoleViewer))
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Pick(2); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if err := s.CommitPick(); err != nil {
		t.Fatalf("CommitPick failed: %v", err)
	}

	if len(s.Winners) != 1 || s.Winners[0].Nickname != "b" {
		t.Fatalf("previous winner must be excluded, got %+v", s.Winners)
	}
}

func TestPick_RejectedWhileRecruitingOrRevealing(t *testing.T) {
	stubRandomIndex(t)

	s := recruitingState(t, chatEvent("a", "join", types.RoleViewer))
	if err := s.Pick(1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pick while recruiting should fail, got %v", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Pick(1); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	// リビール中の再pickは不可
	if err := s.Pick(1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pick during reveal should fail, got %v", err)
	}
}

func TestReset_PreservesWinnerHistory(t *testing.T) {
	stubRandomIndex(t)

	s := recruitingState(t, chatEvent("a", "join", types.RoleViewer))
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Pick(1); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if err := s.CommitPick(); err != nil {
		t.Fatalf("CommitPick failed: %v", err)
	}

	s.Reset()
	if s.Status != StatusIdle {
		t.Fatalf("unexpected status after reset: %v", s.Status)
	}
	if len(s.Candidates) != 0 || len(s.Winners) != 0 {
		t.Fatal("reset must clear candidates and winners")
	}
	if len(s.WinnerHistory) != 1 {
		t.Fatal("reset must preserve winner history")
	}

	s.ClearHistory()
	if len(s.WinnerHistory) != 0 {
		t.Fatal("ClearHistory must drop the history")
	}
}

func TestTick_CountdownExpiry(t *testing.T) {
	s := NewState()
	if err := s.StartRecruit("", false, false, 2); err != nil {
		t.Fatalf("StartRecruit failed: %v", err)
	}

	if expired := s.Tick(); expired {
		t.Fatal("countdown should not expire after 1 of 2 seconds")
	}
	if s.TimerRemaining != 1 {
		t.Fatalf("unexpected remaining: %d", s.TimerRemaining)
	}
	if expired := s.Tick(); !expired {
		t.Fatal("countdown should expire after 2 seconds")
	}
}

func TestSampleWithoutReplacement_Uniqueness(t *testing.T) {
	pool := make([]Candidate, 20)
	for i := range pool {
		pool[i] = Candidate{Nickname: string(rune('a' + i))}
	}

	selection, err := sampleWithoutReplacement(pool, 20)
	if err != nil {
		t.Fatalf("sampleWithoutReplacement failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range selection {
		if seen[c.Nickname] {
			t.Fatalf("duplicate winner %q", c.Nickname)
		}
		seen[c.Nickname] = true
	}
	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct winners, got %d", len(seen))
	}
}
