package draw

import (
	"fmt"

	"github.com/nantokaworks/chzzk-games/internal/types"
)

// chatEvent はテスト用イベントを決定論的に生成する。
func chatEvent(nickname, message string, role types.Role) types.Event {
	return types.Event{
		Nickname:   nickname,
		UserIDHash: "hash-" + nickname,
		Role:       role,
		Message:    message,
	}
}

// generateEvents はN人分の相異なる視聴者イベントを生成する。
func generateEvents(n int, message string) []types.Event {
	events := make([]types.Event, n)
	for i := 0; i < n; i++ {
		role := types.RoleViewer
		if i%2 == 0 {
			role = types.RoleSubscriber
		}
		events[i] = chatEvent(fmt.Sprintf("user_%03d", i+1), message, role)
	}
	return events
}

// stubRandomIndex は常に先頭を選ぶ決定論的な乱数に差し替える。
func stubRandomIndex(t interface{ Cleanup(func()) }) {
	original := drawRandomIndex
	drawRandomIndex = func(max int) (int, error) { return 0, nil }
	t.Cleanup(func() { drawRandomIndex = original })
}

func recruitingState(t interface {
	Fatalf(string, ...any)
}, events ...types.Event) *State {
	s := NewState()
	if err := s.StartRecruit("", false, false, 0); err != nil {
		t.Fatalf("StartRecruit failed: %v", err)
	}
	for _, ev := range events {
		s.Admit(ev)
	}
	return s
}
