package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/env"
	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/localdb"
	"github.com/nantokaworks/chzzk-games/internal/session"
	"github.com/nantokaworks/chzzk-games/internal/settings"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"github.com/nantokaworks/chzzk-games/internal/shared/paths"
	"github.com/nantokaworks/chzzk-games/internal/types"
	"github.com/nantokaworks/chzzk-games/internal/webserver"
	"go.uber.org/zap"
)

// overlay開発用のサーバー。本物のチャット接続なしで、defaultチャンネルへ
// 合成チャット/ドネーションを流し続ける。

var testNicknames = []string{
	"보라도리", "치즈냥", "달려라하니", "민트초코", "어둠의시청자",
	"roach88", "nantoka", "golang_fan", "lurker42", "큰손후원자",
}

var testMessages = []string{
	"참가합니다!", "!참가", "ㅋㅋㅋㅋ", "!투표1", "!투표 2", "!투표3",
	"안녕하세요", "오늘 방송 재밌네요", "!투표 1",
}

func main() {
	logger.Init(true)
	defer logger.Sync()

	logger.Info("Starting test server with synthetic chat traffic")

	env.LoadEnv()

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}
	if _, err := localdb.SetupDB(paths.GetDBPath()); err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}
	defer localdb.CloseDB()

	settingsManager := settings.NewSettingsManager(localdb.GetDB())
	if err := settingsManager.Initialize(); err != nil {
		logger.Warn("Failed to seed default settings", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := session.NewManager(
		func() game.Config { return settingsManager.GameConfig() },
		webserver.BroadcastSnapshot,
	)

	go generateEvents(ctx, manager)

	go func() {
		if err := webserver.StartWebServer(env.Value.ServerPort, manager); err != nil {
			logger.Fatal("Failed to start web server", zap.Error(err))
		}
	}()

	fmt.Printf("Test server started on port %d\n", env.Value.ServerPort)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	manager.Shutdown()
}

func generateEvents(ctx context.Context, manager *session.Manager) {
	// Create the channel up front so injected events are not dropped.
	actor := manager.Get("default")

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(500+rand.Intn(1500)) * time.Millisecond):
		}

		ev := types.Event{
			Nickname:   testNicknames[rand.Intn(len(testNicknames))],
			UserIDHash: fmt.Sprintf("hash-%02d", rand.Intn(len(testNicknames))),
			Role:       randomRole(),
			Message:    testMessages[rand.Intn(len(testMessages))],
		}

		// 1割くらいはドネーションにする
		if rand.Intn(10) == 0 {
			ev.DonationAmount = (1 + rand.Intn(10)) * 1000
		}

		actor.Ingest(ev)
	}
}

func randomRole() types.Role {
	switch rand.Intn(5) {
	case 0:
		return types.RoleSubscriber
	case 1:
		return types.RoleModerator
	default:
		return types.RoleViewer
	}
}
