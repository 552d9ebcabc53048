package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

// Guard は「認証済みだがユーザー情報なし」の不整合状態を監視し、
// 一定時間継続した場合に1回だけ強制ログアウトを実行する。
// 猶予時間内に整合状態へ復帰した場合はログアウトをキャンセルする。
type Guard struct {
	delay  time.Duration
	logout func()

	mu      sync.Mutex
	timer   *time.Timer
	tripped bool
}

// NewGuard はGuardを生成する。
// delayは不整合検出からログアウト実行までの猶予時間。
// logoutは強制ログアウト処理で、エピソードにつき最大1回呼ばれる。
func NewGuard(delay time.Duration, logout func()) *Guard {
	return &Guard{delay: delay, logout: logout}
}

// Observe はセッション状態の遷移を受け取り、不整合の監視を行う。
// TrackerのObserverとして登録して使う。
func (g *Guard) Observe(_, next model.SessionState) {
	if next.Ready && next.Authenticated && next.User == nil {
		g.arm()
		return
	}
	g.disarm()
}

// arm は不整合検出時にログアウトタイマーを起動する。
// 既に起動済み、または発火済みの場合は何もしない。
func (g *Guard) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tripped || g.timer != nil {
		return
	}

	slog.Warn("不整合なセッション状態を検出しました。強制ログアウトを予約します",
		slog.Duration("delay", g.delay),
	)
	g.timer = time.AfterFunc(g.delay, g.fire)
}

// disarm は整合状態への復帰時に予約済みのログアウトをキャンセルし、
// エピソードを終了する。以降に再び不整合へ遷移した場合は新しいエピソードとして
// 再度ログアウトを予約できる。
func (g *Guard) disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
		slog.Info("セッション状態が回復したため、強制ログアウトをキャンセルしました")
	}
	g.tripped = false
}

// fire は猶予時間経過後に強制ログアウトを実行する。
func (g *Guard) fire() {
	g.mu.Lock()
	if g.tripped {
		g.mu.Unlock()
		return
	}
	g.tripped = true
	g.timer = nil
	g.mu.Unlock()

	slog.Warn("不整合なセッション状態が継続したため、強制ログアウトを実行します")
	g.logout()
}

// Tripped は強制ログアウトが実行済みかどうかを返す。
func (g *Guard) Tripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}
