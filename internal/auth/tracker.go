// Package auth はセッション状態の追跡、プロファイル照合、不整合状態の是正を提供する。
package auth

import (
	"sync"

	"github.com/cryptofund/cryptofund/internal/model"
)

// Observer はセッション状態の遷移通知を受け取る関数。
// prevは遷移前、nextは遷移後の状態。
type Observer func(prev, next model.SessionState)

// Tracker は1つのログインエピソードのセッション状態を保持し、
// 遷移を購読者に通知する。状態の更新と通知は到着順に直列化される。
type Tracker struct {
	mu        sync.Mutex
	state     model.SessionState
	observers []Observer
}

// NewTracker は未初期化状態（Ready=false）のTrackerを生成する。
func NewTracker() *Tracker {
	return &Tracker{}
}

// Subscribe は状態遷移の購読者を登録する。
// 登録後の遷移のみ通知される。
func (t *Tracker) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// Set は状態を更新し、全購読者に遷移を通知する。
// 通知はSetを呼んだgoroutine上で同期的に行われる。
func (t *Tracker) Set(next model.SessionState) {
	t.mu.Lock()
	prev := t.state
	t.state = next
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, o := range observers {
		o(prev, next)
	}
}

// Current は現在の状態を返す。
func (t *Tracker) Current() model.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
