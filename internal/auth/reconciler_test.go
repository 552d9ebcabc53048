package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/cryptofund/cryptofund/internal/model"
)

type mockSyncer struct {
	syncFn func(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error)
	calls  int
}

func (m *mockSyncer) Sync(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error) {
	m.calls++
	if m.syncFn != nil {
		return m.syncFn(ctx, identifier, providerUserID, displayName, avatarURL)
	}
	return &model.Profile{ID: "profile-1"}, nil
}

var _ ProfileSyncer = (*mockSyncer)(nil)

func walletUser(id, address string) *model.IdentityUser {
	return &model.IdentityUser{
		ID:             id,
		LinkedAccounts: []model.LinkedAccount{model.WalletAccount{Address: address}},
	}
}

// 認証完了遷移で1回だけ同期が実行されること。
func TestReconciler_SyncsOnQualifyingTransition(t *testing.T) {
	syncer := &mockSyncer{}
	r := NewReconciler(syncer)

	prev := model.SessionState{}
	next := model.SessionState{Ready: true, Authenticated: true, User: walletUser("user-1", "0xABCDEF1234")}

	profile, err := r.Reconcile(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if profile == nil {
		t.Fatal("expected non-nil profile")
	}
	if syncer.calls != 1 {
		t.Errorf("sync calls = %d, want 1", syncer.calls)
	}
}

// 同一ユーザーの再通知では同期が実行されないこと。
func TestReconciler_SkipsRepeatedStateForSameUser(t *testing.T) {
	syncer := &mockSyncer{}
	r := NewReconciler(syncer)

	state := model.SessionState{Ready: true, Authenticated: true, User: walletUser("user-1", "0xABCDEF1234")}

	profile, err := r.Reconcile(context.Background(), state, state)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if profile != nil {
		t.Error("expected nil profile for non-qualifying transition")
	}
	if syncer.calls != 0 {
		t.Errorf("sync calls = %d, want 0", syncer.calls)
	}
}

// ユーザーが切り替わった場合は再度同期が実行されること。
func TestReconciler_SyncsOnUserChange(t *testing.T) {
	syncer := &mockSyncer{}
	r := NewReconciler(syncer)

	prev := model.SessionState{Ready: true, Authenticated: true, User: walletUser("user-1", "0xAAA111")}
	next := model.SessionState{Ready: true, Authenticated: true, User: walletUser("user-2", "0xBBB222")}

	if _, err := r.Reconcile(context.Background(), prev, next); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if syncer.calls != 1 {
		t.Errorf("sync calls = %d, want 1", syncer.calls)
	}
}

// 未認証・未初期化・ユーザーなしの遷移では同期しないこと。
func TestReconciler_SkipsNonQualifyingStates(t *testing.T) {
	tests := []struct {
		name string
		next model.SessionState
	}{
		{"not ready", model.SessionState{Ready: false, Authenticated: true, User: walletUser("u", "0x1")}},
		{"not authenticated", model.SessionState{Ready: true, Authenticated: false, User: walletUser("u", "0x1")}},
		{"no user", model.SessionState{Ready: true, Authenticated: true, User: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &mockSyncer{}
			r := NewReconciler(syncer)

			if _, err := r.Reconcile(context.Background(), model.SessionState{}, tt.next); err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if syncer.calls != 0 {
				t.Errorf("sync calls = %d, want 0", syncer.calls)
			}
		})
	}
}

// ウォレットとメールの両方がある場合、識別子はウォレットアドレスが優先されること。
// 表示名はメールアドレスが優先されること。
func TestReconciler_PrefersWalletIdentifier(t *testing.T) {
	var gotIdentifier, gotDisplayName, gotAvatar string
	syncer := &mockSyncer{
		syncFn: func(_ context.Context, identifier, _, displayName, avatarURL string) (*model.Profile, error) {
			gotIdentifier = identifier
			gotDisplayName = displayName
			gotAvatar = avatarURL
			return &model.Profile{ID: "profile-1"}, nil
		},
	}
	r := NewReconciler(syncer)

	user := &model.IdentityUser{
		ID: "user-1",
		LinkedAccounts: []model.LinkedAccount{
			model.EmailAccount{Email: "user@example.com"},
			model.WalletAccount{Address: "0xABCDEF123456"},
		},
	}
	next := model.SessionState{Ready: true, Authenticated: true, User: user}

	if _, err := r.Reconcile(context.Background(), model.SessionState{}, next); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if gotIdentifier != "0xABCDEF123456" {
		t.Errorf("identifier = %q, want wallet address", gotIdentifier)
	}
	if gotDisplayName != "user@example.com" {
		t.Errorf("displayName = %q, want email", gotDisplayName)
	}
	if gotAvatar != "" {
		t.Errorf("avatarURL = %q, want empty", gotAvatar)
	}
}

// ウォレットのみの場合、表示名はアドレスの先頭6文字になること。
func TestReconciler_WalletOnlyDisplayNameIsAddressPrefix(t *testing.T) {
	var gotDisplayName string
	syncer := &mockSyncer{
		syncFn: func(_ context.Context, _, _, displayName, _ string) (*model.Profile, error) {
			gotDisplayName = displayName
			return &model.Profile{ID: "profile-1"}, nil
		},
	}
	r := NewReconciler(syncer)

	next := model.SessionState{Ready: true, Authenticated: true, User: walletUser("user-1", "0xABCDEF123456")}
	if _, err := r.Reconcile(context.Background(), model.SessionState{}, next); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if gotDisplayName != "0xABCD" {
		t.Errorf("displayName = %q, want %q", gotDisplayName, "0xABCD")
	}
}

// メールのみの場合、識別子と表示名の両方がメールアドレスになること。
func TestReconciler_EmailOnlyUsesEmailAsIdentifier(t *testing.T) {
	var gotIdentifier, gotDisplayName string
	syncer := &mockSyncer{
		syncFn: func(_ context.Context, identifier, _, displayName, _ string) (*model.Profile, error) {
			gotIdentifier = identifier
			gotDisplayName = displayName
			return &model.Profile{ID: "profile-1"}, nil
		},
	}
	r := NewReconciler(syncer)

	user := &model.IdentityUser{
		ID:             "user-1",
		LinkedAccounts: []model.LinkedAccount{model.EmailAccount{Email: "user@example.com"}},
	}
	next := model.SessionState{Ready: true, Authenticated: true, User: user}

	if _, err := r.Reconcile(context.Background(), model.SessionState{}, next); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if gotIdentifier != "user@example.com" {
		t.Errorf("identifier = %q, want email", gotIdentifier)
	}
	if gotDisplayName != "user@example.com" {
		t.Errorf("displayName = %q, want email", gotDisplayName)
	}
}

// リンクアカウントに識別子がない場合は同期をスキップすること。
func TestReconciler_SkipsUserWithoutIdentifier(t *testing.T) {
	syncer := &mockSyncer{}
	r := NewReconciler(syncer)

	user := &model.IdentityUser{ID: "user-1"}
	next := model.SessionState{Ready: true, Authenticated: true, User: user}

	profile, err := r.Reconcile(context.Background(), model.SessionState{}, next)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if profile != nil {
		t.Error("expected nil profile")
	}
	if syncer.calls != 0 {
		t.Errorf("sync calls = %d, want 0", syncer.calls)
	}
}

// 同期失敗はエラーとして返され、リトライされないこと。
func TestReconciler_SyncFailureReturnsErrorWithoutRetry(t *testing.T) {
	syncer := &mockSyncer{
		syncFn: func(_ context.Context, _, _, _, _ string) (*model.Profile, error) {
			return nil, errors.New("store unreachable")
		},
	}
	r := NewReconciler(syncer)

	next := model.SessionState{Ready: true, Authenticated: true, User: walletUser("user-1", "0xABCDEF")}
	_, err := r.Reconcile(context.Background(), model.SessionState{}, next)
	if err == nil {
		t.Fatal("expected error")
	}
	if syncer.calls != 1 {
		t.Errorf("sync calls = %d, want 1", syncer.calls)
	}
}
