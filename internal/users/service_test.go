package users

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

type recordingAuditor struct{ actions []string }

func (r *recordingAuditor) Record(_ context.Context, _, action, _ string) {
	r.actions = append(r.actions, action)
}

func newTestService(t *testing.T, registerEnabled bool) (*Service, *store.Stores, *recordingAuditor) {
	t.Helper()
	stores := store.NewMemory()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	auditor := &recordingAuditor{}
	svc := NewService(stores, auth.NewKVSessions(stores.Sessions, 0), auditor, Options{
		AdminUsers:      []string{"boss@example.com"},
		RegisterEnabled: registerEnabled,
		Logger:          logrus.NewEntry(logger),
	})
	return svc, stores, auditor
}

var admin = auth.Principal{UserID: "admin", Username: "root", Admin: true}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, CreateRequest{Username: "alice", Email: "Alice@Example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" || user.Email != "alice@example.com" || user.Admin {
		t.Errorf("unexpected registration result %+v", user)
	}
	if user.PasswordHash == "hunter22" || user.ProfilePicture != model.DefaultAvatar("alice") {
		t.Errorf("unexpected stored credentials %+v", user)
	}

	if _, _, err := svc.Register(ctx, CreateRequest{Username: "a2", Email: "ALICE@example.com", Password: "x"}); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("Expected duplicate email to conflict, got %v", err)
	}

	got, token2, err := svc.Login(ctx, "ALICE@EXAMPLE.COM", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got.ID != user.ID || token2 == token {
		t.Errorf("Expected a new session for the same user")
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}

	authed, err := svc.Authenticate(ctx, token2)
	if err != nil || authed.ID != user.ID {
		t.Fatalf("Authenticate = %v, %v", authed, err)
	}
	if err := svc.Logout(ctx, token2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, token2); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected logged out session to fail, got %v", err)
	}
}

func TestRegister_Disabled(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	_, _, err := svc.Register(context.Background(), CreateRequest{Username: "a", Email: "a@example.com", Password: "x"})
	if !errors.Is(err, ErrRegistrationDisabled) {
		t.Errorf("Expected ErrRegistrationDisabled, got %v", err)
	}
}

func TestLogin_AdminRecomputedAndBanned(t *testing.T) {
	svc, stores, auditor := newTestService(t, false)
	ctx := context.Background()

	boss, err := svc.Create(ctx, admin, CreateRequest{Username: "boss", Email: "boss@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	// a stale flag in storage is ignored
	boss.Admin = false
	stores.Users.Save(ctx, boss)

	got, _, err := svc.Login(ctx, "boss@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Admin {
		t.Error("Expected admin recomputed from allowlist")
	}

	if _, err := svc.SetBanned(ctx, admin, boss.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login(ctx, "boss@example.com", "pw"); !errors.Is(err, ErrUserBanned) {
		t.Errorf("Expected ErrUserBanned, got %v", err)
	}
	if _, err := svc.SetBanned(ctx, admin, boss.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login(ctx, "boss@example.com", "pw"); err != nil {
		t.Errorf("Expected unbanned login to succeed, got %v", err)
	}

	want := []string{model.AuditCreateUser, model.AuditBanUser, model.AuditUnbanUser}
	if len(auditor.actions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, auditor.actions)
	}
	for i := range want {
		if auditor.actions[i] != want[i] {
			t.Errorf("audit[%d] = %s, want %s", i, auditor.actions[i], want[i])
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	ctx := context.Background()
	tests := []CreateRequest{
		{Email: "a@example.com", Password: "x"},
		{Username: "a", Password: "x"},
		{Username: "a", Email: "a@example.com"},
		{Username: "a", Email: "not-an-email", Password: "x"},
	}
	for _, req := range tests {
		if _, err := svc.Create(ctx, admin, req); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Create(%+v): expected ErrValidation, got %v", req, err)
		}
	}
}

func TestClientKeys(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	ctx := context.Background()
	user, err := svc.Create(ctx, admin, CreateRequest{Username: "carol", Email: "carol@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	k, err := svc.CreateClientKey(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(k.Key) != 48 {
		t.Errorf("Expected 48 char key, got %d", len(k.Key))
	}

	owner, err := svc.ResolveClientKey(ctx, k.Key)
	if err != nil || owner.ID != user.ID {
		t.Fatalf("ResolveClientKey = %v, %v", owner, err)
	}
	if _, err := svc.ResolveClientKey(ctx, "nope"); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}

	keys, _ := svc.ListClientKeys(ctx, user.ID)
	if len(keys) != 1 {
		t.Errorf("Expected 1 key, got %d", len(keys))
	}
	if err := svc.DeleteClientKey(ctx, user.ID, k.Key); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteClientKey(ctx, user.ID, k.Key); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ResolveClientKey(ctx, k.Key); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected revoked key to fail, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	ctx := context.Background()
	user, token, err := svc.Register(ctx, CreateRequest{Username: "dave", Email: "dave@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteAccount(ctx, user.ID, token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected session gone, got %v", err)
	}
	if _, err := svc.Get(ctx, user.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected user gone, got %v", err)
	}
}
