package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/agentclient"
	"ploxora/internal/allocation"
	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

type fakeAgent struct {
	mu        sync.Mutex
	calls     int32
	deployErr error
	deleteErr error
	vncPort   string
	deployed  []agentclient.DeployRequest
	deleted   []string
	actions   []string
	ssh       string
	seq       int
	onAction  func()
}

func (f *fakeAgent) Deploy(_ context.Context, _ *model.Node, req agentclient.DeployRequest) (*agentclient.DeployResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.deployErr != nil {
		return nil, f.deployErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.deployed = append(f.deployed, req)
	return &agentclient.DeployResponse{
		ContainerID: fmt.Sprintf("container-%d", f.seq),
		Port:        json.Number(f.vncPort),
	}, nil
}

func (f *fakeAgent) DeleteContainer(_ context.Context, _ *model.Node, cid string) error {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.deleted = append(f.deleted, cid)
	f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeAgent) Action(_ context.Context, _ *model.Node, action, cid string) error {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.actions = append(f.actions, action+":"+cid)
	hook := f.onAction
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeAgent) Stats(context.Context, *model.Node, string) (json.RawMessage, error) {
	atomic.AddInt32(&f.calls, 1)
	return json.RawMessage(`{"cpu":"0%"}`), nil
}

func (f *fakeAgent) ReSSH(context.Context, *model.Node, string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.ssh, nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAuditor) Record(_ context.Context, _, action, _ string) {
	r.mu.Lock()
	r.actions = append(r.actions, action)
	r.mu.Unlock()
}

func (r *recordingAuditor) Notify(context.Context, string, string) {}

type fixture struct {
	svc     *Service
	stores  *store.Stores
	agent   *fakeAgent
	auditor *recordingAuditor
	owner   *model.User
	admin   auth.Principal
}

func newFixture(t *testing.T, allocations ...model.Allocation) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := store.NewMemory()

	node := &model.Node{ID: "node-1", Name: "alpha", Address: "10.0.0.1", Allocations: allocations}
	if err := stores.Nodes.Save(ctx, node); err != nil {
		t.Fatal(err)
	}
	if err := stores.NestBits.Save(ctx, &model.NestBit{ID: "nb-1", DockerImage: "ubuntu:22.04", Name: "Ubuntu", Version: "1.0.0"}); err != nil {
		t.Fatal(err)
	}
	owner := &model.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	if err := stores.Users.Save(ctx, owner); err != nil {
		t.Fatal(err)
	}
	if err := stores.Users.Save(ctx, &model.User{ID: "user-2", Username: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatal(err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	agent := &fakeAgent{ssh: "ssh root@10.0.0.1 -p 2200"}
	auditor := &recordingAuditor{}
	return &fixture{
		svc:     NewService(stores, agent, allocation.NewMemoryLocker(), auditor, logrus.NewEntry(logger)),
		stores:  stores,
		agent:   agent,
		auditor: auditor,
		owner:   owner,
		admin:   auth.Principal{UserID: "admin", Username: "root", Admin: true},
	}
}

func (f *fixture) request(port int) CreateRequest {
	return CreateRequest{NodeID: "node-1", UserID: "user-1", NestBitID: "nb-1", Port: port, Name: "web", RAM: 1, Cores: 1}
}

func (f *fixture) node(t *testing.T) *model.Node {
	t.Helper()
	n, err := f.stores.Nodes.Get(context.Background(), "node-1")
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func (f *fixture) user(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := f.stores.Users.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCreateThenDelete_RestoresAllocation(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000, Domain: "play.example.com"})
	ctx := context.Background()

	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}
	if server.SSH != "ssh root@play.example.com -p 3000" {
		t.Errorf("unexpected ssh %q", server.SSH)
	}
	if server.Status != model.ServerStatusOnline {
		t.Errorf("Expected status online, got %s", server.Status)
	}
	if !f.node(t).Allocations[0].IsBeingUsed {
		t.Error("Expected allocation to be in use after create")
	}
	if got := f.user(t, "user-1").Servers; len(got) != 1 || got[0].ID != server.ID {
		t.Fatalf("Expected owner to list the server, got %+v", got)
	}
	if f.agent.deployed[0].Image != "ubuntu:22.04" || f.agent.deployed[0].Port != 3000 {
		t.Errorf("unexpected deploy request %+v", f.agent.deployed[0])
	}

	if err := f.svc.DeleteServer(ctx, f.admin, server.ID); err != nil {
		t.Fatalf("DeleteServer failed: %v", err)
	}
	if f.node(t).Allocations[0].IsBeingUsed {
		t.Error("Expected allocation to be free after delete")
	}
	if got := f.user(t, "user-1").Servers; len(got) != 0 {
		t.Errorf("Expected owner list to be empty, got %+v", got)
	}
	if _, err := f.stores.Servers.Get(ctx, server.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected server record to be gone, got %v", err)
	}
	if len(f.auditor.actions) != 2 || f.auditor.actions[0] != model.AuditCreateServer || f.auditor.actions[1] != model.AuditDeleteServer {
		t.Errorf("unexpected audit trail %v", f.auditor.actions)
	}
}

func TestCreateServer_SecondCreateOnSamePortFails(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000}, model.Allocation{Port: 3001, IsBeingUsed: true})
	ctx := context.Background()

	if _, err := f.svc.CreateServer(ctx, f.admin, f.request(3000)); err != nil {
		t.Fatalf("first CreateServer failed: %v", err)
	}
	if _, err := f.svc.CreateServer(ctx, f.admin, f.request(3000)); !errors.Is(err, errs.ErrAllocationUnavailable) {
		t.Errorf("Expected ErrAllocationUnavailable, got %v", err)
	}
	if _, err := f.svc.CreateServer(ctx, f.admin, f.request(3001)); !errors.Is(err, errs.ErrAllocationUnavailable) {
		t.Errorf("Expected used port to be unavailable, got %v", err)
	}
}

func TestCreateServer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{name: "missing node", mutate: func(r *CreateRequest) { r.NodeID = "nope" }, want: errs.ErrNotFound},
		{name: "missing image", mutate: func(r *CreateRequest) { r.NestBitID = "nope" }, want: errs.ErrNotFound},
		{name: "missing user", mutate: func(r *CreateRequest) { r.UserID = "nope" }, want: errs.ErrNotFound},
		{name: "unknown port", mutate: func(r *CreateRequest) { r.Port = 9999 }, want: errs.ErrAllocationUnavailable},
		{name: "empty name", mutate: func(r *CreateRequest) { r.Name = "  " }, want: errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, model.Allocation{Port: 3000})
			req := f.request(3000)
			tt.mutate(&req)
			if _, err := f.svc.CreateServer(context.Background(), f.admin, req); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if f.agent.calls != 0 {
				t.Errorf("Expected no agent call, got %d", f.agent.calls)
			}
		})
	}
}

func TestCreateServer_DeployFailureKeepsAllocationFree(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	f.agent.deployErr = fmt.Errorf("agent said no: %w", errs.ErrDeployFailed)

	_, err := f.svc.CreateServer(context.Background(), f.admin, f.request(3000))
	if !errors.Is(err, errs.ErrDeployFailed) {
		t.Fatalf("Expected ErrDeployFailed, got %v", err)
	}
	if f.node(t).Allocations[0].IsBeingUsed {
		t.Error("Allocation must stay free after a failed deploy")
	}
	if n, _ := f.stores.Servers.Count(context.Background()); n != 0 {
		t.Errorf("Expected no server records, got %d", n)
	}
}

func TestCreateServer_VNCPort(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000, IP: "10.0.0.5"})
	f.agent.vncPort = "6080"

	server, err := f.svc.CreateServer(context.Background(), f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}
	if server.SSH != "https://10.0.0.5:6080/vnc.html" {
		t.Errorf("unexpected console url %q", server.SSH)
	}
}

func TestCreateServer_ConcurrentNeverDoubleBooks(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})

	var wg sync.WaitGroup
	var ok, unavailable int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateServer(context.Background(), f.admin, f.request(3000))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, errs.ErrAllocationUnavailable):
				atomic.AddInt32(&unavailable, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || unavailable != 9 {
		t.Errorf("Expected 1 success and 9 failures, got %d and %d", ok, unavailable)
	}
	if n, _ := f.stores.Servers.Count(context.Background()); n != 1 {
		t.Errorf("Expected 1 server, got %d", n)
	}
}

func TestDeleteServer_AgentFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}

	f.agent.deleteErr = errs.ErrNodeRequestFailed
	if err := f.svc.DeleteServer(ctx, f.admin, server.ID); err != nil {
		t.Fatalf("Expected delete to succeed, got %v", err)
	}
	if f.node(t).Allocations[0].IsBeingUsed {
		t.Error("Expected allocation to be released")
	}
	if err := f.svc.DeleteServer(ctx, f.admin, server.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPerformAction(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}
	owner := auth.PrincipalFor(f.owner)
	stranger := auth.Principal{UserID: "user-2", Username: "bob", Email: "bob@example.com"}

	t.Run("invalid action makes no call", func(t *testing.T) {
		before := atomic.LoadInt32(&f.agent.calls)
		if _, err := f.svc.PerformAction(ctx, owner, "x", "delete"); !errors.Is(err, errs.ErrInvalidAction) {
			t.Errorf("Expected ErrInvalidAction, got %v", err)
		}
		if atomic.LoadInt32(&f.agent.calls) != before {
			t.Error("Expected no outbound call")
		}
	})

	t.Run("unknown container", func(t *testing.T) {
		if _, err := f.svc.PerformAction(ctx, owner, "missing", ActionStart); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("stranger denied", func(t *testing.T) {
		if _, err := f.svc.PerformAction(ctx, stranger, server.ContainerID, ActionStop); !errors.Is(err, errs.ErrAccessDenied) {
			t.Errorf("Expected ErrAccessDenied, got %v", err)
		}
	})

	t.Run("owner stops", func(t *testing.T) {
		got, err := f.svc.PerformAction(ctx, owner, server.ContainerID, ActionStop)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.ServerStatusStopped {
			t.Errorf("Expected stopped, got %s", got.Status)
		}
		if s := f.user(t, "user-1").FindServer(server.ContainerID); s == nil || s.Status != model.ServerStatusStopped {
			t.Errorf("Expected owner copy to be updated, got %+v", s)
		}
	})

	t.Run("subuser restarts", func(t *testing.T) {
		if _, err := f.svc.AddSubuser(ctx, owner, server.ContainerID, "BOB@example.com"); err != nil {
			t.Fatal(err)
		}
		got, err := f.svc.PerformAction(ctx, stranger, server.ContainerID, ActionRestart)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.ServerStatusRunning {
			t.Errorf("Expected running, got %s", got.Status)
		}
	})
}

func TestPerformAction_DeletedDuringAgentCallStaysDeleted(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	f.agent.mu.Lock()
	f.agent.onAction = func() {
		close(entered)
		<-release
	}
	f.agent.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.PerformAction(ctx, auth.PrincipalFor(f.owner), server.ContainerID, ActionStop)
		done <- err
	}()

	<-entered
	if err := f.svc.DeleteServer(ctx, f.admin, server.ID); err != nil {
		t.Fatalf("DeleteServer failed: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after concurrent delete, got %v", err)
	}
	if _, err := f.stores.Servers.Get(ctx, server.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected server record to stay deleted, got %v", err)
	}
	if got := f.user(t, "user-1").Servers; len(got) != 0 {
		t.Errorf("Expected owner list to stay empty, got %+v", got)
	}
	if f.node(t).Allocations[0].IsBeingUsed {
		t.Error("Expected allocation to stay free")
	}
}

func TestSave_DoesNotReaddMissingSummary(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}

	owner := f.user(t, "user-1")
	owner.RemoveServer(server.ID)
	if err := f.stores.Users.Save(ctx, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Rename(ctx, f.admin, server.ContainerID, "renamed"); err != nil {
		t.Fatal(err)
	}
	if got := f.user(t, "user-1").Servers; len(got) != 0 {
		t.Errorf("Expected owner list untouched, got %+v", got)
	}
}

func TestRegenerateSSH_UpdatesBothCopies(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}

	f.agent.ssh = "ssh root@10.0.0.1 -p 4242"
	got, err := f.svc.RegenerateSSH(ctx, auth.PrincipalFor(f.owner), server.ContainerID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SSH != f.agent.ssh {
		t.Errorf("unexpected ssh %q", got.SSH)
	}
	if s := f.user(t, "user-1").FindServer(server.ContainerID); s == nil || s.SSH != f.agent.ssh {
		t.Errorf("Expected owner copy to carry new ssh, got %+v", s)
	}
}

func TestRename(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Rename(ctx, f.admin, server.ContainerID, "   "); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	got, err := f.svc.Rename(ctx, auth.PrincipalFor(f.owner), server.ContainerID, "  api  ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "api" {
		t.Errorf("Expected trimmed name, got %q", got.Name)
	}
	if s := f.user(t, "user-1").FindServer(server.ContainerID); s.Name != "api" {
		t.Errorf("Expected owner copy renamed, got %q", s.Name)
	}
}

func TestSubusers(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	ctx := context.Background()
	server, err := f.svc.CreateServer(ctx, f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}
	owner := auth.PrincipalFor(f.owner)
	bob := auth.Principal{UserID: "user-2", Email: "bob@example.com"}

	if _, err := f.svc.AddSubuser(ctx, bob, server.ContainerID, "bob@example.com"); !errors.Is(err, errs.ErrAccessDenied) {
		t.Errorf("Expected non-owner to be denied, got %v", err)
	}
	if _, err := f.svc.AddSubuser(ctx, owner, server.ContainerID, "ghost@example.com"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected unknown user to fail, got %v", err)
	}
	if _, err := f.svc.AddSubuser(ctx, owner, server.ContainerID, "bob@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddSubuser(ctx, owner, server.ContainerID, "bob@example.com"); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("Expected duplicate subuser to conflict, got %v", err)
	}

	list, err := f.svc.ListForUser(ctx, bob)
	if err != nil || len(list) != 1 {
		t.Fatalf("Expected shared server in list, got %d (%v)", len(list), err)
	}

	if _, err := f.svc.RemoveSubuser(ctx, owner, server.ContainerID, "bob@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.GetByContainer(ctx, bob, server.ContainerID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Errorf("Expected access to be revoked, got %v", err)
	}
}

func TestPurgeNode(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000}, model.Allocation{Port: 3001})
	ctx := context.Background()
	for _, p := range []int{3000, 3001} {
		if _, err := f.svc.CreateServer(ctx, f.admin, f.request(p)); err != nil {
			t.Fatal(err)
		}
	}

	node := f.node(t)
	n, err := f.svc.PurgeNode(ctx, node)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(f.agent.deleted) != 2 {
		t.Errorf("Expected 2 servers purged, got %d (%d agent deletes)", n, len(f.agent.deleted))
	}
	if left, _ := f.stores.Servers.Count(ctx); left != 0 {
		t.Errorf("Expected no servers left, got %d", left)
	}
	if got := f.user(t, "user-1").Servers; len(got) != 0 {
		t.Errorf("Expected owner list to be empty, got %d", len(got))
	}
	if node.FreeAllocations() != 2 {
		t.Errorf("Expected allocations freed on the node value, got %d free", node.FreeAllocations())
	}
}

func TestCreateServer_UsesClock(t *testing.T) {
	f := newFixture(t, model.Allocation{Port: 3000})
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	server, err := f.svc.CreateServer(context.Background(), f.admin, f.request(3000))
	if err != nil {
		t.Fatal(err)
	}
	if !server.CreatedAt.Equal(fixed) {
		t.Errorf("Expected createdAt %v, got %v", fixed, server.CreatedAt)
	}
}
