// Package lifecycle coordinates server creation, control and removal across
// the node agent, the node's allocation pool and the owner's server list.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ploxora/internal/agentclient"
	"ploxora/internal/allocation"
	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

// Agent is the subset of the node agent client used here
type Agent interface {
	Deploy(ctx context.Context, node *model.Node, req agentclient.DeployRequest) (*agentclient.DeployResponse, error)
	DeleteContainer(ctx context.Context, node *model.Node, containerID string) error
	Action(ctx context.Context, node *model.Node, action, containerID string) error
	Stats(ctx context.Context, node *model.Node, containerID string) (json.RawMessage, error)
	ReSSH(ctx context.Context, node *model.Node, containerID string) (string, error)
}

// Auditor records administrative actions
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
	Notify(ctx context.Context, message, level string)
}

// Container actions accepted by PerformAction
const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionRestart = "restart"
)

// CreateRequest describes a server to deploy
type CreateRequest struct {
	NodeID    string
	UserID    string
	NestBitID string
	Port      int
	Name      string
	RAM       int
	Cores     int
}

// Service is the server lifecycle coordinator
type Service struct {
	stores  *store.Stores
	agent   Agent
	locker  allocation.Locker
	auditor Auditor
	logger  *logrus.Entry
	now     func() time.Time
}

// NewService creates the lifecycle coordinator
func NewService(stores *store.Stores, agent Agent, locker allocation.Locker, auditor Auditor, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		stores:  stores,
		agent:   agent,
		locker:  locker,
		auditor: auditor,
		logger:  logger.WithField("component", "lifecycle"),
		now:     time.Now,
	}
}

func (r CreateRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.NodeID) == "" {
		missing = append(missing, "nodeId")
	}
	if strings.TrimSpace(r.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(r.NestBitID) == "" {
		missing = append(missing, "imageId")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Port <= 0 {
		missing = append(missing, "port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s: %w", strings.Join(missing, ", "), errs.ErrValidation)
	}
	if r.RAM < 0 || r.Cores < 0 {
		return fmt.Errorf("ram and cores must not be negative: %w", errs.ErrValidation)
	}
	return nil
}

// CreateServer deploys a container on the node and binds it to a free allocation.
// The node lock is held from the allocation check until the node is persisted.
func (s *Service) CreateServer(ctx context.Context, actor auth.Principal, req CreateRequest) (*model.Server, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)

	unlock, err := s.locker.Lock(ctx, req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock node %s: %w", req.NodeID, err)
	}
	defer unlock()

	node, err := s.stores.Nodes.Get(ctx, req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", req.NodeID, err)
	}
	nestbit, err := s.stores.NestBits.Get(ctx, req.NestBitID)
	if err != nil {
		return nil, fmt.Errorf("nestbit %s: %w", req.NestBitID, err)
	}
	alloc, err := allocation.FindFree(node, req.Port)
	if err != nil {
		return nil, fmt.Errorf("port %d on node %s: %w", req.Port, node.ID, errs.ErrAllocationUnavailable)
	}
	user, err := s.stores.Users.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", req.UserID, err)
	}

	deployed, err := s.agent.Deploy(ctx, node, agentclient.DeployRequest{
		RAM:   req.RAM,
		Cores: req.Cores,
		Name:  req.Name,
		Port:  alloc.Port,
		Image: nestbit.DockerImage,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"node": node.ID, "port": alloc.Port}).Warnf("Deploy failed: %v", err)
		return nil, err
	}

	server := &model.Server{
		ID:          uuid.NewString(),
		Name:        req.Name,
		SSH:         sshString(alloc, deployed),
		ContainerID: deployed.ContainerID,
		Status:      model.ServerStatusOnline,
		User:        user.ID,
		Node:        node.ID,
		Allocation: model.ServerAllocation{
			Domain: alloc.Domain,
			IP:     alloc.IP,
			Port:   alloc.Port,
		},
		NestBit:   *nestbit,
		Subusers:  []model.Subuser{},
		CreatedAt: s.now(),
	}

	if err := s.stores.Servers.Save(ctx, server); err != nil {
		return nil, fmt.Errorf("failed to save server: %w", err)
	}
	if err := allocation.MarkUsed(node, alloc.Port); err != nil {
		return nil, err
	}
	if err := s.stores.Nodes.Save(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to save node: %w", err)
	}
	user.Servers = append(user.Servers, server.Summary())
	if err := s.stores.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"server":    server.ID,
		"container": server.ContainerID,
		"node":      node.ID,
		"port":      alloc.Port,
	}).Info("Server deployed")
	s.auditor.Record(ctx, actor.Name(), model.AuditCreateServer,
		fmt.Sprintf("Created server %s (%s) on node %s for %s", server.Name, server.ID, node.Name, user.Email))
	s.auditor.Notify(ctx, fmt.Sprintf("Server **%s** deployed on node **%s** (port %d)", server.Name, node.Name, alloc.Port), "info")
	return server, nil
}

// sshString renders the connection hint stored on a server
func sshString(alloc *model.Allocation, resp *agentclient.DeployResponse) string {
	host := alloc.Host()
	if port := resp.Port.String(); port != "" {
		return fmt.Sprintf("https://%s:%s/vnc.html", host, port)
	}
	return fmt.Sprintf("ssh root@%s -p %d", host, alloc.Port)
}

// DeleteServer removes the container, the owner's copy and the record, then
// frees the allocation. A failing agent delete is logged and ignored.
func (s *Service) DeleteServer(ctx context.Context, actor auth.Principal, serverID string) error {
	server, err := s.stores.Servers.Get(ctx, serverID)
	if err != nil {
		return fmt.Errorf("server %s: %w", serverID, err)
	}
	if !actor.CanManage(server) {
		return fmt.Errorf("server %s: %w", serverID, errs.ErrAccessDenied)
	}

	unlock, err := s.locker.Lock(ctx, server.Node)
	if err != nil {
		return fmt.Errorf("failed to lock node %s: %w", server.Node, err)
	}
	defer unlock()

	node, err := s.stores.Nodes.Get(ctx, server.Node)
	if err != nil {
		return fmt.Errorf("node %s: %w", server.Node, err)
	}

	if err := s.removeServer(ctx, node, server); err != nil {
		return err
	}
	if allocation.MarkFree(node, server.Allocation.Port) {
		if err := s.stores.Nodes.Save(ctx, node); err != nil {
			return fmt.Errorf("failed to save node: %w", err)
		}
	}

	s.auditor.Record(ctx, actor.Name(), model.AuditDeleteServer,
		fmt.Sprintf("Deleted server %s (%s) from node %s", server.Name, server.ID, node.Name))
	s.auditor.Notify(ctx, fmt.Sprintf("Server **%s** deleted from node **%s**", server.Name, node.Name), "warn")
	return nil
}

// removeServer deletes the container on a best-effort basis, drops the owner's
// copy and deletes the record. The allocation is left to the caller.
func (s *Service) removeServer(ctx context.Context, node *model.Node, server *model.Server) error {
	if server.ContainerID != "" {
		if err := s.agent.DeleteContainer(ctx, node, server.ContainerID); err != nil {
			s.logger.WithFields(logrus.Fields{
				"server":    server.ID,
				"container": server.ContainerID,
				"node":      node.ID,
			}).Warnf("Agent delete failed, removing record anyway: %v", err)
		}
	}

	owner, err := s.stores.Users.Get(ctx, server.User)
	switch {
	case err == nil:
		if owner.RemoveServer(server.ID) {
			if err := s.stores.Users.Save(ctx, owner); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}
		}
	case errors.Is(err, errs.ErrNotFound):
		s.logger.WithField("server", server.ID).Debug("Owner no longer exists")
	default:
		return fmt.Errorf("failed to load owner: %w", err)
	}

	if err := s.stores.Servers.Delete(ctx, server.ID); err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	return nil
}

// PurgeNode removes every server placed on node. Each removal follows the
// DeleteServer rules. It returns the number of servers removed.
func (s *Service) PurgeNode(ctx context.Context, node *model.Node) (int, error) {
	servers, err := s.stores.Servers.ListByNode(ctx, node.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list servers: %w", err)
	}
	for i, server := range servers {
		if err := s.removeServer(ctx, node, server); err != nil {
			return i, err
		}
		allocation.MarkFree(node, server.Allocation.Port)
	}
	return len(servers), nil
}

// ValidAction reports whether action is a supported container verb
func ValidAction(action string) bool {
	switch action {
	case ActionStart, ActionStop, ActionRestart:
		return true
	}
	return false
}

// PerformAction starts, stops or restarts a container
func (s *Service) PerformAction(ctx context.Context, actor auth.Principal, containerID, action string) (*model.Server, error) {
	if !ValidAction(action) {
		return nil, fmt.Errorf("%q: %w", action, errs.ErrInvalidAction)
	}
	server, node, err := s.accessible(ctx, actor, containerID)
	if err != nil {
		return nil, err
	}

	if err := s.agent.Action(ctx, node, action, containerID); err != nil {
		return nil, err
	}

	status := model.ServerStatusRunning
	if action == ActionStop {
		status = model.ServerStatusStopped
	}
	server, err = s.commit(ctx, server, func(sv *model.Server) error {
		sv.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"container": containerID, "action": action}).Info("Container action completed")
	return server, nil
}

// RegenerateSSH probes the container and stores freshly issued SSH details
func (s *Service) RegenerateSSH(ctx context.Context, actor auth.Principal, containerID string) (*model.Server, error) {
	server, node, err := s.accessible(ctx, actor, containerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.agent.Stats(ctx, node, containerID); err != nil {
		return nil, err
	}
	ssh, err := s.agent.ReSSH(ctx, node, containerID)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, server, func(sv *model.Server) error {
		sv.SSH = ssh
		return nil
	})
}

// Stats returns the agent's stats payload for the container
func (s *Service) Stats(ctx context.Context, actor auth.Principal, containerID string) (json.RawMessage, error) {
	_, node, err := s.accessible(ctx, actor, containerID)
	if err != nil {
		return nil, err
	}
	return s.agent.Stats(ctx, node, containerID)
}

// Rename changes the display name on the server and the owner's copy
func (s *Service) Rename(ctx context.Context, actor auth.Principal, containerID, name string) (*model.Server, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", errs.ErrValidation)
	}
	server, err := s.GetByContainer(ctx, actor, containerID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, server, func(sv *model.Server) error {
		sv.Name = name
		return nil
	})
}

// GetByContainer returns the server running containerID if the actor may see it
func (s *Service) GetByContainer(ctx context.Context, actor auth.Principal, containerID string) (*model.Server, error) {
	server, err := s.stores.Servers.FindByContainerID(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(server) {
		return nil, fmt.Errorf("container %s: %w", containerID, errs.ErrAccessDenied)
	}
	return server, nil
}

// Get returns a server by id
func (s *Service) Get(ctx context.Context, actor auth.Principal, serverID string) (*model.Server, error) {
	server, err := s.stores.Servers.Get(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", serverID, err)
	}
	if !actor.CanAccess(server) {
		return nil, fmt.Errorf("server %s: %w", serverID, errs.ErrAccessDenied)
	}
	return server, nil
}

// List returns every server
func (s *Service) List(ctx context.Context) ([]*model.Server, error) {
	return s.stores.Servers.List(ctx)
}

// ListForUser returns the servers the actor owns or was shared
func (s *Service) ListForUser(ctx context.Context, actor auth.Principal) ([]*model.Server, error) {
	return s.stores.Servers.ListAccessible(ctx, actor.UserID, actor.Email)
}

// AddSubuser shares a server with another account by email
func (s *Service) AddSubuser(ctx context.Context, actor auth.Principal, containerID, email string) (*model.Server, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", errs.ErrValidation)
	}
	server, err := s.manageable(ctx, actor, containerID)
	if err != nil {
		return nil, err
	}
	user, err := s.stores.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", email, errs.ErrNotFound)
	}
	if user.ID == server.User {
		return nil, fmt.Errorf("owner cannot be a subuser: %w", errs.ErrValidation)
	}

	return s.commit(ctx, server, func(sv *model.Server) error {
		if sv.HasSubuser(email) {
			return fmt.Errorf("%s is already a subuser: %w", email, errs.ErrConflict)
		}
		sv.Subusers = append(sv.Subusers, model.Subuser{Email: email})
		return nil
	})
}

// RemoveSubuser revokes a subuser's access
func (s *Service) RemoveSubuser(ctx context.Context, actor auth.Principal, containerID, email string) (*model.Server, error) {
	server, err := s.manageable(ctx, actor, containerID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, server, func(sv *model.Server) error {
		kept := sv.Subusers[:0]
		removed := false
		for _, su := range sv.Subusers {
			if strings.EqualFold(su.Email, strings.TrimSpace(email)) {
				removed = true
				continue
			}
			kept = append(kept, su)
		}
		if !removed {
			return fmt.Errorf("subuser %s: %w", email, errs.ErrNotFound)
		}
		sv.Subusers = kept
		return nil
	})
}

func (s *Service) manageable(ctx context.Context, actor auth.Principal, containerID string) (*model.Server, error) {
	server, err := s.stores.Servers.FindByContainerID(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(server) {
		return nil, fmt.Errorf("container %s: %w", containerID, errs.ErrAccessDenied)
	}
	return server, nil
}

// accessible loads the server and its node after the access check
func (s *Service) accessible(ctx context.Context, actor auth.Principal, containerID string) (*model.Server, *model.Node, error) {
	server, err := s.GetByContainer(ctx, actor, containerID)
	if err != nil {
		return nil, nil, err
	}
	node, err := s.stores.Nodes.Get(ctx, server.Node)
	if err != nil {
		return nil, nil, fmt.Errorf("node %s: %w", server.Node, err)
	}
	return server, node, nil
}

// commit re-reads server under its node lock, applies change and saves it.
// A server deleted in the meantime is reported as not found and stays deleted.
func (s *Service) commit(ctx context.Context, server *model.Server, change func(*model.Server) error) (*model.Server, error) {
	unlock, err := s.locker.Lock(ctx, server.Node)
	if err != nil {
		return nil, fmt.Errorf("failed to lock node %s: %w", server.Node, err)
	}
	defer unlock()

	current, err := s.stores.Servers.Get(ctx, server.ID)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", server.ID, err)
	}
	if err := change(current); err != nil {
		return nil, err
	}
	if err := s.save(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// save persists the server and refreshes the owner's denormalized copy.
// An owner that no longer lists the server is left alone.
func (s *Service) save(ctx context.Context, server *model.Server) error {
	if err := s.stores.Servers.Save(ctx, server); err != nil {
		return fmt.Errorf("failed to save server: %w", err)
	}

	owner, err := s.stores.Users.Get(ctx, server.User)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load owner: %w", err)
	}
	replaced := false
	for i := range owner.Servers {
		if owner.Servers[i].ID == server.ID {
			owner.Servers[i] = server.Summary()
			replaced = true
			break
		}
	}
	if !replaced {
		return nil
	}
	if err := s.stores.Users.Save(ctx, owner); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
