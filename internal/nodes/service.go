// Package nodes manages node records, their live status and allocation pools.
package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/agentclient"
	"ploxora/internal/allocation"
	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

const unknownVersion = "Unknown"

// Agent is the subset of the node agent client used for node probes
type Agent interface {
	CheckDocker(ctx context.Context, node *model.Node) (bool, error)
	Version(ctx context.Context, node *model.Node) (map[string]any, error)
	DockerUsage(ctx context.Context, node *model.Node) (*agentclient.DockerUsage, error)
}

// Purger removes every server placed on a node
type Purger interface {
	PurgeNode(ctx context.Context, node *model.Node) (int, error)
}

// Auditor records administrative actions
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
	Notify(ctx context.Context, message, level string)
}

// CreateRequest holds the fields of a new node
type CreateRequest struct {
	Name        string
	Address     string
	Port        int
	RAM         int
	Cores       int
	Protocol    string
	PortEnabled bool
}

// EditRequest holds node fields to change. Zero values are left untouched.
type EditRequest struct {
	Name    string
	Address string
	Port    int
	RAM     int
	Cores   int
}

// NodeView is a node with its agent-reported version
type NodeView struct {
	*model.Node
	Version string `json:"version"`
}

// NodeDetail is the single-node view
type NodeDetail struct {
	NodeView
	Info    map[string]any  `json:"info"`
	Servers []*model.Server `json:"servers"`
}

// Service manages nodes
type Service struct {
	stores  *store.Stores
	agent   Agent
	purger  Purger
	locker  allocation.Locker
	geo     GeoLocator
	auditor Auditor
	logger  *logrus.Entry
	now     func() time.Time
}

// NewService creates the node service
func NewService(stores *store.Stores, agent Agent, purger Purger, locker allocation.Locker, geo GeoLocator, auditor Auditor, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		stores:  stores,
		agent:   agent,
		purger:  purger,
		locker:  locker,
		geo:     geo,
		auditor: auditor,
		logger:  logger.WithField("component", "nodes"),
		now:     time.Now,
	}
}

// Create registers a node. It starts Offline with no allocations.
func (s *Service) Create(ctx context.Context, actor auth.Principal, req CreateRequest) (*model.Node, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" || req.Address == "" {
		return nil, fmt.Errorf("name and address are required: %w", errs.ErrValidation)
	}

	id, err := auth.RandomHex(4)
	if err != nil {
		return nil, err
	}
	token, err := auth.RandomHex(16)
	if err != nil {
		return nil, err
	}

	protocol := strings.ToLower(strings.TrimSpace(req.Protocol))
	if protocol != model.ProtocolHTTP && protocol != model.ProtocolHTTPS {
		protocol = model.ProtocolHTTP
	}

	node := &model.Node{
		ID:          id,
		Token:       token,
		Name:        req.Name,
		Address:     req.Address,
		Protocol:    protocol,
		PortEnabled: req.PortEnabled,
		RAM:         req.RAM,
		Cores:       req.Cores,
		Location:    s.geo.Locate(ctx, req.Address),
		Status:      model.NodeStatusOffline,
		Allocations: []model.Allocation{},
		CreatedAt:   s.now(),
	}
	if req.PortEnabled && req.Port > 0 {
		port := req.Port
		node.Port = &port
	}

	if err := s.stores.Nodes.Save(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	portLabel := "no-port"
	if node.Port != nil {
		portLabel = fmt.Sprint(*node.Port)
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditCreateNode,
		fmt.Sprintf("Created node %s (%s) at %s:%s [%s]", node.Name, node.ID, node.Address, portLabel, node.Protocol))
	return node, nil
}

// Edit applies the non-empty fields of req
func (s *Service) Edit(ctx context.Context, actor auth.Principal, id string, req EditRequest) (*model.Node, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock node %s: %w", id, err)
	}
	defer unlock()

	node, err := s.stores.Nodes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		node.Name = v
	}
	if v := strings.TrimSpace(req.Address); v != "" {
		node.Address = v
	}
	if req.Port > 0 {
		port := req.Port
		node.Port = &port
	}
	if req.RAM > 0 {
		node.RAM = req.RAM
	}
	if req.Cores > 0 {
		node.Cores = req.Cores
	}

	if err := s.stores.Nodes.Save(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	s.auditor.Notify(ctx, fmt.Sprintf("Node %s updated (details edited).", node.Name), "info")
	s.auditor.Record(ctx, actor.Name(), model.AuditEditNode,
		fmt.Sprintf("Updated node %s (%s) with new details", node.Name, node.ID))
	return node, nil
}

// Get returns a node with its live status, version payload and servers
func (s *Service) Get(ctx context.Context, id string) (*NodeDetail, error) {
	node, err := s.stores.Nodes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}

	node.Status = s.RefreshStatus(ctx, node)
	info, err := s.agent.Version(ctx, node)
	if err != nil {
		info = map[string]any{}
	}
	servers, err := s.stores.Servers.ListByNode(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	return &NodeDetail{
		NodeView: NodeView{Node: node, Version: versionOf(info)},
		Info:     info,
		Servers:  servers,
	}, nil
}

// List returns every node with live status and version
func (s *Service) List(ctx context.Context) ([]NodeView, error) {
	all, err := s.stores.Nodes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	out := make([]NodeView, 0, len(all))
	for _, node := range all {
		node.Status = s.RefreshStatus(ctx, node)
		version := unknownVersion
		if info, err := s.agent.Version(ctx, node); err == nil {
			version = versionOf(info)
		}
		out = append(out, NodeView{Node: node, Version: version})
	}
	return out, nil
}

// ListStored returns nodes as stored, without probing agents
func (s *Service) ListStored(ctx context.Context) ([]*model.Node, error) {
	return s.stores.Nodes.List(ctx)
}

// RefreshStatus probes docker on the node and persists the status when it
// changed. Probe failures count as Offline.
func (s *Service) RefreshStatus(ctx context.Context, node *model.Node) model.NodeStatus {
	status := model.NodeStatusOffline
	running, err := s.agent.CheckDocker(ctx, node)
	if err != nil {
		s.logger.WithField("node", node.ID).Debugf("Health check failed: %v", err)
	} else if running {
		status = model.NodeStatusOnline
	}
	if status == node.Status {
		return status
	}

	unlock, err := s.locker.Lock(ctx, node.ID)
	if err != nil {
		s.logger.WithField("node", node.ID).Warnf("Skipping status update: %v", err)
		return status
	}
	defer unlock()

	current, err := s.stores.Nodes.Get(ctx, node.ID)
	if err != nil {
		return status
	}
	if current.Status != status {
		current.Status = status
		if err := s.stores.Nodes.Save(ctx, current); err != nil {
			s.logger.WithField("node", node.ID).Errorf("Failed to persist status: %v", err)
		} else {
			s.logger.WithFields(logrus.Fields{"node": node.ID, "status": status}).Info("Node status changed")
		}
	}
	return status
}

// DockerUsage returns the node's docker usage; zeros when the agent is unreachable
func (s *Service) DockerUsage(ctx context.Context, id string) (*agentclient.DockerUsage, error) {
	node, err := s.stores.Nodes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}
	usage, err := s.agent.DockerUsage(ctx, node)
	if err != nil {
		s.logger.WithField("node", id).Debugf("Docker usage unavailable: %v", err)
		return &agentclient.DockerUsage{}, nil
	}
	return usage, nil
}

// Delete removes a node after purging the servers placed on it
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to lock node %s: %w", id, err)
	}
	defer unlock()

	node, err := s.stores.Nodes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("node %s: %w", id, err)
	}

	purged, err := s.purger.PurgeNode(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to remove servers of node %s: %w", id, err)
	}
	if err := s.stores.Nodes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"node": id, "servers": purged}).Info("Node deleted")
	s.auditor.Notify(ctx, fmt.Sprintf("Node %s deleted along with %d server(s).", node.Name, purged), "warn")
	s.auditor.Record(ctx, actor.Name(), model.AuditDeleteNode,
		fmt.Sprintf("Deleted node %s (%s) and %d server(s)", node.Name, node.ID, purged))
	return nil
}

// AddAllocations adds a port or port range to the node's pool
func (s *Service) AddAllocations(ctx context.Context, id, portSpec, domain, ip string) ([]int, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock node %s: %w", id, err)
	}
	defer unlock()

	node, err := s.stores.Nodes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}
	ports, err := allocation.Add(node, portSpec, domain, ip, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.stores.Nodes.Save(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	s.auditor.Notify(ctx, fmt.Sprintf("Allocations added to node %s: %s", node.Name, joinPorts(ports)), "info")
	return ports, nil
}

// RemoveAllocation deletes an unused allocation
func (s *Service) RemoveAllocation(ctx context.Context, id string, port int) error {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to lock node %s: %w", id, err)
	}
	defer unlock()

	node, err := s.stores.Nodes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("node %s: %w", id, err)
	}
	if err := allocation.Remove(node, port); err != nil {
		return err
	}
	if err := s.stores.Nodes.Save(ctx, node); err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}
	return nil
}

func versionOf(info map[string]any) string {
	if v, ok := info["version"].(string); ok && v != "" {
		return v
	}
	return unknownVersion
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}
