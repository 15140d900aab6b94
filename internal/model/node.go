package model

import (
	"fmt"
	"time"
)

// NodeStatus represents node status
type NodeStatus string

const (
	NodeStatusOnline  NodeStatus = "Online"
	NodeStatusOffline NodeStatus = "Offline"
)

// Node protocols
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Node represents a virtualization host running the node agent
type Node struct {
	ID          string       `json:"id"`
	Token       string       `json:"token"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Port        *int         `json:"port"`
	Protocol    string       `json:"protocol"`
	PortEnabled bool         `json:"portEnabled"`
	RAM         int          `json:"ram"`
	Cores       int          `json:"cores"`
	Location    string       `json:"location"`
	Status      NodeStatus   `json:"status"`
	Allocations []Allocation `json:"allocations"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Allocation is a single port on a node that a server can be bound to
type Allocation struct {
	Name        string    `json:"name"`
	Port        int       `json:"allocation_port"`
	Domain      string    `json:"domain,omitempty"`
	IP          string    `json:"ip,omitempty"`
	IsBeingUsed bool      `json:"isBeingUsed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Host returns the public host of the allocation, preferring the domain
func (a *Allocation) Host() string {
	if a.Domain != "" {
		return a.Domain
	}
	return a.IP
}

// BaseURL builds the agent base URL. The port is only appended when the
// node has port usage enabled.
func (n *Node) BaseURL() string {
	protocol := n.Protocol
	if protocol == "" {
		protocol = ProtocolHTTP
	}
	base := fmt.Sprintf("%s://%s", protocol, n.Address)
	if n.PortEnabled && n.Port != nil && *n.Port != 0 {
		base = fmt.Sprintf("%s:%d", base, *n.Port)
	}
	return base
}

// FreeAllocations counts allocations not bound to a server
func (n *Node) FreeAllocations() int {
	count := 0
	for i := range n.Allocations {
		if !n.Allocations[i].IsBeingUsed {
			count++
		}
	}
	return count
}
