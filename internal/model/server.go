package model

import (
	"strings"
	"time"
)

// ServerStatus represents the last known container status
type ServerStatus string

const (
	ServerStatusOnline  ServerStatus = "online"
	ServerStatusRunning ServerStatus = "running"
	ServerStatusStopped ServerStatus = "stopped"
)

// Server represents a deployed container
type Server struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	SSH         string           `json:"ssh"`
	ContainerID string           `json:"containerId"`
	Status      ServerStatus     `json:"status"`
	User        string           `json:"user"`
	Node        string           `json:"node"`
	Allocation  ServerAllocation `json:"allocation"`
	NestBit     NestBit          `json:"nestbit"`
	Subusers    []Subuser        `json:"subusers"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ServerAllocation is the allocation snapshot stored on a server
type ServerAllocation struct {
	Domain string `json:"domain,omitempty"`
	IP     string `json:"ip,omitempty"`
	Port   int    `json:"port"`
}

// Subuser grants another account access to a server
type Subuser struct {
	Email string `json:"email"`
}

// ServerSummary is the denormalized copy kept in the owner's server list
type ServerSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	SSH         string           `json:"ssh"`
	ContainerID string           `json:"containerId"`
	Status      ServerStatus     `json:"status"`
	Node        string           `json:"node"`
	Allocation  ServerAllocation `json:"allocation"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Summary builds the owner's copy of the server
func (s *Server) Summary() ServerSummary {
	return ServerSummary{
		ID:          s.ID,
		Name:        s.Name,
		SSH:         s.SSH,
		ContainerID: s.ContainerID,
		Status:      s.Status,
		Node:        s.Node,
		Allocation:  s.Allocation,
		CreatedAt:   s.CreatedAt,
	}
}

// HasSubuser reports whether email is listed as a subuser (case-insensitive)
func (s *Server) HasSubuser(email string) bool {
	for _, su := range s.Subusers {
		if strings.EqualFold(su.Email, email) {
			return true
		}
	}
	return false
}
