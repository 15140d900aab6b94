// Package allocation manages the port allocation pool of a node.
//
// Functions here mutate the node in place; callers persist the node and hold
// the node's Locker key while doing so.
package allocation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ploxora/internal/errs"
	"ploxora/internal/model"
)

const (
	minPort = 1
	maxPort = 65535
)

// ParsePortSpec parses a single port ("3000") or an inclusive range
// ("3000-3010") into the list of ports it names.
func ParsePortSpec(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("port range required: %w", errs.ErrValidation)
	}

	parts := strings.Split(spec, "-")
	switch len(parts) {
	case 1:
		p, err := parsePort(parts[0])
		if err != nil {
			return nil, err
		}
		return []int{p}, nil
	case 2:
		start, err := parsePort(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := parsePort(parts[1])
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("invalid port range %q: start after end: %w", spec, errs.ErrValidation)
		}
		ports := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			ports = append(ports, p)
		}
		return ports, nil
	default:
		return nil, fmt.Errorf("invalid port range %q: %w", spec, errs.ErrValidation)
	}
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, errs.ErrValidation)
	}
	if p < minPort || p > maxPort {
		return 0, fmt.Errorf("port %d out of range: %w", p, errs.ErrValidation)
	}
	return p, nil
}

// Add appends one free allocation per port in spec. Nothing is added when the
// spec is malformed or when any requested port already exists on the node.
func Add(node *model.Node, spec, domain, ip string, now time.Time) ([]int, error) {
	ports, err := ParsePortSpec(spec)
	if err != nil {
		return nil, err
	}

	existing := make(map[int]struct{}, len(node.Allocations))
	for _, a := range node.Allocations {
		existing[a.Port] = struct{}{}
	}
	for _, p := range ports {
		if _, ok := existing[p]; ok {
			return nil, fmt.Errorf("allocation %d already exists on node %s: %w", p, node.ID, errs.ErrConflict)
		}
	}

	domain = strings.TrimSpace(domain)
	ip = strings.TrimSpace(ip)
	for _, p := range ports {
		node.Allocations = append(node.Allocations, model.Allocation{
			Name:      fmt.Sprintf("alloc-%d", p),
			Port:      p,
			Domain:    domain,
			IP:        ip,
			CreatedAt: now,
		})
	}
	return ports, nil
}

// FindFree returns the allocation for port if it exists and is not in use
func FindFree(node *model.Node, port int) (*model.Allocation, error) {
	for i := range node.Allocations {
		a := &node.Allocations[i]
		if a.Port == port && !a.IsBeingUsed {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no free allocation %d on node %s: %w", port, node.ID, errs.ErrNotFound)
}

// Find returns the allocation for port regardless of its state
func Find(node *model.Node, port int) *model.Allocation {
	for i := range node.Allocations {
		if node.Allocations[i].Port == port {
			return &node.Allocations[i]
		}
	}
	return nil
}

// MarkUsed flags the allocation on port as bound to a server
func MarkUsed(node *model.Node, port int) error {
	a := Find(node, port)
	if a == nil {
		return fmt.Errorf("allocation %d on node %s: %w", port, node.ID, errs.ErrNotFound)
	}
	if a.IsBeingUsed {
		return fmt.Errorf("allocation %d on node %s: %w", port, node.ID, errs.ErrAllocationUnavailable)
	}
	a.IsBeingUsed = true
	return nil
}

// MarkFree releases the allocation on port. It reports whether an allocation
// changed state.
func MarkFree(node *model.Node, port int) bool {
	a := Find(node, port)
	if a == nil || !a.IsBeingUsed {
		return false
	}
	a.IsBeingUsed = false
	return true
}

// Remove deletes an unused allocation from the node
func Remove(node *model.Node, port int) error {
	for i := range node.Allocations {
		a := node.Allocations[i]
		if a.Port != port {
			continue
		}
		if a.IsBeingUsed {
			return fmt.Errorf("allocation %d is in use: %w", port, errs.ErrConflict)
		}
		node.Allocations = append(node.Allocations[:i], node.Allocations[i+1:]...)
		return nil
	}
	return fmt.Errorf("allocation %d on node %s: %w", port, node.ID, errs.ErrNotFound)
}
