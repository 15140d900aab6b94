package nodehealth

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/model"
)

// NodeSource lists nodes and refreshes their status
type NodeSource interface {
	ListStored(ctx context.Context) ([]*model.Node, error)
	RefreshStatus(ctx context.Context, node *model.Node) model.NodeStatus
}

// Worker for node health checks
type Worker struct {
	ctx         context.Context
	cancel      context.CancelFunc
	nodes       NodeSource
	logger      *logrus.Entry
	interval    time.Duration
	concurrency int
	wg          sync.WaitGroup
}

// Config holds the configuration for the health check worker
type Config struct {
	Nodes       NodeSource
	Logger      *logrus.Entry
	IntervalSec int
	Concurrency int
}

// CheckResult holds the result of a single manual health check
type CheckResult struct {
	NodeID string           `json:"nodeId"`
	Name   string           `json:"name"`
	Status model.NodeStatus `json:"status"`
	OK     bool             `json:"ok"`
}

// NewWorker creates a new health check worker
func NewWorker(cfg *Config) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.IntervalSec <= 0 {
		cfg.IntervalSec = 30
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		ctx:         ctx,
		cancel:      cancel,
		nodes:       cfg.Nodes,
		logger:      cfg.Logger.WithField("component", "node-health-worker"),
		interval:    time.Duration(cfg.IntervalSec) * time.Second,
		concurrency: cfg.Concurrency,
	}
}

// Start begins the periodic health checks
func (w *Worker) Start() {
	w.logger.Info("Starting node health worker...")
	ticker := time.NewTicker(w.interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.CheckAll(w.ctx)
			case <-w.ctx.Done():
				w.logger.Info("Stopping node health worker...")
				return
			}
		}
	}()
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// CheckAll refreshes every node's status with bounded concurrency
func (w *Worker) CheckAll(ctx context.Context) []CheckResult {
	nodes, err := w.nodes.ListStored(ctx)
	if err != nil {
		w.logger.Errorf("Failed to fetch nodes for health check: %v", err)
		return nil
	}
	if len(nodes) == 0 {
		return nil
	}

	results := make([]CheckResult, len(nodes))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, w.concurrency)

	for i, node := range nodes {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, n *model.Node) {
			defer wg.Done()
			defer func() { <-semaphore }()
			status := w.nodes.RefreshStatus(ctx, n)
			results[i] = CheckResult{
				NodeID: n.ID,
				Name:   n.Name,
				Status: status,
				OK:     status == model.NodeStatusOnline,
			}
		}(i, node)
	}

	wg.Wait()
	return results
}
