package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/errs"
	"ploxora/internal/model"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultProbeTimeout = 3 * time.Second
	usageTimeout        = 5 * time.Second
	maxBodySize         = 4 << 20
	sshUnavailable      = "N/A"
)

// Options configures the agent client
type Options struct {
	// Timeout bounds deploy and other mutating calls.
	Timeout time.Duration
	// ProbeTimeout bounds docker/version probes.
	ProbeTimeout time.Duration
	Logger       *logrus.Entry
	Transport    http.RoundTripper
}

// Client talks to the node agent. Every call is a single request without
// retries, authenticated with the node token in the x-verification-key query.
type Client struct {
	httpClient   *http.Client
	probeTimeout time.Duration
	logger       *logrus.Entry
}

// NewClient creates an agent client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		probeTimeout: opts.ProbeTimeout,
		logger:       opts.Logger.WithField("component", "agent-client"),
	}
}

// URL builds the agent URL for path with the verification key attached
func URL(node *model.Node, path string) string {
	return node.BaseURL() + path + "?x-verification-key=" + url.QueryEscape(node.Token)
}

// CheckDocker reports whether docker is running on the node
func (c *Client) CheckDocker(ctx context.Context, node *model.Node) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	var resp DockerResponse
	if err := c.getJSON(ctx, node, "/checkdockerrunning", &resp); err != nil {
		return false, err
	}
	return resp.Docker == "running", nil
}

// Version returns the agent's version payload
func (c *Client) Version(ctx context.Context, node *model.Node) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	var resp map[string]any
	if err := c.getJSON(ctx, node, "/version", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DockerUsage returns the aggregate docker resource usage of the node
func (c *Client) DockerUsage(ctx context.Context, node *model.Node) (*DockerUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, usageTimeout)
	defer cancel()

	var resp DockerUsage
	if err := c.getJSON(ctx, node, "/docker-usage", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Deploy asks the agent to create a container
func (c *Client) Deploy(ctx context.Context, node *model.Node, req DeployRequest) (*DeployResponse, error) {
	if req.NbImg == "" {
		req.NbImg = req.Image
	}
	status, body, err := c.do(ctx, http.MethodPost, URL(node, "/deploy"), req)
	if err != nil {
		return nil, fmt.Errorf("deploy on node %s: %v: %w", node.ID, err, errs.ErrDeployFailed)
	}
	if !success(status) {
		return nil, fmt.Errorf("deploy on node %s: %s: %w", node.ID, agentMessage(status, body), errs.ErrDeployFailed)
	}

	var resp DeployResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("deploy on node %s: invalid response: %v: %w", node.ID, err, errs.ErrDeployFailed)
	}
	if resp.ContainerID == "" {
		return nil, fmt.Errorf("deploy on node %s: no container id returned: %w", node.ID, errs.ErrDeployFailed)
	}
	return &resp, nil
}

// DeleteContainer removes a container from the node
func (c *Client) DeleteContainer(ctx context.Context, node *model.Node, containerID string) error {
	status, body, err := c.do(ctx, http.MethodPost, URL(node, "/vps/delete"), ContainerRequest{ContainerID: containerID})
	if err != nil {
		return fmt.Errorf("delete %s on node %s: %v: %w", containerID, node.ID, err, errs.ErrNodeRequestFailed)
	}
	if !success(status) {
		return fmt.Errorf("delete %s on node %s: %s: %w", containerID, node.ID, agentMessage(status, body), errs.ErrNodeRequestFailed)
	}
	return nil
}

// Action runs start, stop or restart on a container
func (c *Client) Action(ctx context.Context, node *model.Node, action, containerID string) error {
	path := fmt.Sprintf("/action/%s/%s", url.PathEscape(action), url.PathEscape(containerID))
	status, body, err := c.do(ctx, http.MethodPost, URL(node, path), nil)
	if err != nil {
		return fmt.Errorf("%s %s on node %s: %v: %w", action, containerID, node.ID, err, errs.ErrNodeRequestFailed)
	}
	if !success(status) {
		return fmt.Errorf("%s %s on node %s: %s: %w", action, containerID, node.ID, agentMessage(status, body), errs.ErrNodeRequestFailed)
	}
	return nil
}

// Stats returns the agent's stats payload for a container unchanged
func (c *Client) Stats(ctx context.Context, node *model.Node, containerID string) (json.RawMessage, error) {
	path := "/stats/" + url.PathEscape(containerID)
	status, body, err := c.do(ctx, http.MethodGet, URL(node, path), nil)
	if err != nil {
		return nil, fmt.Errorf("stats %s on node %s: %v: %w", containerID, node.ID, err, errs.ErrNodeRequestFailed)
	}
	if !success(status) {
		return nil, fmt.Errorf("stats %s on node %s: %s: %w", containerID, node.ID, agentMessage(status, body), errs.ErrNodeRequestFailed)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("stats %s on node %s: invalid JSON: %w", containerID, node.ID, errs.ErrNodeRequestFailed)
	}
	return json.RawMessage(body), nil
}

// ReSSH asks the agent for fresh SSH details. Agents answer with
// {"ssh": "..."} or with the plain connection string.
func (c *Client) ReSSH(ctx context.Context, node *model.Node, containerID string) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, URL(node, "/ressh"), ContainerRequest{ContainerID: containerID})
	if err != nil {
		return "", fmt.Errorf("ressh %s on node %s: %v: %w", containerID, node.ID, err, errs.ErrNodeRequestFailed)
	}
	if !success(status) {
		return "", fmt.Errorf("ressh %s on node %s: %s: %w", containerID, node.ID, agentMessage(status, body), errs.ErrNodeRequestFailed)
	}
	return parseSSH(body), nil
}

func parseSSH(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return sshUnavailable
	}
	var resp SSHResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.SSH == "" {
			return sshUnavailable
		}
		return resp.SSH
	}
	return raw
}

func (c *Client) getJSON(ctx context.Context, node *model.Node, path string, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, URL(node, path), nil)
	if err != nil {
		return fmt.Errorf("GET %s on node %s: %v: %w", path, node.ID, err, errs.ErrNodeRequestFailed)
	}
	if !success(status) {
		return fmt.Errorf("GET %s on node %s: %s: %w", path, node.ID, agentMessage(status, body), errs.ErrNodeRequestFailed)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s on node %s: invalid response: %v: %w", path, node.ID, err, errs.ErrNodeRequestFailed)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithField("method", method).Debugf("agent request failed: %v", err)
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// agentMessage extracts a readable failure reason from an agent response
func agentMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return fmt.Sprintf("status %d: %s", status, eb.Message)
		}
		if eb.Error != "" {
			return fmt.Sprintf("status %d: %s", status, eb.Error)
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 255 {
		text = text[:255]
	}
	if text == "" {
		return fmt.Sprintf("status %d", status)
	}
	return fmt.Sprintf("status %d: %s", status, text)
}
