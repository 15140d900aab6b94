package agentclient

import "encoding/json"

// DeployRequest is the body of POST /deploy
type DeployRequest struct {
	RAM   int    `json:"ram"`
	Cores int    `json:"cores"`
	Name  string `json:"name"`
	Port  int    `json:"port"`
	Image string `json:"image"`
	// NbImg carries the same image under the field name older agents read.
	NbImg string `json:"nbimg"`
}

// DeployResponse is the agent's deploy result
type DeployResponse struct {
	ContainerID string `json:"containerId"`
	SSH         string `json:"ssh,omitempty"`
	// Port is set when the image exposes a VNC console instead of SSH.
	Port    json.Number `json:"port,omitempty"`
	Message string      `json:"message,omitempty"`
}

// DockerResponse is the body of GET /checkdockerrunning
type DockerResponse struct {
	Docker string `json:"docker"`
}

// DockerUsage is the body of GET /docker-usage
type DockerUsage struct {
	TotalCPU          float64 `json:"totalCPU"`
	TotalMemoryUsedMB float64 `json:"totalMemoryUsedMB"`
	TotalDiskMB       float64 `json:"totalDiskMB"`
}

// ContainerRequest is the body of POST /vps/delete and POST /ressh
type ContainerRequest struct {
	ContainerID string `json:"containerId"`
}

// SSHResponse is the body of POST /ressh when the agent answers with JSON
type SSHResponse struct {
	SSH string `json:"ssh"`
}

// errorBody is the common failure shape returned by the agent
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
