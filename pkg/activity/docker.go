package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// PostgresPort is the port PostgreSQL listens on inside its container.
const PostgresPort = 5432

// Container is a running container and its published ports.
type Container struct {
	ID    string
	Name  string
	Image string
	Ports []PortMapping
}

// PortMapping is one published port of a container.
type PortMapping struct {
	IP          string `json:"ip"`
	PrivatePort int    `json:"privatePort"`
	PublicPort  int    `json:"publicPort"`
	Type        string `json:"type"`
}

// DockerClient wraps the Docker Engine API client.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient connects to the Docker daemon configured by DOCKER_HOST and friends.
func NewDockerClient() (*DockerClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &DockerClient{cli: cli}, nil
}

// Close closes the client.
func (dc *DockerClient) Close() error {
	return dc.cli.Close()
}

// ListRunningContainers returns every running container.
func (dc *DockerClient) ListRunningContainers(ctx context.Context) ([]Container, error) {
	containers, err := dc.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]Container, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		ports := make([]PortMapping, 0, len(c.Ports))
		for _, port := range c.Ports {
			ports = append(ports, PortMapping{
				IP:          port.IP,
				PrivatePort: int(port.PrivatePort),
				PublicPort:  int(port.PublicPort),
				Type:        port.Type,
			})
		}

		result = append(result, Container{
			ID:    c.ID,
			Name:  name,
			Image: c.Image,
			Ports: ports,
		})
	}
	return result, nil
}

// ResolveContainer finds the running container called name and returns the
// host address and port that publish privatePort.
func (dc *DockerClient) ResolveContainer(ctx context.Context, name string, privatePort int) (string, int, error) {
	containers, err := dc.ListRunningContainers(ctx)
	if err != nil {
		return "", 0, err
	}

	host, port, err := publishedPort(containers, name, privatePort)
	if err != nil {
		return "", 0, err
	}
	slog.Info("resolved container port", "container", name, "host", host, "port", port)
	return host, port, nil
}

// publishedPort looks up the public TCP port bound to privatePort on the
// container matching name, either by name or by ID prefix.
func publishedPort(containers []Container, name string, privatePort int) (string, int, error) {
	for _, c := range containers {
		if c.Name != name && !(len(name) >= 12 && strings.HasPrefix(c.ID, name)) {
			continue
		}

		for _, p := range c.Ports {
			if p.PrivatePort != privatePort || p.PublicPort == 0 {
				continue
			}
			if p.Type != "" && p.Type != "tcp" {
				continue
			}
			return hostForIP(p.IP), p.PublicPort, nil
		}
		return "", 0, fmt.Errorf("container %s does not publish port %d", name, privatePort)
	}
	return "", 0, fmt.Errorf("container %s is not running", name)
}

// hostForIP maps wildcard bind addresses to localhost.
func hostForIP(ip string) string {
	switch ip {
	case "", "0.0.0.0", "::":
		return "localhost"
	}
	return ip
}
