// Package sky drives the orchestrator CLI inside its Docker container.
// Everything here is text in, text out: the tool's console output is the
// only interface, consumed by the parsers in the monitor package.
package sky

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"strato/gateway"
)

// Client runs sky commands inside a named container. Container and image
// names are explicit configuration scoped to one client, not process-wide
// state.
type Client struct {
	Runner    gateway.Runner
	Container string
	Image     string
	Log       *zap.Logger
}

func New(runner gateway.Runner, container, image string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{Runner: runner, Container: container, Image: image, Log: log}
}

// Run executes `sky args...` in the container with the given timeout.
func (c *Client) Run(ctx context.Context, timeout time.Duration, args ...string) gateway.Result {
	execArgs := append([]string{"exec", c.Container, "sky"}, args...)
	return c.Runner.Run(ctx, gateway.Spec{Name: "docker", Args: execArgs, Timeout: timeout})
}

func (c *Client) Status(ctx context.Context) gateway.Result {
	return c.Run(ctx, 10*time.Second, "status")
}

func (c *Client) Queue(ctx context.Context, cluster string) gateway.Result {
	return c.Run(ctx, 10*time.Second, "queue", cluster)
}

func (c *Client) Logs(ctx context.Context, cluster string, tail int) gateway.Result {
	return c.Run(ctx, 20*time.Second, "logs", cluster, fmt.Sprintf("--tail=%d", tail))
}

func (c *Client) Check(ctx context.Context) gateway.Result {
	return c.Run(ctx, 15*time.Second, "check")
}

func (c *Client) Version(ctx context.Context) gateway.Result {
	return c.Run(ctx, 15*time.Second, "--version")
}

func launchArgs(taskFile, name, deploymentID string) []string {
	args := []string{"launch", taskFile, "--name", name, "--yes"}
	if deploymentID != "" {
		args = append(args, "--env", "CLUSTER_DEPLOYMENT_ID="+deploymentID)
	}
	return args
}

// Launch starts a deployment and blocks until the launch call returns.
func (c *Client) Launch(ctx context.Context, taskFile, name, deploymentID string) gateway.Result {
	return c.Run(ctx, 10*time.Minute, launchArgs(taskFile, name, deploymentID)...)
}

// LaunchDetached starts the deployment in the background (docker exec -d)
// and returns as soon as the process is handed off.
func (c *Client) LaunchDetached(ctx context.Context, taskFile, name, deploymentID string) error {
	args := append([]string{"exec", "-d", c.Container, "sky"}, launchArgs(taskFile, name, deploymentID)...)
	res := c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    args,
		Timeout: 30 * time.Second,
	})
	if !res.OK {
		return fmt.Errorf("start detached launch: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Down tears the named cluster down.
func (c *Client) Down(ctx context.Context, cluster string) gateway.Result {
	return c.Run(ctx, 5*time.Minute, "down", cluster, "--yes")
}

// ClusterName finds the active cluster name from status output, matching
// the configured prefix convention.
func (c *Client) ClusterName(ctx context.Context, prefix string) (string, error) {
	res := c.Status(ctx)
	if !res.OK {
		if res.TimedOut() {
			return "", fmt.Errorf("status poll: %w", res.Err)
		}
		return "", fmt.Errorf("status poll: %s", strings.TrimSpace(res.Stderr))
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "NAME") || strings.HasPrefix(line, "Enabled") ||
			strings.HasPrefix(line, "No ") || strings.HasPrefix(line, "Clusters") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasPrefix(fields[0], prefix) {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no cluster matching prefix %q", prefix)
}

// EnsureContainer makes sure the orchestrator container is running,
// starting a fresh one when it isn't. Credentials and workspace mounts come
// from the invoking user's home directory.
func (c *Client) EnsureContainer(ctx context.Context) error {
	ps := c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    []string{"ps", "--filter", "name=" + c.Container, "--filter", "status=running", "--quiet"},
		Timeout: 10 * time.Second,
	})
	if ps.OK && strings.TrimSpace(ps.Stdout) != "" {
		return nil
	}

	c.Log.Info("starting orchestrator container", zap.String("container", c.Container))

	// Clear any stopped leftover; failure here is fine.
	c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    []string{"rm", c.Container},
		Timeout: 10 * time.Second,
	})

	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	run := c.Runner.Run(ctx, gateway.Spec{
		Name: "docker",
		Args: []string{
			"run", "-td", "--rm", "--name", c.Container,
			"-v", filepath.Join(home, ".sky") + ":/root/.sky:rw",
			"-v", filepath.Join(home, ".aws") + ":/root/.aws:rw",
			"-v", filepath.Join(home, ".config", "gcloud") + ":/root/.config/gcloud:rw",
			"-v", cwd + ":/workspace:rw",
			"-w", "/workspace",
			c.Image,
		},
		Timeout: time.Minute,
	})
	if !run.OK {
		return fmt.Errorf("start container: %s", strings.TrimSpace(run.Stderr))
	}
	return nil
}

// CheckPrerequisites verifies the full launch path: docker reachable, the
// orchestrator image present (pulling it if needed), the container up, the
// sky binary answering, and cloud credentials accepted. A failed credential
// check gets one container restart before it counts as fatal.
func (c *Client) CheckPrerequisites(ctx context.Context) error {
	res := c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    []string{"version", "--format", "{{.Server.Version}}"},
		Timeout: 10 * time.Second,
	})
	if !res.OK {
		return fmt.Errorf("docker daemon unreachable: %s", strings.TrimSpace(res.Stderr))
	}

	res = c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    []string{"image", "inspect", c.Image},
		Timeout: 10 * time.Second,
	})
	if !res.OK {
		c.Log.Info("pulling orchestrator image", zap.String("image", c.Image))
		pull := c.Runner.Run(ctx, gateway.Spec{
			Name:    "docker",
			Args:    []string{"pull", c.Image},
			Timeout: 10 * time.Minute,
		})
		if !pull.OK {
			return fmt.Errorf("pull image %s: %s", c.Image, strings.TrimSpace(pull.Stderr))
		}
	}

	if err := c.EnsureContainer(ctx); err != nil {
		return err
	}

	if res = c.Version(ctx); !res.OK {
		return fmt.Errorf("sky binary not responding: %s", strings.TrimSpace(res.Stderr))
	}

	check := c.Check(ctx)
	if !check.OK || !strings.Contains(check.Stdout, "AWS: enabled") {
		// Stale credentials inside the container fail sky check; one
		// restart remounts them. No second retry.
		c.Log.Warn("credential check failed, restarting container")
		if err := c.RestartContainer(ctx); err != nil {
			return err
		}
		check = c.Check(ctx)
		if !check.OK {
			return fmt.Errorf("sky check failed: %s", strings.TrimSpace(check.Stderr))
		}
		if !strings.Contains(check.Stdout, "AWS: enabled") {
			return fmt.Errorf("AWS is not enabled for sky; run aws configure and retry")
		}
	}
	return nil
}

// RestartContainer stops and recreates the container. This is the targeted
// remediation for timed-out orchestrator calls: stale credentials inside
// the container are the usual culprit.
func (c *Client) RestartContainer(ctx context.Context) error {
	c.Log.Info("restarting orchestrator container", zap.String("container", c.Container))
	c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    []string{"stop", c.Container},
		Timeout: 30 * time.Second,
	})
	c.Runner.Run(ctx, gateway.Spec{
		Name:    "docker",
		Args:    []string{"rm", c.Container},
		Timeout: 10 * time.Second,
	})
	return c.EnsureContainer(ctx)
}
