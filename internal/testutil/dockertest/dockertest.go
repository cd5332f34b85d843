// Package dockertest runs throwaway service containers for integration tests.
package dockertest

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Container describes an image built from a Dockerfile at the repository root
// and published on a single host port.
type Container struct {
	Dockerfile    string
	Image         string
	Name          string
	HostPort      string
	ContainerPort string
	Env           map[string]string
	ReadyTimeout  time.Duration
	// Ready is polled until it returns nil or ReadyTimeout elapses.
	Ready func(addr string) error

	mu       sync.Mutex
	started  bool
	setupErr error
}

// Addr exposes the host:port combination used by integration tests.
func (c *Container) Addr() string { return "127.0.0.1:" + c.HostPort }

// Setup builds the image, starts the container and waits for Ready. Repeated
// calls return the first outcome until Teardown resets it.
func (c *Container) Setup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.setupErr != nil {
		return c.setupErr
	}
	c.setupErr = c.start()
	c.started = c.setupErr == nil
	return c.setupErr
}

// Teardown stops the container if Setup started it.
func (c *Container) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return c.setupErr
	}
	if err := c.stop(); err != nil {
		return err
	}
	c.started = false
	return nil
}

func (c *Container) start() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker executable not found: %w", err)
	}
	_ = c.stop()
	root := repoRoot()
	if err := runDocker("build", "-f", filepath.Join(root, c.Dockerfile), "-t", c.Image, root); err != nil {
		return err
	}
	args := []string{"run", "-d", "--rm", "--name", c.Name, "-p", c.HostPort + ":" + c.ContainerPort}
	for k, v := range c.Env {
		args = append(args, "-e", k+"="+v)
	}
	if err := runDocker(append(args, c.Image)...); err != nil {
		return err
	}
	return c.wait()
}

func (c *Container) wait() error {
	timeout := c.ReadyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if c.Ready == nil {
		return nil
	}
	deadline := time.Now().Add(timeout)
	var last error
	for time.Now().Before(deadline) {
		if last = c.Ready(c.Addr()); last == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.Join(fmt.Errorf("%s did not become ready within %s", c.Name, timeout), last)
}

func (c *Container) stop() error {
	cmd := exec.Command("docker", "stop", c.Name)
	cmd.Dir = repoRoot()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}

func runDocker(args ...string) error {
	cmd := exec.Command("docker", args...)
	cmd.Dir = repoRoot()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}

func repoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", ".."))
}
