// Package git wraps git command execution for the local-clone connector.
package git

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Client executes git commands in a working directory.
// It holds no locks itself; transaction safety is the connector's concern.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	return &Client{WorkDir: workDir, Logger: logger}
}

// IsInstalled reports whether a git binary is available.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Run executes a raw git command in the working directory.
func (c *Client) Run(args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)

	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}

	return strings.TrimSpace(output), nil
}

// Init initializes a repository. Safe to re-run.
func (c *Client) Init() error {
	_, err := c.Run("init")
	return err
}

// IsRepo reports whether the working directory is inside a git repository.
func (c *Client) IsRepo() bool {
	out, err := c.Run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Add stages files.
func (c *Client) Add(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"add"}, files...)
	_, err := c.Run(args...)
	return err
}

// Rm removes files from the working tree and the index.
func (c *Client) Rm(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"rm", "-f", "--ignore-unmatch"}, files...)
	_, err := c.Run(args...)
	return err
}

// Commit records staged changes. An empty stage is not an error.
func (c *Client) Commit(msg string) error {
	status, err := c.Status()
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}
	_, err = c.Run("commit", "-m", msg)
	return err
}

// Status returns the porcelain status of the repo.
func (c *Client) Status() (string, error) {
	return c.Run("status", "--porcelain")
}

// ConfigGet reads a config value; missing keys return "".
func (c *Client) ConfigGet(key string) string {
	out, err := c.Run("config", "--get", key)
	if err != nil {
		return ""
	}
	return out
}

// CommitCount returns the number of commits on HEAD, 0 for empty repos.
func (c *Client) CommitCount() int {
	out, err := c.Run("rev-list", "--count", "HEAD")
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0
	}
	return n
}

// Authors returns the distinct author lines ("Name <email>") of the
// repository history.
func (c *Client) Authors() []string {
	out, err := c.Run("log", "--format=%an <%ae>")
	if err != nil || out == "" {
		return nil
	}

	seen := make(map[string]bool)
	var authors []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		authors = append(authors, line)
	}
	return authors
}

// HasRemote reports whether an 'origin' remote is configured.
func (c *Client) HasRemote() bool {
	out, err := c.Run("remote")
	if err != nil {
		return false
	}
	for _, r := range strings.Split(out, "\n") {
		if strings.TrimSpace(r) == "origin" {
			return true
		}
	}
	return false
}

// Sync pulls with rebase and pushes.
func (c *Client) Sync() error {
	if _, err := c.Run("pull", "--rebase", "origin"); err != nil {
		return err
	}
	_, err := c.Run("push", "origin")
	return err
}
