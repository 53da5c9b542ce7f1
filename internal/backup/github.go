package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 10 * time.Second

// GitHubConfig identifies the repository branch holding backup snapshots.
type GitHubConfig struct {
	Token  string
	Owner  string
	Repo   string
	Branch string
}

// SnapshotFunc produces the full dataset to back up.
type SnapshotFunc func(ctx context.Context) (interface{}, error)

// GitHubClient stores gzip-compressed JSON snapshots through the GitHub
// contents API. It implements Collaborator.
type GitHubClient struct {
	cfg        GitHubConfig
	baseURL    string
	httpClient *http.Client
	users      SnapshotFunc
	teams      SnapshotFunc
	blocks     SnapshotFunc
	log        zerolog.Logger
}

var _ Collaborator = (*GitHubClient)(nil)

// NewGitHubClient builds a client over the three dataset snapshot sources.
// The HTTP timeout bounds every call so a slow GitHub API can never stall
// the backup worker indefinitely.
func NewGitHubClient(cfg GitHubConfig, users, teams, blocks SnapshotFunc, log zerolog.Logger) *GitHubClient {
	return &GitHubClient{
		cfg:        cfg,
		baseURL:    "https://api.github.com",
		httpClient: &http.Client{Timeout: requestTimeout},
		users:      users,
		teams:      teams,
		blocks:     blocks,
		log:        log,
	}
}

// IsAvailable reports whether the client is configured for uploads.
func (c *GitHubClient) IsAvailable() bool {
	return c != nil && c.cfg.Token != "" && c.cfg.Owner != "" && c.cfg.Repo != ""
}

// BackupAllUsers snapshots the users table.
func (c *GitHubClient) BackupAllUsers(ctx context.Context) error {
	return c.backup(ctx, "shared/users.json.gz", c.users)
}

// BackupAllTeams snapshots the teams table.
func (c *GitHubClient) BackupAllTeams(ctx context.Context) error {
	return c.backup(ctx, "shared/teams.json.gz", c.teams)
}

// BackupAllBlocks snapshots the blocks table.
func (c *GitHubClient) BackupAllBlocks(ctx context.Context) error {
	return c.backup(ctx, "shared/blocks.json.gz", c.blocks)
}

func (c *GitHubClient) backup(ctx context.Context, path string, source SnapshotFunc) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := source(ctx)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}

	payload, err := compress(data)
	if err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}

	sha, err := c.fileSHA(ctx, path)
	if err != nil {
		return fmt.Errorf("lookup sha %s: %w", path, err)
	}

	return c.putContents(ctx, path, payload, sha)
}

func compress(data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *GitHubClient) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.cfg.Owner, c.cfg.Repo, path)
}

// fileSHA returns the blob SHA of an existing file, or "" when the file
// does not exist yet. The contents API requires the SHA for updates.
func (c *GitHubClient) fileSHA(ctx context.Context, path string) (string, error) {
	url := c.contentsURL(path) + "?ref=" + c.cfg.Branch
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("contents lookup: status %d", resp.StatusCode)
	}

	var body struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.SHA, nil
}

func (c *GitHubClient) putContents(ctx context.Context, path string, content []byte, sha string) error {
	body := map[string]interface{}{
		"message": "backup " + path,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.cfg.Branch,
	}
	if sha != "" {
		body["sha"] = sha
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("contents upload: status %d", resp.StatusCode)
	}

	c.log.Debug().Str("path", path).Msg("backup uploaded")
	return nil
}

func (c *GitHubClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
}
