// Package github pushes finished drafts to a repository as pull requests
// using the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"blogforge/internal/models"
)

type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewClient(token, baseURL string) *Client {
	return &Client{
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError carries the GitHub response status so callers can branch on 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s (status %d)", e.Message, e.StatusCode)
}

var (
	urlRepoPattern = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/]+?)(?:/|$)`)
	sshRepoPattern = regexp.MustCompile(`git@[^:]+:([^/]+)/(.+)`)
	slugPattern    = regexp.MustCompile(`[^\w\s-]`)
	spacePattern   = regexp.MustCompile(`\s+`)
	dashPattern    = regexp.MustCompile(`--+`)
)

// NormalizeRepo parses the many shapes users paste a repository in
// (https URL, ssh URL, owner/repo, "owner repo") into owner and repo.
func NormalizeRepo(repoString string) (owner, repo string, ok bool) {
	normalized := strings.TrimSpace(repoString)
	normalized = strings.TrimSuffix(normalized, ".git")
	if normalized == "" {
		return "", "", false
	}

	if strings.Contains(normalized, "github.com") {
		if m := urlRepoPattern.FindStringSubmatch(normalized); m != nil {
			return m[1], m[2], true
		}
	}
	if strings.HasPrefix(normalized, "git@") {
		if m := sshRepoPattern.FindStringSubmatch(normalized); m != nil {
			return m[1], m[2], true
		}
	}

	if parts := splitNonEmpty(normalized, "/"); len(parts) >= 2 {
		return parts[0], parts[1], true
	}
	if parts := strings.Fields(normalized); len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return "", "", false
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Slugify turns a title into a file/branch-safe slug.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, "-")
	s = dashPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// RenderFrontmatter serializes the draft's frontmatter for the MDX file.
// title/description/date are always present; stored frontmatter overrides
// them. Keys are sorted for stable output.
func RenderFrontmatter(draft *models.Draft) string {
	fm := map[string]any{
		"title":       draft.Title,
		"description": draft.Excerpt,
		"date":        time.Now().UTC().Format(time.DateOnly),
	}
	for k, v := range draft.Frontmatter {
		fm[k] = v
	}

	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		lines = append(lines, renderFrontmatterEntry(key, fm[key]))
	}
	return strings.Join(lines, "\n")
}

func renderFrontmatterEntry(key string, value any) string {
	switch v := value.(type) {
	case []any:
		var items []string
		for _, item := range v {
			items = append(items, fmt.Sprintf("  - %v", item))
		}
		return fmt.Sprintf("%s:\n%s", key, strings.Join(items, "\n"))
	case []string:
		var items []string
		for _, item := range v {
			items = append(items, "  - "+item)
		}
		return fmt.Sprintf("%s:\n%s", key, strings.Join(items, "\n"))
	case string:
		if strings.Contains(v, "\n") {
			return fmt.Sprintf("%s: |\n  %s", key, strings.Join(strings.Split(v, "\n"), "\n  "))
		}
		return fmt.Sprintf("%s: %q", key, v)
	default:
		return fmt.Sprintf("%s: %v", key, v)
	}
}

// CreatePullRequest commits the draft as an MDX file on a fresh branch and
// opens a pull request against the website's configured branch, creating the
// repository first when it does not exist. Returns the PR URL.
func (c *Client) CreatePullRequest(ctx context.Context, draft *models.Draft, website *models.Website) (string, error) {
	if website.GithubRepo == nil || *website.GithubRepo == "" {
		return "", fmt.Errorf("GitHub repository not configured for this website")
	}
	owner, repo, ok := NormalizeRepo(*website.GithubRepo)
	if !ok {
		return "", fmt.Errorf("invalid GitHub repository format %q: expected owner/repo or https://github.com/owner/repo", *website.GithubRepo)
	}

	branch := website.GithubBranch
	if branch == "" {
		branch = "main"
	}
	basePath := website.GithubPath
	if basePath == "" {
		basePath = "blog"
	}
	slug := Slugify(draft.Title)
	newBranch := fmt.Sprintf("article/%s-%d", slug, time.Now().UnixMilli())

	if err := c.ensureRepository(ctx, owner, repo, website); err != nil {
		return "", err
	}

	sha, err := c.baseBranchSHA(ctx, owner, repo, branch)
	if err != nil {
		return "", err
	}

	if err := c.createRef(ctx, owner, repo, "refs/heads/"+newBranch, sha); err != nil {
		return "", fmt.Errorf("creating branch %s: %w", newBranch, err)
	}

	mdx := fmt.Sprintf("---\n%s\n---\n\n%s", RenderFrontmatter(draft), draft.Content)
	filePath := basePath + "/" + slug + ".mdx"
	if err := c.createFile(ctx, owner, repo, filePath, newBranch, "Add article: "+draft.Title, mdx); err != nil {
		return "", fmt.Errorf("committing %s: %w", filePath, err)
	}

	prURL, err := c.openPullRequest(ctx, owner, repo, draft, newBranch, branch)
	if err != nil {
		return "", fmt.Errorf("opening pull request: %w", err)
	}
	return prURL, nil
}

func (c *Client) ensureRepository(ctx context.Context, owner, repo string, website *models.Website) error {
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, nil)
	if err == nil {
		return nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("checking repository %s/%s: %w", owner, repo, err)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return fmt.Errorf("getting authenticated user: %w", err)
	}

	payload := map[string]any{
		"name":           repo,
		"description":    "Blog repository for " + website.Name,
		"private":        false,
		"auto_init":      true,
		"default_branch": website.GithubBranch,
	}
	path := "/user/repos"
	if !strings.EqualFold(owner, user.Login) {
		path = "/orgs/" + owner + "/repos"
		payload["org"] = owner
	}

	if err := c.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		if isStatus(err, http.StatusForbidden) {
			return fmt.Errorf("cannot create repository %q: verify the token has the repo scope and you can create repositories for %q", owner+"/"+repo, owner)
		}
		if isStatus(err, http.StatusUnprocessableEntity) {
			return fmt.Errorf("cannot create repository %q: the name may already exist or be invalid", owner+"/"+repo)
		}
		return fmt.Errorf("creating repository %s/%s: %w", owner, repo, err)
	}

	// Give GitHub a moment to finish initializing the new repository.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// baseBranchSHA resolves the head of the base branch, retrying briefly since
// a just-created repository may not have its default branch ready.
func (c *Client) baseBranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, branch)

	for attempt := 0; attempt < 3; attempt++ {
		err := c.do(ctx, http.MethodGet, path, nil, &ref)
		if err == nil {
			return ref.Object.SHA, nil
		}
		if !isStatus(err, http.StatusNotFound) || attempt == 2 {
			if isStatus(err, http.StatusNotFound) {
				return "", fmt.Errorf("branch %q not found in %s/%s; common branch names are main, master, develop", branch, owner, repo)
			}
			return "", fmt.Errorf("getting base branch %s: %w", branch, err)
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("getting base branch %s: retries exhausted", branch)
}

func (c *Client) createRef(ctx context.Context, owner, repo, ref, sha string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo),
		map[string]any{"ref": ref, "sha": sha}, nil)
}

func (c *Client) createFile(ctx context.Context, owner, repo, path, branch, message, content string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path),
		map[string]any{
			"message": message,
			"content": base64.StdEncoding.EncodeToString([]byte(content)),
			"branch":  branch,
		}, nil)
}

func (c *Client) openPullRequest(ctx context.Context, owner, repo string, draft *models.Draft, head, base string) (string, error) {
	body := fmt.Sprintf(`## New Article Draft

**Title:** %s

**Excerpt:** %s

**Stats:**
- Word Count: %d
- Readability Score: %d/100
- Keyword Density: %g%%

---

Generated by blogforge`,
		draft.Title, draft.Excerpt, draft.WordCount, draft.ReadabilityScore, draft.KeywordDensity)

	var pr struct {
		HTMLURL string `json:"html_url"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo),
		map[string]any{
			"title": "New Article: " + draft.Title,
			"head":  head,
			"base":  base,
			"body":  body,
		}, &pr)
	if err != nil {
		return "", err
	}
	return pr.HTMLURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling github: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading github response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &ge)
		if ge.Message == "" {
			ge.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: ge.Message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding github response: %w", err)
		}
	}
	return nil
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
