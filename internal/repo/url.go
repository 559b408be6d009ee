// Package repo acquires a repository working copy and turns it into the
// artifacts and usage signals the analysis consumes.
package repo

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateGitHubURL accepts http(s) URLs on github.com naming owner/name.
func ValidateGitHubURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid GitHub URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid GitHub URL %q: scheme must be http or https", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return fmt.Errorf("invalid GitHub URL %q: host must be github.com", raw)
	}
	if len(pathParts(u.Path)) < 2 {
		return fmt.Errorf("invalid GitHub URL %q: expected https://github.com/<owner>/<repo>", raw)
	}
	return nil
}

// RepoName returns "owner/name" for a GitHub URL.
func RepoName(raw string) (string, error) {
	if err := ValidateGitHubURL(raw); err != nil {
		return "", err
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	parts := pathParts(u.Path)
	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), nil
}

// IsRemote reports whether target looks like a URL rather than a local path.
func IsRemote(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "git@")
}

func pathParts(p string) []string {
	var out []string
	for _, s := range strings.Split(strings.Trim(p, "/"), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
