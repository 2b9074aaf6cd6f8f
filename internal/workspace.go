package internal

import (
	"os"
	"path/filepath"
	"strings"
)

// GitInfo is the repository context attached to recent traces.
type GitInfo struct {
	Repository string
	Branch     string
}

// DetectGitInfo resolves repository and branch for the working directory by
// walking up to the nearest .git directory. Returns nil when the directory
// is not inside a repository; the collector then simply omits the context.
func DetectGitInfo(dir string) *GitInfo {
	gitDir := findGitDir(dir)
	if gitDir == "" {
		return nil
	}

	info := &GitInfo{
		Repository: repositoryName(gitDir),
		Branch:     currentBranch(gitDir),
	}
	if info.Repository == "" && info.Branch == "" {
		return nil
	}
	return info
}

func findGitDir(dir string) string {
	for {
		candidate := filepath.Join(dir, ".git")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// currentBranch reads .git/HEAD, which holds "ref: refs/heads/<branch>" on a
// branch and a bare commit hash when detached.
func currentBranch(gitDir string) string {
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(data))
	if branch, ok := strings.CutPrefix(head, "ref: refs/heads/"); ok {
		return branch
	}
	return ""
}

// repositoryName prefers the origin remote's URL from .git/config and falls
// back to the repository directory name.
func repositoryName(gitDir string) string {
	if name := remoteURLName(filepath.Join(gitDir, "config")); name != "" {
		return name
	}
	return filepath.Base(filepath.Dir(gitDir))
}

func remoteURLName(configPath string) string {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return ""
	}

	inOrigin := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		if value, ok := strings.CutPrefix(line, "url"); ok {
			value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "="))
			return repoNameFromURL(value)
		}
	}
	return ""
}

func repoNameFromURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")
	if idx := strings.LastIndexAny(url, "/:"); idx >= 0 {
		url = url[idx+1:]
	}
	return url
}
