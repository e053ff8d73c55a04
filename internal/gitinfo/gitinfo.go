// Package gitinfo records which commit produced a run. Training output
// directories get a git_log.json so results stay traceable to source
// even after checkouts move on.
package gitinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// FileName is the metadata file written into run output directories.
const FileName = "git_log.json"

// Info identifies a repository state.
type Info struct {
	RepoID string `json:"repo_id"`
	SHA    string `json:"repo_sha"`
	Branch string `json:"repo_branch"`
}

// Collect resolves the repository containing dir (walking parents the way
// git itself does) and reports its HEAD commit and branch.
func Collect(dir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository from %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	repoID := dir
	if wt, err := repo.Worktree(); err == nil {
		repoID = wt.Filesystem.Root()
	}
	return &Info{
		RepoID: repoID,
		SHA:    head.Hash().String(),
		Branch: head.Name().Short(),
	}, nil
}

// Save collects repository metadata for srcDir and writes it as
// git_log.json under outDir.
func Save(srcDir, outDir string) error {
	info, err := Collect(srcDir)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode git info: %w", err)
	}
	path := filepath.Join(outDir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
