package gitpush

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	full := append([]string{"-C", dir, "-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)
	out, err := exec.Command("git", full...).CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

// setupRepos creates a bare remote with one commit on main and a clone of it.
func setupRepos(t *testing.T) (remote, clone string) {
	t.Helper()
	requireGit(t)

	root := t.TempDir()
	remote = filepath.Join(root, "remote.git")
	seed := filepath.Join(root, "seed")
	clone = filepath.Join(root, "clone")

	runGit(t, root, "init", "--bare", remote)
	runGit(t, root, "init", seed)
	require.NoError(t, os.WriteFile(filepath.Join(seed, "README.md"), []byte("infra\n"), 0o644))
	runGit(t, seed, "add", "README.md")
	runGit(t, seed, "commit", "-m", "init")
	runGit(t, seed, "push", remote, "HEAD:refs/heads/main")
	runGit(t, root, "clone", "--branch", "main", remote, clone)

	return remote, clone
}

func writeArtifact(t *testing.T, clone, id, content string) domain.Artifact {
	t.Helper()
	a := domain.Artifact{ID: id, RepoPath: clone, RelPath: filepath.Join("generated", id, "main.tf")}
	require.NoError(t, os.MkdirAll(filepath.Dir(a.Path()), 0o755))
	require.NoError(t, os.WriteFile(a.Path(), []byte(content), 0o644))
	return a
}

func newPusher(t *testing.T, clone string) *Pusher {
	t.Helper()
	p, err := NewPusher(Options{
		RepoPath:    clone,
		Remote:      "origin",
		Branch:      "main",
		AuthorName:  "mediguru-bot",
		AuthorEmail: "bot@example.com",
	})
	require.NoError(t, err)
	return p
}

func TestNewPusher_NotARepository(t *testing.T) {
	requireGit(t)

	_, err := NewPusher(Options{RepoPath: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
}

func TestPusher_PushCommitsArtifact(t *testing.T) {
	remote, clone := setupRepos(t)
	p := newPusher(t, clone)

	a := writeArtifact(t, clone, "gen-1", "terraform {}\n")
	receipt, err := p.Push(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, "main", receipt.Branch)
	assert.Equal(t, "origin", receipt.Remote)
	assert.Equal(t, runGit(t, remote, "rev-parse", "main"), receipt.Commit)
	assert.Equal(t, "terraform {}", runGit(t, remote, "show", "main:generated/gen-1/main.tf"))
	assert.Equal(t, "Add generated artifact gen-1", runGit(t, remote, "log", "-1", "--format=%s", "main"))
	assert.Equal(t, "mediguru-bot", runGit(t, remote, "log", "-1", "--format=%an", "main"))
}

func TestPusher_PushUnchangedArtifact(t *testing.T) {
	remote, clone := setupRepos(t)
	p := newPusher(t, clone)

	a := writeArtifact(t, clone, "gen-1", "terraform {}\n")
	first, err := p.Push(context.Background(), a)
	require.NoError(t, err)

	second, err := p.Push(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, first.Commit, second.Commit)
	assert.Equal(t, first.Commit, runGit(t, remote, "rev-parse", "main"))
}

func TestPusher_PushFailureCarriesGitOutput(t *testing.T) {
	_, clone := setupRepos(t)
	runGit(t, clone, "remote", "set-url", "origin", filepath.Join(t.TempDir(), "missing.git"))
	p := newPusher(t, clone)

	a := writeArtifact(t, clone, "gen-1", "terraform {}\n")
	_, err := p.Push(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git push")
}

func TestPusher_PushFailureUndoesLocalCommit(t *testing.T) {
	remote, clone := setupRepos(t)
	head := runGit(t, clone, "rev-parse", "HEAD")
	runGit(t, clone, "remote", "set-url", "origin", filepath.Join(t.TempDir(), "missing.git"))
	p := newPusher(t, clone)

	failed := writeArtifact(t, clone, "gen-1", "terraform {}\n")
	_, err := p.Push(context.Background(), failed)
	require.Error(t, err)

	assert.Equal(t, head, runGit(t, clone, "rev-parse", "HEAD"))
	_, err = os.Stat(failed.Path())
	require.NoError(t, err, "artifact stays on disk")

	runGit(t, clone, "remote", "set-url", "origin", remote)
	ok := writeArtifact(t, clone, "gen-2", "terraform {}\n")
	receipt, err := p.Push(context.Background(), ok)
	require.NoError(t, err)

	assert.Equal(t, runGit(t, remote, "rev-parse", "main"), receipt.Commit)
	files := runGit(t, remote, "ls-tree", "-r", "--name-only", "main")
	assert.Contains(t, files, "generated/gen-2/main.tf")
	assert.NotContains(t, files, "generated/gen-1/main.tf")
}

func TestPusher_SyncPullsRemoteCommits(t *testing.T) {
	remote, clone := setupRepos(t)
	p := newPusher(t, clone)

	other := filepath.Join(t.TempDir(), "other")
	runGit(t, filepath.Dir(other), "clone", "--branch", "main", remote, other)
	require.NoError(t, os.WriteFile(filepath.Join(other, "variables.tf"), []byte("variable \"region\" {}\n"), 0o644))
	runGit(t, other, "add", "variables.tf")
	runGit(t, other, "commit", "-m", "add variables")
	runGit(t, other, "push", "origin", "HEAD:refs/heads/main")

	require.NoError(t, p.Sync(context.Background()))
	_, err := os.Stat(filepath.Join(clone, "variables.tf"))
	require.NoError(t, err)

	a := writeArtifact(t, clone, "gen-2", "terraform {}\n")
	receipt, err := p.Push(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, runGit(t, remote, "rev-parse", "main"), receipt.Commit)
}
