package gitpush

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
)

// Options configures a Pusher.
type Options struct {
	RepoPath    string
	Remote      string
	Branch      string
	AuthorName  string
	AuthorEmail string
}

// Pusher commits generated artifacts in a local clone and pushes them to the
// remote branch. Git commands are serialised because the clone is shared by
// all requests.
type Pusher struct {
	mu   sync.Mutex
	opts Options
}

// NewPusher checks that opts.RepoPath is a git work tree.
func NewPusher(opts Options) (*Pusher, error) {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}

	cmd := exec.Command("git", "-C", opts.RepoPath, "rev-parse", "--is-inside-work-tree")
	if out, err := cmd.CombinedOutput(); err != nil || strings.TrimSpace(string(out)) != "true" {
		return nil, fmt.Errorf("not a git repository: %s", opts.RepoPath)
	}

	return &Pusher{opts: opts}, nil
}

// Push stages and commits the artifact, pushes HEAD to the configured branch
// and returns the pushed commit. When the push is rejected the local commit
// is undone, so a failed artifact never rides along with a later push.
func (p *Pusher) Push(ctx context.Context, artifact domain.Artifact) (*domain.PushReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// empty on an unborn branch; nothing to roll back to then
	before, _ := p.git(ctx, "rev-parse", "--verify", "-q", "HEAD")
	before = strings.TrimSpace(before)

	if _, err := p.git(ctx, "add", "--", artifact.RelPath); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Add generated artifact %s", artifact.ID)
	if out, err := p.git(ctx, "commit", "-m", msg, "--", artifact.RelPath); err != nil {
		// identical content regenerated: push whatever HEAD is
		if !nothingToCommit(out) {
			return nil, err
		}
	}

	if _, err := p.git(ctx, "push", p.opts.Remote, "HEAD:refs/heads/"+p.opts.Branch); err != nil {
		if before != "" {
			// keeps the file on disk, untracked
			if _, rerr := p.git(ctx, "reset", "--mixed", "-q", before); rerr != nil {
				return nil, fmt.Errorf("%w (rollback failed: %v)", err, rerr)
			}
		}
		return nil, err
	}

	commit, err := p.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}

	return &domain.PushReceipt{
		Commit: strings.TrimSpace(commit),
		Branch: p.opts.Branch,
		Remote: p.opts.Remote,
	}, nil
}

// Sync rebases the local clone onto the remote branch so later pushes
// fast-forward.
func (p *Pusher) Sync(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.git(ctx, "pull", "--rebase", p.opts.Remote, p.opts.Branch)
	return err
}

// git runs a git subcommand in the clone. The returned string is the
// combined output, also on failure.
func (p *Pusher) git(ctx context.Context, args ...string) (string, error) {
	full := []string{"-C", p.opts.RepoPath}
	if p.opts.AuthorName != "" {
		full = append(full, "-c", "user.name="+p.opts.AuthorName)
	}
	if p.opts.AuthorEmail != "" {
		full = append(full, "-c", "user.email="+p.opts.AuthorEmail)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func nothingToCommit(out string) bool {
	for _, marker := range []string{"nothing to commit", "nothing added to commit", "no changes added to commit"} {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}
