// Package git syncs documents stored in a Git repository into the data
// directory.
package git

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/Yates-Labs/ragchat/internal/docsource"
)

// Options selects what to copy out of a repository.
type Options struct {
	// URL is a remote URL or a local repository path.
	URL string

	// Ref is a branch, tag or commit. Empty means HEAD.
	Ref string

	// Path restricts the sync to a directory inside the repository.
	Path string
}

// OpenRepository opens a Git repository from a local path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpen(path)
}

// CloneRepository clones a Git repository to memory
func CloneRepository(url string) (*git.Repository, error) {
	return git.Clone(memory.NewStorage(), nil, &git.CloneOptions{
		URL: url,
	})
}

// openOrClone tries the URL as a local path first, then clones it.
func openOrClone(url string) (*git.Repository, error) {
	repo, err := OpenRepository(url)
	if err == nil {
		return repo, nil
	}
	repo, err = CloneRepository(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open or clone repository '%s': %w", url, err)
	}
	return repo, nil
}

// resolveCommit finds the commit for ref, trying remote-tracking branches
// for refs that only exist on origin.
func resolveCommit(repo *git.Repository, ref string) (*object.Commit, error) {
	if ref == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to get HEAD: %w", err)
		}
		return repo.CommitObject(head.Hash())
	}

	var lastErr error
	for _, candidate := range []string{ref, "origin/" + ref} {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	return nil, fmt.Errorf("failed to resolve ref %q: %w", ref, lastErr)
}

// inPath reports whether name lies under dir. An empty dir matches all.
func inPath(name, dir string) bool {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return true
	}
	return strings.HasPrefix(name, dir+"/")
}

// Sync copies every supported file of the selected tree into dest. Files are
// flattened to their base names.
func Sync(opts Options, dest string, support docsource.SupportFunc) (*docsource.Result, error) {
	repo, err := openOrClone(opts.URL)
	if err != nil {
		return nil, err
	}

	commit, err := resolveCommit(repo, opts.Ref)
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	w, err := docsource.NewWriter(dest, support)
	if err != nil {
		return nil, err
	}

	err = tree.Files().ForEach(func(file *object.File) error {
		if !inPath(file.Name, opts.Path) || !w.Accept(file.Name) {
			return nil
		}

		slog.Debug("copying file from repository", "file", file.Name, "size", file.Size)

		r, err := file.Reader()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		defer r.Close()
		return w.Write(path.Clean(file.Name), r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}

	slog.Info("synced documents from repository",
		"url", opts.URL,
		"commit", commit.Hash.String()[:8],
		"written", len(w.Result.Written),
		"skipped", len(w.Result.Skipped))
	return &w.Result, nil
}
