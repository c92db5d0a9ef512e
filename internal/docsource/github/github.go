// Package github downloads documents from a GitHub repository directory
// through the REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v77/github"

	"github.com/Yates-Labs/ragchat/internal/docsource"
)

var ErrInvalidRepository = errors.New("invalid repository reference")

// NewClient creates a GitHub API client. An empty token gives an
// unauthenticated client.
func NewClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// Options selects the repository directory to download.
type Options struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// ParseRepository accepts "owner/repo", an https URL or an SSH remote.
func ParseRepository(ref string) (owner, repo string, err error) {
	s := strings.TrimSpace(ref)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "git@")

	// Replace colon with slash for SSH URLs
	s = strings.Replace(s, ":", "/", 1)
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, ref)
	}
	return parts[0], parts[1], nil
}

// Sync downloads the supported files directly under opts.Path into dest.
// Subdirectories are not followed. A path that names a single file downloads
// just that file.
func Sync(ctx context.Context, client *github.Client, opts Options, dest string, support docsource.SupportFunc) (*docsource.Result, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("%w: owner and repo are required", ErrInvalidRepository)
	}

	var getOpts *github.RepositoryContentGetOptions
	if opts.Ref != "" {
		getOpts = &github.RepositoryContentGetOptions{Ref: opts.Ref}
	}

	dir := strings.Trim(opts.Path, "/")
	fileContent, dirContents, _, err := client.Repositories.GetContents(ctx, opts.Owner, opts.Repo, dir, getOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s/%s/%s: %w", opts.Owner, opts.Repo, dir, err)
	}
	if fileContent != nil {
		dirContents = []*github.RepositoryContent{fileContent}
	}

	w, err := docsource.NewWriter(dest, support)
	if err != nil {
		return nil, err
	}

	for _, entry := range dirContents {
		if entry.GetType() != "file" {
			slog.Debug("skipping non-file entry", "path", entry.GetPath(), "type", entry.GetType())
			continue
		}
		if !w.Accept(entry.GetPath()) {
			continue
		}
		if err := download(ctx, client, opts, entry.GetPath(), getOpts, w); err != nil {
			return nil, err
		}
	}

	slog.Info("synced documents from GitHub",
		"repo", opts.Owner+"/"+opts.Repo,
		"path", dir,
		"written", len(w.Result.Written),
		"skipped", len(w.Result.Skipped))
	return &w.Result, nil
}

func download(ctx context.Context, client *github.Client, opts Options, path string, getOpts *github.RepositoryContentGetOptions, w *docsource.Writer) error {
	rc, _, err := client.Repositories.DownloadContents(ctx, opts.Owner, opts.Repo, path, getOpts)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", path, err)
	}
	defer rc.Close()
	return w.Write(path, rc)
}
