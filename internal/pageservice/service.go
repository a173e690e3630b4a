// Package pageservice coordinates the sandbox, validator, graph engine,
// and version-control backend behind the tool surface.
package pageservice

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/recursa-hq/recursa/internal/apperr"
	"github.com/recursa-hq/recursa/internal/checksum"
	"github.com/recursa-hq/recursa/internal/graph"
	"github.com/recursa-hq/recursa/internal/ignore"
	"github.com/recursa-hq/recursa/internal/models"
	"github.com/recursa-hq/recursa/internal/outline"
	"github.com/recursa-hq/recursa/internal/storage"
	"github.com/recursa-hq/recursa/internal/vcs"
	"github.com/recursa-hq/recursa/internal/walker"
)

// Service bundles the bound configuration (store, engine, backend) so
// each operation is a method instead of a closure over globals.
type Service struct {
	store       storage.Provider
	engine      *graph.Engine
	git         *vcs.Git
	checkpoints *vcs.Manager
}

// NewService creates a page service over the given collaborators.
func NewService(store storage.Provider, git *vcs.Git) *Service {
	return &Service{
		store:       store,
		engine:      graph.NewEngine(store),
		git:         git,
		checkpoints: vcs.NewManager(git),
	}
}

// ResolvePath validates rel against the sandbox and returns the
// canonical absolute path.
func (s *Service) ResolvePath(_ context.Context, rel string) (string, error) {
	return s.store.Resolve(rel)
}

// GetPage reads a page and enriches it with derived link data.
func (s *Service) GetPage(_ context.Context, rel string) (*models.Page, error) {
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &models.Page{
		Path:     rel,
		Content:  string(data),
		Checksum: checksum.Sum(data),
		Links:    graph.ExtractLinks(string(data)),
	}, nil
}

// WritePage creates or overwrites a page. Outline pages (.md) must pass
// the structural validator first; an invalid document blocks the write
// entirely, so partial writes never happen.
func (s *Service) WritePage(_ context.Context, rel string, content string) error {
	if err := validateOutline(rel, content); err != nil {
		return err
	}
	return s.store.Write(rel, []byte(content))
}

// UpdatePage replaces the first occurrence of oldContent in the page
// with newContent. When oldContent is not found verbatim the update
// fails with apperr.ErrConflict and the file is left unmodified.
func (s *Service) UpdatePage(_ context.Context, rel, oldContent, newContent string) error {
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	current := string(data)
	if !strings.Contains(current, oldContent) {
		return apperr.ErrConflict
	}
	updated := strings.Replace(current, oldContent, newContent, 1)
	if err := validateOutline(rel, updated); err != nil {
		return err
	}
	return s.store.Write(rel, []byte(updated))
}

// DeletePage removes a page.
func (s *Service) DeletePage(_ context.Context, rel string) error {
	if err := s.store.Delete(rel); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return nil
}

// RenamePage moves a page to a new relative path.
func (s *Service) RenamePage(_ context.Context, oldRel, newRel string) error {
	if err := s.store.Move(oldRel, newRel); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return nil
}

// PageExists reports whether a file or directory exists at rel.
func (s *Service) PageExists(_ context.Context, rel string) (bool, error) {
	return s.store.Exists(rel)
}

// CreateDir creates a directory under the graph root.
func (s *Service) CreateDir(_ context.Context, rel string) error {
	return s.store.CreateDir(rel)
}

// ListFiles returns the non-ignored files under dir (relative to the
// graph root), recursively, as slash-separated relative paths. The
// ignore rules are recompiled from disk on every call.
func (s *Service) ListFiles(_ context.Context, dir string) ([]string, error) {
	if _, err := s.store.Resolve(dir); err != nil {
		return nil, err
	}
	matcher, err := ignore.Load(s.store.Root())
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(path.Clean("/"+dir), "/")
	out := []string{}
	var walkErr error
	for rel, err := range walker.Walk(s.store.Root(), matcher) {
		if err != nil {
			walkErr = err
			continue
		}
		if prefix == "" || rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			out = append(out, rel)
		}
	}
	if len(out) == 0 && walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

// OutgoingLinks returns the wikilink targets of a page.
func (s *Service) OutgoingLinks(_ context.Context, rel string) ([]string, error) {
	links, err := s.engine.OutgoingLinks(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return links, nil
}

// Backlinks returns the pages that reference the target page.
func (s *Service) Backlinks(_ context.Context, rel string) ([]string, error) {
	return s.engine.Backlinks(rel)
}

// Search performs a case-insensitive substring search across the graph.
func (s *Service) Search(_ context.Context, query string) ([]string, error) {
	return s.engine.Search(query)
}

// Query evaluates a structured graph query.
func (s *Service) Query(_ context.Context, queryString string) ([]models.QueryResult, error) {
	return s.engine.Query(queryString)
}

// SaveCheckpoint pushes the working-tree state onto the undo stack.
func (s *Service) SaveCheckpoint(ctx context.Context) (bool, error) {
	return s.checkpoints.Save(ctx)
}

// RevertToLastCheckpoint restores the most recent checkpoint.
func (s *Service) RevertToLastCheckpoint(ctx context.Context) (bool, error) {
	return s.checkpoints.Revert(ctx)
}

// DiscardChanges resets the working tree to the last commit.
func (s *Service) DiscardChanges(ctx context.Context) (bool, error) {
	return s.checkpoints.Discard(ctx)
}

// Diff returns the diff between two refs, optionally scoped to a path.
func (s *Service) Diff(ctx context.Context, from, to, rel string) (string, error) {
	return s.git.Diff(ctx, from, to, rel)
}

// History returns recent commits, optionally scoped to a path.
func (s *Service) History(ctx context.Context, limit int, rel string) ([]models.Commit, error) {
	return s.git.Log(ctx, limit, rel)
}

// ChangedFiles lists paths changed between refs or in the working tree.
func (s *Service) ChangedFiles(ctx context.Context, from, to string) ([]string, error) {
	return s.git.ChangedFiles(ctx, from, to)
}

// Commit records all working-tree changes as an explicit commit.
func (s *Service) Commit(ctx context.Context, message string) (string, error) {
	return s.git.Commit(ctx, message)
}

// validateOutline runs the structural validator for outline pages.
// Non-outline files (attachments, configs) are stored as-is.
func validateOutline(rel, content string) error {
	if !strings.HasSuffix(rel, ".md") {
		return nil
	}
	res := outline.Validate(content)
	if !res.Valid {
		return &outline.ValidationError{Errors: res.Errors}
	}
	return nil
}
