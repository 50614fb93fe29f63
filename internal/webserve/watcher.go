// SPDX-License-Identifier: MIT

package webserve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/talosproj/talos/internal/report"
)

const debounceDuration = 500 * time.Millisecond

// watchResults watches the results root and every cohort directory under
// it, rebuilding the index when report files change. Watches are not
// recursive, so cohort directories are registered individually and new
// ones are picked up as they appear. The returned channel closes once the
// watch loop has shut down.
func (s *Server) watchResults(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("webserve: create watcher: %w", err)
	}

	root := filepath.Clean(s.cfg.ResultsRoot)
	if err := watcher.Add(root); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("webserve: watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("webserve: read results root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("could not watch cohort directory")
		}
	}

	done := make(chan struct{})
	go s.watchLoop(ctx, watcher, root, done)
	return done, nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, root string, done chan<- struct{}) {
	defer close(done)

	var debounceTimer *time.Timer
	schedule := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounceDuration, s.rebuildIndex)
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			if err := watcher.Close(); err != nil {
				s.logger.Warn().Err(err).Msg("error closing results watcher")
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Atomic writes land under a dot-prefixed temp name
			// before the rename to the final one.
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						s.logger.Warn().Err(err).Str("dir", event.Name).Msg("could not watch new cohort directory")
					}
					s.logger.Info().Str("dir", event.Name).Msg("watching new cohort directory")
					schedule()
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Root-level events are the index page and its temp
			// files, written by the rebuild itself.
			if filepath.Dir(event.Name) == root {
				continue
			}
			schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("results watcher error")
		}
	}
}

func (s *Server) rebuildIndex() {
	start := time.Now()
	err := report.RenderIndex(s.cfg.ResultsRoot)
	recordIndexRebuild(time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Msg("index rebuild failed")
	}
}
