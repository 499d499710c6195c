package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"
)

// debounce coalesces the event bursts editors produce on save
const debounce = 150 * time.Millisecond

// watch rechecks the root files whenever one of them changes on disk.
// Events are matched by checksum, so touch without modification and
// editor save dances that rewrite identical content do not trigger a
// recheck.
func (c *checkCmd) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories rather than files: most editors replace the
	// file on save, which drops a file-level watch.
	watched := make(map[string]bool)
	roots := make(map[string]bool)
	for _, path := range c.Files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		roots[abs] = true
		dir := filepath.Dir(abs)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	sums := make(map[string]uint64)
	recheck := func() {
		if _, err := c.checkOnce(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		for abs := range roots {
			if data, err := os.ReadFile(abs); err == nil {
				sums[abs] = xxh3.Hash(data)
			}
		}
	}
	recheck()
	fmt.Fprintf(os.Stderr, "watching %d file(s), Ctrl+C to stop\n", len(roots))

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !roots[abs] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			if c.anyChanged(roots, sums) {
				recheck()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

// anyChanged reports whether any root file's content differs from the
// checksum recorded at the previous check.
func (c *checkCmd) anyChanged(roots map[string]bool, sums map[string]uint64) bool {
	for abs := range roots {
		data, err := os.ReadFile(abs)
		if err != nil {
			// deleted or mid-rename; count as changed so the next
			// check reports the load failure
			return true
		}
		if xxh3.Hash(data) != sums[abs] {
			return true
		}
	}
	return false
}
