package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Follower tails a JSONL journal file, delivering each appended event to
// a callback. Reporting tools use it to consume a live run's log without
// touching the simulation.
type Follower struct {
	path    string
	watcher *fsnotify.Watcher
	file    *os.File
	reader  *bufio.Reader
	partial []byte
}

// NewFollower opens the journal file and a filesystem watcher on it.
func NewFollower(path string) (*Follower, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		f.Close()
		watcher.Close()
		return nil, fmt.Errorf("watch journal: %w", err)
	}
	return &Follower{path: path, watcher: watcher, file: f, reader: bufio.NewReader(f)}, nil
}

// Run replays all existing events, then delivers new ones as the writer
// appends them, until the context is done.
func (f *Follower) Run(ctx context.Context, onEvent func(Event)) error {
	defer f.Close()
	if err := f.drain(onEvent); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			if err := f.drain(onEvent); err != nil {
				return err
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch journal: %w", err)
		}
	}
}

// drain reads complete lines until EOF, keeping any trailing partial
// line for the next write notification.
func (f *Follower) drain(onEvent func(Event)) error {
	for {
		line, err := f.reader.ReadBytes('\n')
		if len(line) > 0 && err == nil {
			full := append(f.partial, line...)
			f.partial = nil
			var e Event
			if uerr := json.Unmarshal(full, &e); uerr != nil {
				return fmt.Errorf("parse journal line: %w", uerr)
			}
			onEvent(e)
			continue
		}
		if err == io.EOF {
			f.partial = append(f.partial, line...)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
	}
}

// Close releases the watcher and file handle.
func (f *Follower) Close() error {
	f.watcher.Close()
	return f.file.Close()
}
