// Package extract implements bulk extraction of an archive's files
// onto a host filesystem: a serial directory-creation pass followed by
// a bounded worker pool that decompresses and writes files
// concurrently, cooperatively cancellable via context.
package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

// Task is one file slated for extraction: the lazy/mutable node handle
// and the host-filesystem path it should be written to.
type Task struct {
	File     node.File
	DestPath string
}

// FileStat is one file's extraction timing and size, collected by a
// worker and folded into the aggregate Result on return, mirroring the
// accumulate-then-return-stats shape of a batch build scheduler's
// result channel.
type FileStat struct {
	Path         string
	BytesWritten int64
	Elapsed      time.Duration
	Err          error
}

// Result aggregates a whole extraction run's outcome.
type Result struct {
	Files        []FileStat
	TotalBytes   int64
	TotalElapsed time.Duration
}

// Extractor writes a Tree's files under DestRoot, organized by
// drive alias and the on-disk folder path.
type Extractor struct {
	Tree     *node.Tree
	DestRoot string
	Workers  int
}

// Plan walks every drive in e.Tree and returns the extraction task
// list plus the set of directories that must exist before any file is
// written.
func (e *Extractor) Plan() ([]Task, []string, error) {
	var tasks []Task
	dirSet := map[string]struct{}{}

	for _, drive := range e.Tree.Drives() {
		driveRoot := filepath.Join(e.DestRoot, sanitizeComponent(drive.Alias()))
		if err := walkFolder(drive.Root(), driveRoot, &tasks, dirSet); err != nil {
			return nil, nil, err
		}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	return tasks, dirs, nil
}

func walkFolder(f node.Folder, hostDir string, tasks *[]Task, dirSet map[string]struct{}) error {
	dirSet[hostDir] = struct{}{}

	for _, sub := range f.ListFolders() {
		if err := walkFolder(sub, filepath.Join(hostDir, sanitizeComponent(sub.Basename())), tasks, dirSet); err != nil {
			return err
		}
	}
	for _, file := range f.ListFiles() {
		*tasks = append(*tasks, Task{
			File:     file,
			DestPath: filepath.Join(hostDir, sanitizeComponent(file.Name())),
		})
	}
	return nil
}

// sanitizeComponent swaps the archive's backslash convention for the
// host path separator; components are otherwise used verbatim.
func sanitizeComponent(s string) string {
	return strings.ReplaceAll(s, "\\", string(filepath.Separator))
}

// Run pre-creates every destination directory serially, then
// decompresses and writes every file through an errgroup-bounded
// worker pool, polling ctx for cancellation between files.
func (e *Extractor) Run(ctx context.Context) (Result, error) {
	tasks, dirs, err := e.Plan()
	if err != nil {
		return Result{}, err
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	stats := make([]FileStat, len(tasks))
	var mu sync.Mutex
	var totalBytes int64

	g, gctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}

	for i := range tasks {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stat, err := extractOne(tasks[i])
			stats[i] = stat
			if err != nil {
				return err
			}
			mu.Lock()
			totalBytes += stat.BytesWritten
			mu.Unlock()
			return nil
		})
	}

	runErr := g.Wait()

	var totalElapsed time.Duration
	for _, s := range stats {
		totalElapsed += s.Elapsed
	}

	return Result{Files: stats, TotalBytes: totalBytes, TotalElapsed: totalElapsed}, runErr
}

func extractOne(task Task) (FileStat, error) {
	start := time.Now()

	rc, err := task.File.Open()
	if err != nil {
		return FileStat{Path: task.DestPath, Err: err}, err
	}
	defer rc.Close()

	out, err := os.OpenFile(task.DestPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return FileStat{Path: task.DestPath, Err: err}, err
	}
	defer out.Close()

	n, err := io.Copy(out, rc)
	stat := FileStat{Path: task.DestPath, BytesWritten: n, Elapsed: time.Since(start), Err: err}
	return stat, err
}
