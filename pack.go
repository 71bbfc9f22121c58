package sga

import (
	"context"
	"errors"
	"io"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/pack"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/verify"
)

var errNoDirectReaderAt = errors.New("direct-mode Pack requires out to also implement io.ReaderAt")

// Pack materializes m into an archive image and writes it to out. When
// safe is true the whole image is staged in memory first (internal/pack's
// WriteSafe path) so a failure never touches out; when false, writes
// go straight through out (WriteDirect), per §4.9.
func Pack(m *pack.Manifest, out io.WriteSeeker, safe bool) error {
	tree, err := pack.BuildTree(m)
	if err != nil {
		return wrapErr(IoError, "", err)
	}

	name := ""
	if len(m.Drives) > 0 {
		name = m.Drives[0].Name
	}
	s := &pack.Serializer{Format: binformat.FormatDOW, ArchiveName: name}

	if safe {
		var sink writeSeekerSink
		sink.w = out
		if err := s.WriteSafe(&sink, tree); err != nil {
			return wrapErr(IoError, "", err)
		}
		return nil
	}

	ra, ok := out.(io.ReaderAt)
	if !ok {
		return wrapErr(IoError, "", errNoDirectReaderAt)
	}
	if err := s.WriteDirect(out, ra, tree); err != nil {
		return wrapErr(IoError, "", err)
	}
	return nil
}

// writeSeekerSink adapts an io.WriteSeeker to the plain io.Writer
// WriteSafe wants for its final copy-out step.
type writeSeekerSink struct{ w io.WriteSeeker }

func (s *writeSeekerSink) Write(p []byte) (int, error) { return s.w.Write(p) }

// Repack parses the archive held in in and re-serializes its tree,
// unchanged, to out, always in safe mode: a repack
// operates on the same bytes it may also be reading from, so staging
// in memory first is the only sound option.
func Repack(in io.ReaderAt, inSize int64, out io.WriteSeeker) error {
	a, err := OpenReaderAt(in, inSize)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Save(out)
}

// VerifyOptions controls how deep Verify checks go.
type VerifyOptions struct {
	CheckHeaderMD5 bool
	CheckFileMD5   bool
	CheckFileCRC   bool
	CheckCoverage  bool
	Workers        int  // parallel CRC workers; 0 uses a sane default
	StopOnError    bool // abandon remaining checks after the first failure
}

// DefaultVerifyOptions enables every check with a modest worker count.
func DefaultVerifyOptions() VerifyOptions {
	return VerifyOptions{
		CheckHeaderMD5: true,
		CheckFileMD5:   true,
		CheckFileCRC:   true,
		CheckCoverage:  true,
		Workers:        4,
	}
}

// FileVerifyResult is one file's pass/fail outcome within a VerifyReport.
type FileVerifyResult struct {
	Path string
	Pass bool
	Err  error
}

// VerifyReport carries the digest and coverage outcomes plus a flat,
// per-file pass/fail list (each file keyed by its folder path, without
// the drive alias; results are not grouped per drive), for an external
// caller to implement --quiet, --tree, or -e/--stop-on-error reporting
// without this package knowing about flags or exit codes.
type VerifyReport struct {
	HeaderMD5Pass bool
	HeaderMD5Err  error
	FileMD5Pass   bool
	FileMD5Err    error
	CoverageOK    bool
	Coverage      []verify.CoverageViolation
	Files         []FileVerifyResult
}

// Verify runs the configured checks against an already-open archive
// and returns a structured report.
func Verify(a *Archive, opts VerifyOptions) (VerifyReport, error) {
	var report VerifyReport
	a.syncDirty()

	if opts.CheckHeaderMD5 {
		if cached, ok := a.cachedHeaderMD5(); ok {
			report.HeaderMD5Pass = cached
		} else {
			err := verify.VerifyHeaderMD5(a.src, a.tocSize, a.header.TOCMD5())
			report.HeaderMD5Pass = err == nil
			report.HeaderMD5Err = err
			a.setHeaderMD5Cache(report.HeaderMD5Pass)
		}
		if !report.HeaderMD5Pass && opts.StopOnError {
			return report, nil
		}
	}

	if opts.CheckFileMD5 {
		if cached, ok := a.cachedFileMD5(); ok {
			report.FileMD5Pass = cached
		} else {
			err := verify.VerifyFileMD5(a.src, a.header.FileMD5())
			report.FileMD5Pass = err == nil
			report.FileMD5Err = err
			a.setFileMD5Cache(report.FileMD5Pass)
		}
		if !report.FileMD5Pass && opts.StopOnError {
			return report, nil
		}
	}

	if opts.CheckCoverage {
		violations := verify.CheckCoverage(a)
		report.Coverage = violations
		report.CoverageOK = len(violations) == 0
		if !report.CoverageOK && opts.StopOnError {
			return report, nil
		}
	}

	if opts.CheckFileCRC {
		files, paths := collectAllFiles(a.Tree())
		workers := opts.Workers
		if workers <= 0 {
			workers = 4
		}
		// ParallelVerifyCRC's workers never return a non-nil error for
		// a failed comparison (the mismatch lands in CRCResult.Err
		// instead), so a non-nil err here only ever means the context
		// was cancelled before every file was checked.
		results, err := verify.ParallelVerifyCRC(context.Background(), files, paths, workers)
		report.Files = make([]FileVerifyResult, len(results))
		for i, r := range results {
			report.Files[i] = FileVerifyResult{Path: r.Path, Pass: r.Err == nil, Err: r.Err}
		}
		if err != nil {
			return report, wrapErr(IoError, "", err)
		}
	}

	return report, nil
}

// collectAllFiles walks every drive in tree depth-first and returns
// each file alongside its full backslash-separated path, in the same
// traversal order the disassembler itself uses.
func collectAllFiles(tree *node.Tree) ([]node.File, []string) {
	var files []node.File
	var paths []string

	var walk func(f node.Folder)
	walk = func(f node.Folder) {
		for _, file := range f.ListFiles() {
			files = append(files, file)
			if f.Name() == "" {
				paths = append(paths, file.Name())
			} else {
				paths = append(paths, f.Name()+`\`+file.Name())
			}
		}
		for _, sub := range f.ListFolders() {
			walk(sub)
		}
	}

	for _, drive := range tree.Drives() {
		walk(drive.Root())
	}
	return files, paths
}
