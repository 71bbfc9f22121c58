package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

type fakeDriveSource struct {
	drives      [][4]int // first folder, last folder, first file, last file
	folderCount int
	fileCount   int
}

func (s *fakeDriveSource) DriveCount() int { return len(s.drives) }
func (s *fakeDriveSource) RawDrive(i int) binformat.Drive {
	d := make([]byte, binformat.DriveSize)
	rec := binformat.Drive(d)
	rec.SetFolderRange(uint16(s.drives[i][0]), uint16(s.drives[i][1]))
	rec.SetFileRange(uint16(s.drives[i][2]), uint16(s.drives[i][3]))
	return rec
}
func (s *fakeDriveSource) FolderCount() int { return s.folderCount }
func (s *fakeDriveSource) FileCount() int   { return s.fileCount }

func TestCheckCoveragePassesOnExactTiling(t *testing.T) {
	src := &fakeDriveSource{
		drives:      [][4]int{{0, 2, 0, 3}, {2, 5, 3, 3}},
		folderCount: 5,
		fileCount:   3,
	}
	require.Empty(t, CheckCoverage(src))
}

func TestCheckCoverageFlagsGapAndOverlap(t *testing.T) {
	src := &fakeDriveSource{
		// folders: [0,2) and [2,4) leave slot 4 uncovered out of 5.
		// files: [0,3) and [1,3) overlap on slot 1,2.
		drives:      [][4]int{{0, 2, 0, 3}, {2, 4, 1, 3}},
		folderCount: 5,
		fileCount:   3,
	}
	violations := CheckCoverage(src)
	require.NotEmpty(t, violations)

	var hasGap, hasOverlap bool
	for _, v := range violations {
		if v.Kind == "gap" && v.Space == "folder" {
			hasGap = true
		}
		if v.Kind == "overlap" && v.Space == "file" {
			hasOverlap = true
		}
	}
	require.True(t, hasGap)
	require.True(t, hasOverlap)
}

func TestParallelVerifyCRCPreservesOrder(t *testing.T) {
	tree := node.NewEmptyTree()
	root := tree.AddDrive("data", "Data").Root()

	var files []node.File
	var paths []string
	for i := 0; i < 8; i++ {
		name := string(rune('a' + i))
		f, err := root.AddFile(name+".txt", []byte(name), 0, binformat.Store)
		require.NoError(t, err)
		files = append(files, f)
		paths = append(paths, name)
	}

	results, err := ParallelVerifyCRC(context.Background(), files, paths, 4)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, paths[i], r.Path)
	}
}
