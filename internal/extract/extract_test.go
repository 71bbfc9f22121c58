package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

func TestExtractorWritesFilesPreservingTree(t *testing.T) {
	tree := node.NewEmptyTree()
	root := tree.AddDrive("data", "Data").Root()
	sub, err := root.AddFolder("models")
	require.NoError(t, err)
	_, err = sub.AddFile("unit.whm", []byte("payload"), 0, binformat.Store)
	require.NoError(t, err)
	_, err = root.AddFile("readme.txt", []byte("hello"), 0, binformat.Store)
	require.NoError(t, err)

	dest := t.TempDir()
	ex := &Extractor{Tree: tree, DestRoot: dest, Workers: 2}

	result, err := ex.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	got, err := os.ReadFile(filepath.Join(dest, "data", "models", "unit.whm"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "data", "readme.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestExtractorCancellation(t *testing.T) {
	tree := node.NewEmptyTree()
	root := tree.AddDrive("data", "Data").Root()
	_, err := root.AddFile("a.txt", []byte("x"), 0, binformat.Store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &Extractor{Tree: tree, DestRoot: t.TempDir(), Workers: 1}
	_, err = ex.Run(ctx)
	require.Error(t, err)
}
