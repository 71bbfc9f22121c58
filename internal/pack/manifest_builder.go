package pack

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

// BuildTree materializes a Manifest into a fresh, fully mutable
// node.Tree: every manifest file is read once into memory and its
// storage type resolved against its drive's ordered rules, so the
// Disassembler can walk Manifest-sourced and archive-sourced trees
// through the exact same node.Tree API.
func BuildTree(m *Manifest) (*node.Tree, error) {
	tree := node.NewEmptyTree()

	for _, md := range m.Drives {
		drive := tree.AddDrive(md.Alias, md.Name)
		if err := addDir(drive.Root(), md.Root, md); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func addDir(folder node.Folder, dir ManifestDir, md ManifestDrive) error {
	for _, sub := range dir.Dirs {
		child, err := folder.AddFolder(sub.Name)
		if err != nil {
			return err
		}
		if err := addDir(child, sub, md); err != nil {
			return err
		}
	}
	for _, f := range dir.Files {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		payload, err := readAllClose(rc)
		if err != nil {
			return err
		}

		storage := md.Default
		if f.Storage != nil {
			storage = *f.Storage
		} else {
			storage = resolveStorage(md.Rules, md.Default, f.Name, int64(len(payload)))
		}

		if _, err := folder.AddFile(f.Name, payload, uint32(f.Modified.Unix()), storage); err != nil {
			return err
		}
	}
	return nil
}

// resolveStorage applies §4.8's manifest storage-type resolution: the
// first rule whose size range contains the file and whose Windows-glob
// wildcard matches wins; otherwise the drive's configured default.
func resolveStorage(rules []StorageRule, def binformat.StorageType, path string, size int64) binformat.StorageType {
	for _, r := range rules {
		if !r.sizeMatches(size) {
			continue
		}
		ok, err := doublestar.Match(r.Wildcard, path)
		if err != nil || !ok {
			continue
		}
		return r.Storage
	}
	return def
}
