package node

import (
	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/sgapath"
)

// Folder is a handle into a Tree's folder arena.
type Folder struct {
	t   *Tree
	idx int
}

func (t *Tree) Folder(idx int) Folder { return Folder{t: t, idx: idx} }

func (f Folder) Index() int { return f.idx }

// Name is the folder's full path from its drive's root, as stored in
// the names blob (or assembled in memory for a mutable folder).
func (f Folder) Name() string { return f.t.folders[f.idx].path }

// Basename is the last path component.
func (f Folder) Basename() string {
	_, base := sgapath.Split(f.Name())
	return base
}

func (f Folder) State() NodeState { return f.t.folders[f.idx].state }

// ensureChildren computes the child folder/file maps on first access,
// per §4.5's "lazy folders compute child maps on first access" rule.
// Once computed the maps are cached on the record regardless of state,
// so repeated listing is O(1) after the first call. Map keys are
// case-folded (§4.3: "all comparisons and lookups inside the FS are
// case-folded") while folderOrder/fileOrder keep the on-disk basenames
// so Basename()/Name() still report original casing.
func (f Folder) ensureChildren() {
	rec := &f.t.folders[f.idx]
	if rec.childFolders != nil {
		return
	}
	rec.childFolders = make(map[string]int, rec.subfolderStop-rec.subfolderStart)
	rec.childFiles = make(map[string]int, rec.lastFile-rec.firstFile)

	for i := rec.subfolderStart; i < rec.subfolderStop; i++ {
		base := Folder{t: f.t, idx: i}.Basename()
		key := sgapath.FixCase(base)
		if _, dup := rec.childFolders[key]; !dup {
			rec.folderOrder = append(rec.folderOrder, base)
		}
		rec.childFolders[key] = i
	}
	for i := rec.firstFile; i < rec.lastFile; i++ {
		base := f.t.files[i].name
		key := sgapath.FixCase(base)
		if _, dup := rec.childFiles[key]; !dup {
			rec.fileOrder = append(rec.fileOrder, base)
		}
		rec.childFiles[key] = i
	}
}

// ListFolders returns the child folders in insertion (for mutable) or
// on-disk (for lazy) order.
func (f Folder) ListFolders() []Folder {
	f.ensureChildren()
	rec := &f.t.folders[f.idx]
	out := make([]Folder, 0, len(rec.folderOrder))
	for _, name := range rec.folderOrder {
		out = append(out, Folder{t: f.t, idx: rec.childFolders[sgapath.FixCase(name)]})
	}
	return out
}

// ListFiles returns the child files in insertion (for mutable) or
// on-disk (for lazy) order.
func (f Folder) ListFiles() []File {
	f.ensureChildren()
	rec := &f.t.folders[f.idx]
	out := make([]File, 0, len(rec.fileOrder))
	for _, name := range rec.fileOrder {
		out = append(out, File{t: f.t, idx: rec.childFiles[sgapath.FixCase(name)]})
	}
	return out
}

// GetChildFolder looks up a direct child folder by basename, folded
// per §4.3's case-insensitive lookup rule.
func (f Folder) GetChildFolder(basename string) (Folder, bool) {
	f.ensureChildren()
	idx, ok := f.t.folders[f.idx].childFolders[sgapath.FixCase(basename)]
	if !ok {
		return Folder{}, false
	}
	return Folder{t: f.t, idx: idx}, true
}

// GetChildFile looks up a direct child file by basename, folded per
// §4.3's case-insensitive lookup rule.
func (f Folder) GetChildFile(basename string) (File, bool) {
	f.ensureChildren()
	idx, ok := f.t.folders[f.idx].childFiles[sgapath.FixCase(basename)]
	if !ok {
		return File{}, false
	}
	return File{t: f.t, idx: idx}, true
}

// Promote converts this folder to mutable, copying its child index
// references (not payload bytes) into owned maps. Promoting a folder
// does not promote its children; they stay lazy until individually
// touched, per §3's "siblings stay lazy until touched" ownership rule.
func (f Folder) Promote() {
	f.ensureChildren()
	rec := &f.t.folders[f.idx]
	rec.state = StateMutable
}

// PromoteRecursive promotes this folder and every folder and file
// beneath it to mutable, per §4.12's "a save from DirtyInPlace first
// forces promote_recursive() on all drives" rule: once any part of the
// tree has been saved-in-place-mutated, the serializer must walk a
// fully materialized tree rather than a mix of lazy byte windows and
// mutated buffers, since it may be overwriting the very bytes a
// not-yet-promoted sibling would otherwise still lazily read from.
func (f Folder) PromoteRecursive() error {
	f.Promote()
	for _, sub := range f.ListFolders() {
		if err := sub.PromoteRecursive(); err != nil {
			return err
		}
	}
	for _, file := range f.ListFiles() {
		if err := file.Promote(); err != nil {
			return err
		}
	}
	return nil
}

// AddFolder inserts a new empty mutable child folder named basename.
// Promotes f first if it is still lazy.
func (f Folder) AddFolder(basename string) (Folder, error) {
	f.Promote()
	rec := &f.t.folders[f.idx]
	key := sgapath.FixCase(basename)
	if _, exists := rec.childFolders[key]; exists {
		return Folder{}, ErrDirectoryExists
	}
	if _, exists := rec.childFiles[key]; exists {
		return Folder{}, ErrFileExists
	}

	child := folderRec{
		state:        StateMutable,
		path:         sgapath.Join(f.Name(), basename),
		childFolders: map[string]int{},
		childFiles:   map[string]int{},
	}
	idx := len(f.t.folders)
	f.t.folders = append(f.t.folders, child)

	rec.childFolders[key] = idx
	rec.folderOrder = append(rec.folderOrder, basename)
	f.t.MarkDirty()
	return Folder{t: f.t, idx: idx}, nil
}

// AddFile inserts a new mutable child file named basename with the
// given initial payload.
func (f Folder) AddFile(basename string, payload []byte, modified uint32, storage binformat.StorageType) (File, error) {
	f.Promote()
	rec := &f.t.folders[f.idx]
	key := sgapath.FixCase(basename)
	if _, exists := rec.childFiles[key]; exists {
		return File{}, ErrFileExists
	}
	if _, exists := rec.childFolders[key]; exists {
		return File{}, ErrDirectoryExists
	}

	child := fileRec{
		state:       StateMutable,
		name:        basename,
		storageType: storage,
		modified:    modified,
		payload:     payload,
		decompSize:  int64(len(payload)),
	}
	child.crc32 = recalculateCRC(payload)

	idx := len(f.t.files)
	f.t.files = append(f.t.files, child)

	rec.childFiles[key] = idx
	rec.fileOrder = append(rec.fileOrder, basename)
	f.t.MarkDirty()
	return File{t: f.t, idx: idx}, nil
}

// Remove deletes a direct child (file or folder) by basename, folded
// per §4.3's case-insensitive lookup rule. Removing a non-empty folder
// requires recursive=true.
func (f Folder) Remove(basename string, recursive bool) error {
	f.Promote()
	rec := &f.t.folders[f.idx]
	key := sgapath.FixCase(basename)

	if idx, ok := rec.childFiles[key]; ok {
		delete(rec.childFiles, key)
		rec.fileOrder = removeFolded(rec.fileOrder, key)
		_ = idx
		f.t.MarkDirty()
		return nil
	}
	if idx, ok := rec.childFolders[key]; ok {
		child := Folder{t: f.t, idx: idx}
		if !child.Empty() && !recursive {
			return ErrDirectoryNotEmpty
		}
		delete(rec.childFolders, key)
		rec.folderOrder = removeFolded(rec.folderOrder, key)
		f.t.MarkDirty()
		return nil
	}
	return ErrResourceNotFound
}

// Empty reports whether the folder has no children.
func (f Folder) Empty() bool {
	f.ensureChildren()
	rec := &f.t.folders[f.idx]
	return len(rec.childFolders) == 0 && len(rec.childFiles) == 0
}

// removeFolded removes the element of s whose case-folded form equals
// key, which must already be folded.
func removeFolded(s []string, key string) []string {
	for i, x := range s {
		if sgapath.FixCase(x) == key {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
