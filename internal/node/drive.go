package node

// Drive is a handle into a Tree's drive arena.
type Drive struct {
	t   *Tree
	idx int
}

func (t *Tree) Drive(idx int) Drive { return Drive{t: t, idx: idx} }

func (d Drive) Index() int { return d.idx }

func (d Drive) Alias() string { return d.t.drives[d.idx].alias }
func (d Drive) Name() string  { return d.t.drives[d.idx].name }

// Root returns the drive's root folder.
func (d Drive) Root() Folder {
	return Folder{t: d.t, idx: d.t.drives[d.idx].root}
}

// AddDrive creates a new drive with an empty mutable root folder and
// returns its handle. It always appends a new drive and does not check
// for an existing alias; duplicate-alias handling lives in the facade,
// which keeps the alias bookkeeping.
func (t *Tree) AddDrive(alias, name string) Drive {
	root := folderRec{
		state:        StateMutable,
		path:         "",
		childFolders: map[string]int{},
		childFiles:   map[string]int{},
	}
	rootIdx := len(t.folders)
	t.folders = append(t.folders, root)

	idx := len(t.drives)
	t.drives = append(t.drives, driveRec{alias: alias, name: name, root: rootIdx})
	return Drive{t: t, idx: idx}
}

// Drives returns every drive in declaration order.
func (t *Tree) Drives() []Drive {
	out := make([]Drive, len(t.drives))
	for i := range t.drives {
		out[i] = Drive{t: t, idx: i}
	}
	return out
}
