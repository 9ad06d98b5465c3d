package filehost

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// DefaultWorkshopAppID is the app id used for the workshop content directory.
const DefaultWorkshopAppID = 301650

// Config configures a Host.
type Config struct {
	// Filesystem backs every opened stream and make-directory.
	// If nil, an OS filesystem bound to Root is used.
	// A custom filesystem receives guest paths unchanged unless Root is set.
	Filesystem billy.Filesystem

	// Paths answers the working and workshop directory queries.
	// If nil, they are derived from WorkingDirectory and WorkshopAppID.
	Paths PathProvider

	// Root is the host directory the filesystem is rooted at. When set,
	// relative guest paths are resolved from the working directory and a
	// path leaving Root is rejected. With the default OS filesystem it
	// defaults to the nearest directory holding both the working and the
	// workshop directory.
	Root string

	// WorkingDirectory overrides the process working directory.
	WorkingDirectory string

	// WorkshopAppID selects the workshop content directory.
	// Zero means DefaultWorkshopAppID.
	WorkshopAppID uint32

	// Debug enables handle validation before every file operation.
	// Invalid or closed handles then fail with a precondition violation.
	Debug bool

	// RawDump makes dump return the file bytes unchanged instead of
	// reassembling lines with "\n".
	RawDump bool
}

// DefaultConfig returns a release configuration on the OS filesystem.
func DefaultConfig() *Config {
	return &Config{
		WorkshopAppID: DefaultWorkshopAppID,
	}
}

// withDefaults returns a copy of c with every unset field filled in.
func (c *Config) withDefaults() (Config, error) {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.WorkshopAppID == 0 {
		out.WorkshopAppID = DefaultWorkshopAppID
	}
	if out.WorkingDirectory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return out, err
		}
		out.WorkingDirectory = wd
	}
	wd, err := filepath.Abs(out.WorkingDirectory)
	if err != nil {
		return out, err
	}
	out.WorkingDirectory = wd
	if out.Paths == nil {
		out.Paths = &dirPaths{cwd: out.WorkingDirectory, appID: out.WorkshopAppID}
	}
	if out.Filesystem == nil && out.Root == "" {
		out.Root = defaultRoot(out.WorkingDirectory, out.Paths)
	}
	if out.Root != "" {
		if out.Root, err = filepath.Abs(out.Root); err != nil {
			return out, err
		}
	}
	if out.Filesystem == nil {
		out.Filesystem = osfs.New(out.Root, osfs.WithBoundOS())
	}
	return out, nil
}

// defaultRoot returns the nearest common ancestor of the working and the
// workshop directory, or the working directory when the workshop directory
// is unknown.
func defaultRoot(wd string, paths PathProvider) string {
	root := wd
	workshop, err := paths.WorkshopDirectory()
	if err != nil || workshop == "" {
		return root
	}
	if workshop, err = filepath.Abs(workshop); err != nil {
		return root
	}
	for {
		if _, ok := relativeTo(root, workshop); ok {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			return root
		}
		root = parent
	}
}

// relativeTo returns path relative to root, and false when path is not
// inside root. Both must be absolute.
func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
