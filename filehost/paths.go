package filehost

import (
	"path/filepath"
	"strconv"
)

// PathProvider answers the directory queries of the namespace.
type PathProvider interface {
	WorkingDirectory() (string, error)
	WorkshopDirectory() (string, error)
}

// dirPaths derives the workshop directory from the working directory:
// <cwd>/../../workshop/content/<app-id>.
type dirPaths struct {
	cwd   string
	appID uint32
}

func (p *dirPaths) WorkingDirectory() (string, error) {
	return p.cwd, nil
}

func (p *dirPaths) WorkshopDirectory() (string, error) {
	base := filepath.Dir(filepath.Dir(p.cwd))
	return filepath.Join(base, "workshop", "content", strconv.FormatUint(uint64(p.appID), 10)), nil
}
