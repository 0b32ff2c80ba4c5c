// Package runfile writes runs changed by CLI commands back to the runs
// directory they were seeded from.
package runfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Path returns the file in dir that holds run id. When no file holds it
// yet, the path is <dir>/<id>.yaml.
func Path(dir, id string) (string, error) {
	if dir == "" {
		return "", errors.NewConfigError("runs_dir", "no runs directory configured", nil)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.WrapIO("read", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isRunFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		run, err := fillrun.LoadFile(path)
		if err != nil {
			// Seeding already rejected broken files.
			continue
		}
		if run.ID == id {
			return path, nil
		}
	}
	return filepath.Join(dir, id+".yaml"), nil
}

// Save writes run to its file in dir and returns the path written.
func Save(dir string, run *fillrun.FillRun) (string, error) {
	if run == nil {
		return "", errors.NewValidationError("run", nil, "cannot be nil")
	}
	path, err := Path(dir, run.ID)
	if err != nil {
		return "", err
	}
	if err := fillrun.SaveFile(path, run); err != nil {
		return "", err
	}
	return path, nil
}

func isRunFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
