package fillrun

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/fillmap/internal/atomicfile"
	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
)

// LoadFile reads a run from a YAML or JSON file, chosen by extension.
func LoadFile(path string) (*FillRun, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("run file", path)
		}
		return nil, errors.WrapIO("read", path, err)
	}

	var run FillRun
	format := formatOf(path)
	if format == "json" {
		err = json.Unmarshal(data, &run)
	} else {
		err = yaml.Unmarshal(data, &run)
	}
	if err != nil {
		return nil, errors.WrapParse(format, path, err)
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveFile writes a run atomically as YAML or JSON, chosen by extension.
func SaveFile(path string, run *FillRun) error {
	if run == nil {
		return errors.NewValidationError("run", nil, "cannot be nil")
	}

	var (
		data []byte
		err  error
	)
	if formatOf(path) == "json" {
		data, err = json.MarshalIndent(run, "", "  ")
	} else {
		data, err = yaml.Marshal(run)
	}
	if err != nil {
		return errors.WrapResource("encode", "run", run.ID, err)
	}
	if err := atomicfile.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// LoadDir reads every *.yaml, *.yml and *.json run in dir.
func LoadDir(dir string) ([]*FillRun, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapIO("read", dir, err)
	}
	var runs []*FillRun
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		run, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}
