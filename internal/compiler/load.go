package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadFile loads function definitions from a .cue or .hcl file.
func LoadFile(path string) ([]FunctionDef, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return LoadCUESource(path, src)
	case ".hcl":
		return LoadHCLFile(path)
	default:
		return nil, fmt.Errorf("unsupported function file %s: want .cue or .hcl", path)
	}
}

// LoadPath loads a single file, or every CUE and HCL function in a
// directory. The result is sorted by function name.
func LoadPath(path string) ([]FunctionDef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	var defs []FunctionDef
	cueFiles, err := filepath.Glob(filepath.Join(path, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(cueFiles) > 0 {
		cueDefs, err := LoadCUEDir(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, cueDefs...)
	}

	hclDefs, err := LoadHCLDir(path)
	if err != nil {
		return nil, err
	}
	defs = append(defs, hclDefs...)

	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}
