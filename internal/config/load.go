package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// LoadDaemonConfig decodes the daemon's own configuration file.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	var cfg DaemonConfig
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadManifests scans every directory in dirs (non-recursively, in lexical
// file order) for *.hcl files and decodes each as a ManifestFile. Decode
// failures across every file are aggregated and returned together so a
// daemon never starts against a partially-loaded graph; on any error the
// returned manifest slice is nil.
func LoadManifests(dirs []string) ([]TaskManifest, error) {
	var out []TaskManifest
	var errs *multierror.Error

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("config: reading %s: %w", dir, err))
			continue
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".hcl") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			var mf ManifestFile
			if err := hclsimple.DecodeFile(path, nil, &mf); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("config: decoding %s: %w", path, err))
				continue
			}
			out = append(out, mf.Tasks...)
		}
	}

	if errs.ErrorOrNil() != nil {
		return nil, errs.ErrorOrNil()
	}
	return out, nil
}
