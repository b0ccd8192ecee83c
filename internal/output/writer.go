package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names under the output directory.
const (
	IndexFile = "index.json"
	StatsFile = "stats.json"
	FlagsFile = "flags.json"
)

// WriteAll publishes the three artifacts into dir, creating it if needed.
// Files are written via a temp file and rename so a crashed run never
// leaves a truncated index behind.
func WriteAll(dir string, idx Index, stats Stats, flags FlagsIndex) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	for name, v := range map[string]any{
		IndexFile: idx,
		StatsFile: stats,
		FlagsFile: flags,
	} {
		if err := writeJSON(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	return nil
}
