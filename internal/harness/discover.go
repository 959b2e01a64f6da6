package harness

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// FindScenarios walks dir for .yaml and .yml scenario files. If filter is
// non-empty it is matched against each file's base name without extension
// using filepath.Match syntax. Results are in lexical walk order.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}
