package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"panel-filter/internal/logger"
)

// listImages returns image file names in directory, sorted by name. The
// order is the processing order and the basis for sequential renaming.
// maxFiles > 0 keeps only the first maxFiles entries.
func listImages(directory string, maxFiles int) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("[listImages]: reading directory %s: %w", directory, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isImageFile(name) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	if maxFiles > 0 && len(files) > maxFiles {
		logger.DebugLog("[listImages]: truncating %d files to %d", len(files), maxFiles)
		files = files[:maxFiles]
	}
	return files, nil
}

func isImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
