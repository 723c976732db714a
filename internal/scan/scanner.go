package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type FileInfo struct {
	Path  string
	Mtime int64
	Size  int64
}

// Scan walks each root (a directory or a single file) and returns the
// transcript candidates it finds, sorted by path. Missing roots are skipped.
func Scan(roots ...string) ([]FileInfo, error) {
	seen := make(map[string]struct{})
	var files []FileInfo

	for _, root := range roots {
		if root == "" {
			continue
		}
		found, err := scanRoot(root)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, fi := range found {
			if _, dup := seen[fi.Path]; dup {
				continue
			}
			seen[fi.Path] = struct{}{}
			files = append(files, fi)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func scanRoot(root string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsTranscript(path) {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		files = append(files, FileInfo{
			Path:  abs,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		return nil
	})
	return files, err
}

// IsTranscript reports whether path looks like an exported chat log.
func IsTranscript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}
