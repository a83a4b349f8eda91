package traj

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ReadIndices reads an atom index file: one non-negative integer per line.
func ReadIndices(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Int),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: index file %s: %v", ErrFormat, path, df.Err)
	}
	if df.Ncol() != 1 {
		return nil, fmt.Errorf("%w: index file %s has %d columns", ErrFormat, path, df.Ncol())
	}

	indices, err := df.Col(df.Names()[0]).Int()
	if err != nil {
		return nil, fmt.Errorf("%w: index file %s: %v", ErrFormat, path, err)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: index file %s is empty", ErrFormat, path)
	}
	for i, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("%w: index file %s line %d is negative", ErrFormat, path, i+1)
		}
	}
	return indices, nil
}

// CheckRange verifies every index addresses one of n atoms.
func CheckRange(indices []int, n int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: atom index %d out of range [0, %d)", ErrFormat, idx, n)
		}
	}
	return nil
}

// CheckDisjoint verifies no atom appears in both sets.
func CheckDisjoint(a, b []int) error {
	seen := make(map[int]bool, len(a))
	for _, idx := range a {
		seen[idx] = true
	}
	for _, idx := range b {
		if seen[idx] {
			return fmt.Errorf("%w: atom %d is in both index sets", ErrFormat, idx)
		}
	}
	return nil
}

// Union concatenates the index sets, in order.
func Union(sets ...[]int) []int {
	var out []int
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// ListFiles returns the files of dir with the given extension, sorted by
// name. Files in exclude are left out whatever the spelling of their path,
// so a topology kept next to its trajectories is not listed as one.
func ListFiles(dir, ext string, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(exclude))
	for _, path := range exclude {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		skip[abs] = true
	}

	ext = "." + strings.TrimPrefix(ext, ".")
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		path := filepath.Join(dir, e.Name())
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		if skip[abs] {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}
