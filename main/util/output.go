package util

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cxhernandez/clusterLP-MPI/kcenters"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// WriteMatrices writes the aggregated assignments and distances to
// <prefix>_assignments.csv and <prefix>_distances.csv.
func WriteMatrices(prefix string, m *kcenters.Matrix) error {
	assignments := prefix + "_assignments.csv"
	err := WriteFile(assignments, func(w io.Writer) error {
		return utils.WriteIntMatrix(w, m.Files, m.Assignments)
	})
	if err != nil {
		return err
	}

	distances := prefix + "_distances.csv"
	err = WriteFile(distances, func(w io.Writer) error {
		return utils.WriteFloatMatrix(w, m.Files, m.Distances)
	})
	if err != nil {
		return err
	}

	log.Printf("--> %d x %d matrices written to %s and %s", len(m.Files), m.Width, assignments, distances)
	return nil
}
