// Package traj loads trajectories and topologies from CSV files and
// provides the geometry the clustering needs: superposition, RMSD kernels
// and per-frame features.
//
// A topology file has a header `name,x,y,z` and one row per atom; its
// coordinates are the reference structure frames are aligned onto. A
// trajectory file has no header and one row per frame, holding x,y,z of
// every topology atom in order.
package traj

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// ErrFormat reports a malformed input file.
var ErrFormat = errors.New("traj: malformed input")

// Topology : atoms of the simulated system
// --> atom names, in file order
// --> reference structure
type Topology struct {
	Names     []string
	Reference utils.Frame
}

func (top *Topology) Atoms() int { return len(top.Names) }

// LoadTopology reads a topology CSV file.
func LoadTopology(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.WithTypes(map[string]series.Type{
			"name": series.String,
			"x":    series.Float,
			"y":    series.Float,
			"z":    series.Float,
		}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: topology %s: %v", ErrFormat, path, df.Err)
	}

	names := df.Col("name")
	if names.Err != nil {
		return nil, fmt.Errorf("%w: topology %s has no name column", ErrFormat, path)
	}
	top := &Topology{Names: names.Records(), Reference: make(utils.Frame, df.Nrow())}
	for axis, col := range []string{"x", "y", "z"} {
		s := df.Col(col)
		if s.Err != nil {
			return nil, fmt.Errorf("%w: topology %s has no %s column", ErrFormat, path, col)
		}
		for i, v := range s.Float() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: topology %s atom %d has %s = %v", ErrFormat, path, i, col, v)
			}
			top.Reference[i][axis] = v
		}
	}
	return top, nil
}

// Trajectory : frames read from one file
type Trajectory struct {
	File   string
	Frames utils.Frames
}

func (t *Trajectory) Len() int { return len(t.Frames) }

// Load reads every stride-th frame of a trajectory file, keeping the
// atoms of subset in the given order (every atom when subset is empty).
// The same arguments always give the same frames in the same order.
func Load(path string, top *Topology, stride int, subset []int) (*Trajectory, error) {
	if stride < 1 {
		return nil, fmt.Errorf("traj: stride must be positive, got %d", stride)
	}
	if err := CheckRange(subset, top.Atoms()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := &Trajectory{File: path}
	if len(bytes.TrimSpace(data)) == 0 {
		return t, nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, df.Err)
	}
	if df.Ncol() != 3*top.Atoms() {
		return nil, fmt.Errorf("%w: %s has %d columns, topology needs %d",
			ErrFormat, path, df.Ncol(), 3*top.Atoms())
	}

	columns := make([][]float64, df.Ncol())
	for j, name := range df.Names() {
		columns[j] = df.Col(name).Float()
	}

	atoms := subset
	if len(atoms) == 0 {
		atoms = make([]int, top.Atoms())
		for i := range atoms {
			atoms[i] = i
		}
	}

	for row := 0; row < df.Nrow(); row += stride {
		frame := make(utils.Frame, len(atoms))
		for i, atom := range atoms {
			for axis := 0; axis < 3; axis++ {
				v := columns[3*atom+axis][row]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("%w: %s frame %d atom %d is not a number", ErrFormat, path, row, atom)
				}
				frame[i][axis] = v
			}
		}
		t.Frames = append(t.Frames, frame)
	}
	return t, nil
}

// Subset renumbers atom indices into positions inside a frame loaded
// with the atoms of loaded.
func Subset(loaded, atoms []int) ([]int, error) {
	if len(loaded) == 0 {
		return atoms, nil
	}

	position := make(map[int]int, len(loaded))
	for i, atom := range loaded {
		position[atom] = i
	}
	out := make([]int, len(atoms))
	for i, atom := range atoms {
		p, ok := position[atom]
		if !ok {
			return nil, fmt.Errorf("traj: atom %d was not loaded", atom)
		}
		out[i] = p
	}
	return out, nil
}
