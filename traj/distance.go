package traj

import (
	"fmt"
	"math"

	"github.com/TuftsBCB/structure"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// Mode selects how two frames are compared.
type Mode int

const (
	// PoseRMSD compares coordinates as they are, for frames already
	// aligned onto a common reference: a ligand pose keeps its placement
	// relative to the protein.
	PoseRMSD Mode = iota
	// SuperposedRMSD superposes the two frames before comparing them.
	SuperposedRMSD
)

var modeNames = map[string]Mode{
	"pose":       PoseRMSD,
	"superposed": SuperposedRMSD,
}

func ParseMode(name string) (Mode, error) {
	if m, ok := modeNames[name]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("traj: unknown distance mode %q", name)
}

func (m Mode) String() string {
	for name, mode := range modeNames {
		if mode == m {
			return name
		}
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Kernel computes distances over a fixed atom subset. A Kernel reuses
// its scratch memory and is not safe for concurrent use.
type Kernel struct {
	Mode   Mode
	Subset []int // positions inside the loaded frames, every atom when empty

	mem     structure.Memory
	memSize int
	a, b    []structure.Coords
}

func NewKernel(mode Mode, subset []int) *Kernel {
	return &Kernel{Mode: mode, Subset: subset, memSize: -1}
}

// Distance returns the RMSD between a and b over the kernel's atoms. It is
// symmetric in its arguments.
func (k *Kernel) Distance(a, b utils.Frame) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: frames of %d and %d atoms", ErrFormat, len(a), len(b))
	}
	if err := CheckRange(k.Subset, len(a)); err != nil {
		return 0, err
	}

	var d float64
	switch k.Mode {
	case PoseRMSD:
		d = poseRMSD(a, b, k.Subset)
	case SuperposedRMSD:
		d = k.superposedRMSD(a, b)
	default:
		return 0, fmt.Errorf("traj: unknown distance mode %v", k.Mode)
	}
	if math.IsNaN(d) || d < 0 {
		return 0, fmt.Errorf("traj: invalid RMSD %v", d)
	}
	return d, nil
}

// Score returns the distance of every frame to ref.
func (k *Kernel) Score(frames utils.Frames, ref utils.Frame) ([]float64, error) {
	out := make([]float64, len(frames))
	for i, f := range frames {
		d, err := k.Distance(f, ref)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func poseRMSD(a, b utils.Frame, subset []int) float64 {
	var sum float64
	n := 0
	visit := func(i int) {
		for axis := 0; axis < 3; axis++ {
			d := a[i][axis] - b[i][axis]
			sum += d * d
		}
		n++
	}

	if len(subset) == 0 {
		for i := range a {
			visit(i)
		}
	} else {
		for _, i := range subset {
			visit(i)
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func (k *Kernel) superposedRMSD(a, b utils.Frame) float64 {
	k.a = toStructure(k.a[:0], a, k.Subset)
	k.b = toStructure(k.b[:0], b, k.Subset)
	if len(k.a) == 0 {
		return 0
	}
	if k.memSize != len(k.a) {
		k.mem = structure.NewMemory(len(k.a))
		k.memSize = len(k.a)
	}
	return structure.RMSDMem(k.mem, k.a, k.b)
}

func toStructure(dst []structure.Coords, f utils.Frame, subset []int) []structure.Coords {
	if len(subset) == 0 {
		for _, c := range f {
			dst = append(dst, structure.Coords{X: c[0], Y: c[1], Z: c[2]})
		}
		return dst
	}
	for _, i := range subset {
		dst = append(dst, structure.Coords{X: f[i][0], Y: f[i][1], Z: f[i][2]})
	}
	return dst
}

/*------------------------------------------------- STORE ------------------------------------------------------------*/

// Store holds the frames a rank owns for the center selection.
// --> Payload re-aligns the frame onto Reference when it is set
type Store struct {
	Frames      utils.Frames
	Kernel      *Kernel
	Reference   utils.Frame
	AlignSubset []int
}

func (s *Store) Len() int { return len(s.Frames) }

func (s *Store) Payload(i int) (utils.Frame, error) {
	if i < 0 || i >= len(s.Frames) {
		return nil, fmt.Errorf("traj: no local frame %d", i)
	}
	f := s.Frames[i].Copy()
	if s.Reference != nil {
		if err := AlignFrame(f, s.Reference, s.AlignSubset); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *Store) Score(ref utils.Frame) ([]float64, error) {
	return s.Kernel.Score(s.Frames, ref)
}
