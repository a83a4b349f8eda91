package util

import (
	"errors"
	"fmt"
	"log"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/kcenters"
	"github.com/cxhernandez/clusterLP-MPI/traj"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// Inputs : everything a rank reads before touching the trajectories
// --> protein atoms drive the alignment, ligand atoms the distances
// --> frames keep the protein atoms, then the ligand atoms
type Inputs struct {
	Topology  *traj.Topology
	Protein   []int
	Ligand    []int
	Reference utils.Frame
	Files     []string

	atoms      []int
	proteinPos []int
	ligandPos  []int
}

// ErrGroupSize means some rank would be left without trajectories.
var ErrGroupSize = errors.New("more processes than trajectories")

// LoadInputs reads and checks the index files, the topology and the
// trajectory list.
func LoadInputs(pi, li, top, dir, ext string) (*Inputs, error) {
	var (
		in  = new(Inputs)
		err error
	)

	if in.Protein, err = traj.ReadIndices(pi); err != nil {
		return nil, err
	}
	if in.Ligand, err = traj.ReadIndices(li); err != nil {
		return nil, err
	}
	if err = traj.CheckDisjoint(in.Protein, in.Ligand); err != nil {
		return nil, err
	}
	if in.Topology, err = traj.LoadTopology(top); err != nil {
		return nil, err
	}
	for _, indices := range [][]int{in.Protein, in.Ligand} {
		if err = traj.CheckRange(indices, in.Topology.Atoms()); err != nil {
			return nil, err
		}
	}

	if in.Files, err = traj.ListFiles(dir, ext, top); err != nil {
		return nil, err
	}
	if len(in.Files) == 0 {
		return nil, fmt.Errorf("no '.%s' trajectory in '%s'", ext, dir)
	}

	in.atoms = traj.Union(in.Protein, in.Ligand)
	if in.proteinPos, err = traj.Subset(in.atoms, in.Protein); err != nil {
		return nil, err
	}
	if in.ligandPos, err = traj.Subset(in.atoms, in.Ligand); err != nil {
		return nil, err
	}
	in.Reference = in.Topology.Reference.Select(in.atoms)
	return in, nil
}

// ProteinPos and LigandPos locate the atom sets inside loaded frames.
func (in *Inputs) ProteinPos() []int { return in.proteinPos }
func (in *Inputs) LigandPos() []int  { return in.ligandPos }

// LoadAligned loads a trajectory superposed onto the reference protein.
func (in *Inputs) LoadAligned(file string, stride int) (*traj.Trajectory, error) {
	t, err := traj.Load(file, in.Topology, stride, in.atoms)
	if err != nil {
		return nil, err
	}
	if err = traj.Align(t, in.Reference, in.proteinPos); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadShard loads the trajectories of this rank, file i going to rank
// i mod size.
func (in *Inputs) LoadShard(c comm.Communicator, stride int, mode traj.Mode) (*kcenters.Shard, error) {
	if c.Size() > len(in.Files) {
		return nil, fmt.Errorf("%w: %d processes for %d trajectories", ErrGroupSize, c.Size(), len(in.Files))
	}

	var (
		p      kcenters.Partition
		frames utils.Frames
	)
	for _, task := range kcenters.RoundRobin(len(in.Files), c.Rank(), c.Size()) {
		t, err := in.LoadAligned(in.Files[task], stride)
		if err != nil {
			return nil, err
		}
		frames = append(frames, t.Frames...)
		p.Add(task, in.Files[task], t.Len())
	}
	if FlagDebug {
		log.Printf("--> rank %d: %d frames from %d trajectories", c.Rank(), len(frames), len(p.Tasks))
	}

	store := &traj.Store{
		Frames:      frames,
		Kernel:      traj.NewKernel(mode, in.ligandPos),
		Reference:   in.Reference,
		AlignSubset: in.proteinPos,
	}
	return kcenters.NewShard(store, p)
}
