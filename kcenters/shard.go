package kcenters

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// ErrNumeric wraps invalid distances coming from the distance kernel.
var ErrNumeric = errors.New("kcenters: invalid distance")

// Store gives the engine access to the frames a rank owns.
type Store interface {
	// Len is the number of local frames.
	Len() int
	// Payload returns the aligned coordinates of local frame i, ready to
	// be broadcast as a center.
	Payload(i int) (utils.Frame, error)
	// Score returns the distance of every local frame to ref.
	Score(ref utils.Frame) ([]float64, error)
}

// RoundRobin returns the tasks out of n a rank holds when task i goes to
// rank i mod size.
func RoundRobin(n, rank, size int) []int {
	var tasks []int
	for i := rank; i < n; i += size {
		tasks = append(tasks, i)
	}
	return tasks
}

// Partition records which tasks a rank's frames came from: local frames
// are the concatenation of the frames of Tasks, in order.
type Partition struct {
	Tasks  []int
	Files  []string
	Bounds []int // Bounds[i] is the first local index of Tasks[i]; one extra entry closes the last task
}

// Add appends a task holding frames local frames.
func (p *Partition) Add(task int, file string, frames int) {
	if len(p.Bounds) == 0 {
		p.Bounds = []int{0}
	}
	p.Tasks = append(p.Tasks, task)
	p.Files = append(p.Files, file)
	p.Bounds = append(p.Bounds, p.Bounds[len(p.Bounds)-1]+frames)
}

// Len is the total number of local frames.
func (p Partition) Len() int {
	if len(p.Bounds) == 0 {
		return 0
	}
	return p.Bounds[len(p.Bounds)-1]
}

// Locate maps a local frame index to the slot of its task in the
// partition and its offset inside the task.
func (p Partition) Locate(local int) (slot, offset int, err error) {
	if local < 0 || local >= p.Len() {
		return 0, 0, fmt.Errorf("%w: local index %d out of range [0, %d)", ErrProtocol, local, p.Len())
	}
	// first bound strictly greater than local, minus one
	slot = sort.Search(len(p.Bounds), func(i int) bool { return p.Bounds[i] > local }) - 1
	return slot, local - p.Bounds[slot], nil
}

// Shard is the local state of a rank: its frames and the running
// bookkeeping of the selection.
type Shard struct {
	Store       Store
	Partition   Partition
	Distances   []float64 // distance to the closest center so far
	Assignments []int     // ordinal of the closest center so far, -1 for none

	chosen []bool // local frames already selected as centers
}

func NewShard(store Store, partition Partition) (*Shard, error) {
	n := store.Len()
	if partition.Len() != n {
		return nil, fmt.Errorf("kcenters: partition covers %d frames, store holds %d", partition.Len(), n)
	}

	s := &Shard{
		Store:       store,
		Partition:   partition,
		Distances:   make([]float64, n),
		Assignments: make([]int, n),
		chosen:      make([]bool, n),
	}
	for i := 0; i < n; i++ {
		s.Distances[i] = math.Inf(1)
		s.Assignments[i] = -1
	}
	return s, nil
}

// Update records fresh distances to the center with the given ordinal:
// every frame strictly closer to it than to its current center moves to it.
// It returns how many frames moved.
func (s *Shard) Update(ordinal int, fresh []float64) (int, error) {
	if len(fresh) != len(s.Distances) {
		return 0, fmt.Errorf("kcenters: kernel returned %d distances for %d frames", len(fresh), len(s.Distances))
	}
	for i, d := range fresh {
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return 0, fmt.Errorf("%w: frame %d has distance %v to center %d", ErrNumeric, i, d, ordinal)
		}
	}

	moved := 0
	for i, d := range fresh {
		if d < s.Distances[i] {
			s.Distances[i] = d
			s.Assignments[i] = ordinal
			moved++
		}
	}
	return moved, nil
}

// markCenter pins a local frame selected as center: its closest center is
// itself and it can never be selected again
func (s *Shard) markCenter(local, ordinal int) {
	s.Distances[local] = 0
	s.Assignments[local] = ordinal
	s.chosen[local] = true
}
