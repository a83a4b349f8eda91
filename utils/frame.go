package utils

import (
	"fmt"
	"math"
)

// Coords : position of one atom
type Coords [3]float64

// Frame : represents one conformation
// --> coordinates of the atoms selected at load time, in topology order
type Frame []Coords
type Frames []Frame

// Identity : globally unique identity of a frame
// --> rank of the process that owns it
// --> index of the frame inside that process' shard
type Identity struct {
	Rank  int
	Index int
}

// NoIdentity marks an assignment that has not been made yet
var NoIdentity = Identity{Rank: -1, Index: -1}

func (id Identity) String() string {
	return fmt.Sprintf("(%d, %d)", id.Rank, id.Index)
}

// GetDistance returns the euclidean distance between two atoms
func GetDistance(p1 Coords, p2 Coords) float64 {
	var dist float64

	for i := 0; i < len(p1); i++ {
		dist += math.Pow(p1[i]-p2[i], 2)
	}

	return math.Sqrt(dist)
}

// Centroid returns the geometric center of the atoms in subset (all atoms if subset is empty)
func (f Frame) Centroid(subset []int) Coords {
	var c Coords
	if len(subset) == 0 {
		for _, atom := range f {
			for i := range c {
				c[i] += atom[i]
			}
		}
		for i := range c {
			c[i] /= float64(len(f))
		}
		return c
	}

	for _, idx := range subset {
		for i := range c {
			c[i] += f[idx][i]
		}
	}
	for i := range c {
		c[i] /= float64(len(subset))
	}
	return c
}

// Select returns a copy of the frame restricted to the given atoms
func (f Frame) Select(subset []int) Frame {
	if len(subset) == 0 {
		return f.Copy()
	}

	sel := make(Frame, len(subset))
	for i, idx := range subset {
		sel[i] = f[idx]
	}
	return sel
}

func (f Frame) Copy() Frame {
	c := make(Frame, len(f))
	copy(c, f)
	return c
}
