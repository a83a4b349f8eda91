package kcenters

import (
	"fmt"
	"sort"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

/*------------------------------------------------- CENTER LISTING ---------------------------------------------------*/

// OwnedListings maps the centers owned by rank back to the task and
// in-task offset they were loaded from.
func OwnedListings(centers utils.Centers, rank int, p Partition) ([]utils.Listing, error) {
	var listings []utils.Listing

	for _, center := range centers.Owned(rank) {
		slot, offset, err := p.Locate(center.Index)
		if err != nil {
			return nil, fmt.Errorf("center %d: %w", center.Ordinal, err)
		}
		listings = append(listings, utils.Listing{
			Ordinal: center.Ordinal,
			Task:    p.Tasks[slot],
			File:    p.Files[slot],
			Offset:  offset,
		})
	}

	return listings, nil
}

// GatherListings collects every rank's listings on root, in selection
// order. Other ranks get nil.
func GatherListings(c comm.Communicator, root int, listings []utils.Listing) ([]utils.Listing, error) {
	parts, err := comm.GatherJSON(c, root, listings)
	if err != nil || c.Rank() != root {
		return nil, err
	}

	var all []utils.Listing
	for _, part := range parts {
		all = append(all, part...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Ordinal < all[j].Ordinal })

	for i, l := range all {
		if l.Ordinal != i {
			return nil, fmt.Errorf("%w: listing %d holds center %d", ErrProtocol, i, l.Ordinal)
		}
	}
	return all, nil
}

/*------------------------------------------------- FULL AGGREGATION -------------------------------------------------*/

// TaskResults splits the shard's vectors per task.
func TaskResults(s *Shard) []utils.TaskResult {
	p := s.Partition
	results := make([]utils.TaskResult, len(p.Tasks))

	for i, task := range p.Tasks {
		lo, hi := p.Bounds[i], p.Bounds[i+1]
		results[i] = utils.TaskResult{
			Task:        task,
			File:        p.Files[i],
			Assignments: append([]int(nil), s.Assignments[lo:hi]...),
			Distances:   append([]float64(nil), s.Distances[lo:hi]...),
		}
	}

	return results
}

// Matrix : aggregated result, one row per task in global task order
// --> rows shorter than Width are padded with utils.Padding
type Matrix struct {
	Files       []string
	Lengths     []int // frames of each task before padding
	Assignments [][]int
	Distances   [][]float64
	Width       int
}

// Aggregate gathers every rank's task results on root and restores the
// global task order, tasks having been handed out round-robin. Other
// ranks get nil.
func Aggregate(c comm.Communicator, root int, results []utils.TaskResult) (*Matrix, error) {
	parts, err := comm.GatherJSON(c, root, results)
	if err != nil || c.Rank() != root {
		return nil, err
	}

	var all []utils.TaskResult
	for _, part := range parts {
		all = append(all, part...)
	}
	return merge(all)
}

func merge(all []utils.TaskResult) (*Matrix, error) {
	sort.Slice(all, func(i, j int) bool { return all[i].Task < all[j].Task })

	m := new(Matrix)
	for i, r := range all {
		if r.Task != i {
			return nil, fmt.Errorf("%w: task %d missing or duplicated (found %d)", ErrProtocol, i, r.Task)
		}
		if len(r.Assignments) != len(r.Distances) {
			return nil, fmt.Errorf("%w: task %d has %d assignments and %d distances",
				ErrProtocol, r.Task, len(r.Assignments), len(r.Distances))
		}
		m.Width = max(m.Width, len(r.Assignments))
	}

	for _, r := range all {
		assignments := make([]int, m.Width)
		distances := make([]float64, m.Width)
		for j := 0; j < m.Width; j++ {
			if j < len(r.Assignments) {
				assignments[j] = r.Assignments[j]
				distances[j] = r.Distances[j]
			} else {
				assignments[j] = utils.Padding
				distances[j] = utils.Padding
			}
		}
		m.Files = append(m.Files, r.File)
		m.Lengths = append(m.Lengths, len(r.Assignments))
		m.Assignments = append(m.Assignments, assignments)
		m.Distances = append(m.Distances, distances)
	}
	return m, nil
}

/*------------------------------------------------- ASSIGNMENT -------------------------------------------------------*/

// Assign scores every local frame against each generator, in order; the
// shard ends up assigned to its closest generator.
func Assign(s *Shard, generators utils.Frames) error {
	for ordinal, g := range generators {
		fresh, err := s.Store.Score(g)
		if err != nil {
			return fmt.Errorf("generator %d scoring: %w", ordinal, err)
		}
		if _, err = s.Update(ordinal, fresh); err != nil {
			return err
		}
	}
	return nil
}

// Populations counts, over the whole group, the frames assigned to each of
// the k centers.
func Populations(c comm.Communicator, s *Shard, k int) ([]int, error) {
	counts := make([]int, k)
	for _, a := range s.Assignments {
		if a >= 0 && a < k {
			counts[a]++
		}
	}
	return comm.AllreduceSumInts(c, counts)
}
