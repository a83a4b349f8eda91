package kcenters

import (
	"errors"
	"fmt"
	"math"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

var (
	// ErrEmptyReduction means no rank holds any frame.
	ErrEmptyReduction = errors.New("kcenters: every local distance vector is empty")
	// ErrProtocol means a reduction produced a location no rank can own.
	ErrProtocol = errors.New("kcenters: reduction invariant violated")
)

// noIndex is the global index of an empty rank's contribution: it loses
// every tie, and its value of -Inf loses every comparison
const noIndex = math.MaxInt

// EncodeGlobalIndex flattens (rank, local) into one integer. local must be
// smaller than maxLen.
func EncodeGlobalIndex(rank, local, maxLen int) int {
	return local + rank*maxLen
}

// DecodeGlobalIndex is the inverse of EncodeGlobalIndex.
func DecodeGlobalIndex(global, maxLen int) (rank, local int) {
	return global / maxLen, global % maxLen
}

// Location is the result of a MaxLoc reduction: the frame holding the
// largest value in the group, and that value.
type Location struct {
	utils.Identity
	Value float64
}

// MaxLoc returns, on every rank, the location of the largest entry among
// the values held by all ranks. Ties go to the lowest rank, then to the
// lowest local index.
func MaxLoc(c comm.Communicator, values []float64) (Location, error) {
	maxLen, err := comm.AllreduceMaxInt(c, len(values))
	if err != nil {
		return Location{}, err
	}
	return maxLoc(c, values, nil, maxLen)
}

// maxLoc assumes maxLen is the largest len(values) in the group; entries
// flagged in skip never win
func maxLoc(c comm.Communicator, values []float64, skip []bool, maxLen int) (Location, error) {
	if maxLen == 0 {
		return Location{}, ErrEmptyReduction
	}
	if len(values) > maxLen {
		return Location{}, fmt.Errorf("%w: %d local values exceed the group maximum %d",
			ErrProtocol, len(values), maxLen)
	}

	local := comm.ValueIndex{Value: math.Inf(-1), Index: noIndex}
	if idx, val := localMax(values, skip); idx >= 0 {
		local = comm.ValueIndex{Value: val, Index: EncodeGlobalIndex(c.Rank(), idx, maxLen)}
	}

	global, err := comm.AllreduceMaxLoc(c, local)
	if err != nil {
		return Location{}, err
	}
	if global.Index == noIndex {
		return Location{}, ErrEmptyReduction
	}

	rank, idx := DecodeGlobalIndex(global.Index, maxLen)
	if rank < 0 || rank >= c.Size() {
		return Location{}, fmt.Errorf("%w: owner %d out of range [0, %d)", ErrProtocol, rank, c.Size())
	}
	return Location{Identity: utils.Identity{Rank: rank, Index: idx}, Value: global.Value}, nil
}

// localMax returns the first index holding the largest value, -1 when empty
func localMax(values []float64, skip []bool) (int, float64) {
	index := -1
	var maxVal float64

	for i, v := range values {
		if skip != nil && skip[i] {
			continue
		}
		if index < 0 || v > maxVal {
			maxVal = v
			index = i
		}
	}
	return index, maxVal
}
