// Package kcenters selects cluster centers with the greedy farthest-point
// algorithm over frames sharded across the ranks of a process group.
//
// Every round is a synchronous step of the whole group: a MaxLoc reduction
// finds the frame farthest from the centers chosen so far, its owner
// broadcasts the frame, and every rank rescores its own frames against it.
// Since the reduction is deterministic and each broadcast is applied before
// the next round starts, all ranks hold the same ordered list of centers.
package kcenters

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// Debug enables per-round logging on the coordinator.
var Debug = false

// ErrBudget reports an unusable termination budget.
var ErrBudget = errors.New("kcenters: invalid budget")

// Budget : termination criterion, a center count or a cutoff
// --> K: number of centers to select
// --> Cutoff: stop once every frame is closer than Cutoff to some center; a
// cutoff of 0 makes every frame a center
type Budget struct {
	K      int
	Cutoff float64

	byCutoff bool
}

// CutoffBudget stops the selection once every frame is closer than cutoff
// to a center.
func CutoffBudget(cutoff float64) Budget {
	return Budget{Cutoff: cutoff, byCutoff: true}
}

// ParseBudget builds the budget of the -k and -cutoff flags, where a k of 0
// or a negative cutoff means the flag was not given.
func ParseBudget(k int, cutoff float64) (Budget, error) {
	var b Budget
	switch {
	case k != 0 && cutoff >= 0:
		return b, fmt.Errorf("%w: center count and cutoff are mutually exclusive", ErrBudget)
	case k != 0:
		b = Budget{K: k}
	case cutoff >= 0:
		b = CutoffBudget(cutoff)
	default:
		return b, fmt.Errorf("%w: one of center count or cutoff is required", ErrBudget)
	}
	return b, b.Validate()
}

func (b Budget) Validate() error {
	switch {
	case b.byCutoff && (b.K != 0 || b.Cutoff < 0 || math.IsNaN(b.Cutoff)):
		return fmt.Errorf("%w: cutoff %g with center count %d", ErrBudget, b.Cutoff, b.K)
	case !b.byCutoff && b.Cutoff != 0:
		return fmt.Errorf("%w: cutoff set outside CutoffBudget", ErrBudget)
	case !b.byCutoff && b.K <= 0:
		return fmt.Errorf("%w: center count %d is not positive", ErrBudget, b.K)
	}
	return nil
}

func (b Budget) String() string {
	if b.byCutoff {
		return fmt.Sprintf("cutoff=%g", b.Cutoff)
	}
	return fmt.Sprintf("k=%d", b.K)
}

// Engine drives the selection for one rank.
type Engine struct {
	comm          comm.Communicator
	shard         *Shard
	isCoordinator bool

	maxLen int // largest shard in the group, fixed after partitioning
	total  int // frames in the group

	Centers utils.Centers
	History []float64 // farthest distance found at each round, including the terminating one
}

func NewEngine(c comm.Communicator, shard *Shard, isCoordinator bool) *Engine {
	return &Engine{comm: c, shard: shard, isCoordinator: isCoordinator, maxLen: -1}
}

// Run selects centers until the budget is met and returns them in
// selection order.
func (e *Engine) Run(budget Budget) (utils.Centers, error) {
	if err := e.init(budget); err != nil {
		return nil, err
	}

	for {
		done, err := e.Step(budget)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	if e.isCoordinator {
		s := utils.Summarize(e.shard.Distances)
		log.Printf("--> selected %d centers (%s) over %d frames; local distances min %.4f, mean %.4f, max %.4f",
			len(e.Centers), budget, e.total, s.Min, s.Mean, s.Max)
	}
	return e.Centers, nil
}

// init fixes the group-wide sizes; lengths never change after partitioning
func (e *Engine) init(budget Budget) error {
	if err := budget.Validate(); err != nil {
		return err
	}
	if e.maxLen >= 0 {
		return nil
	}

	var err error
	if e.maxLen, err = comm.AllreduceMaxInt(e.comm, len(e.shard.Distances)); err != nil {
		return err
	}
	if e.total, err = comm.AllreduceSumInt(e.comm, len(e.shard.Distances)); err != nil {
		return err
	}
	if e.total == 0 {
		return ErrEmptyReduction
	}
	if budget.K > e.total {
		return fmt.Errorf("%w: %d centers requested from %d frames", ErrBudget, budget.K, e.total)
	}
	return nil
}

// Step runs one round of the selection and reports whether the budget is
// met. A round that finds every frame within the cutoff selects nothing.
func (e *Engine) Step(budget Budget) (bool, error) {
	if err := e.init(budget); err != nil {
		return false, err
	}
	if budget.K > 0 && len(e.Centers) >= budget.K {
		return true, nil
	}
	// every frame is a center
	if len(e.Centers) == e.total {
		return true, nil
	}

	loc, err := maxLoc(e.comm, e.shard.Distances, e.shard.chosen, e.maxLen)
	if err != nil {
		return false, err
	}
	e.History = append(e.History, loc.Value)

	// every remaining frame is already covered
	if budget.byCutoff && loc.Value < budget.Cutoff {
		return true, nil
	}

	if err = e.selectCenter(loc); err != nil {
		return false, err
	}
	return budget.K > 0 && len(e.Centers) == budget.K, nil
}

func (e *Engine) selectCenter(loc Location) error {
	ordinal := len(e.Centers)

	// the owner extracts the payload
	var payload []byte
	if loc.Rank == e.comm.Rank() {
		frame, err := e.shard.Store.Payload(loc.Index)
		if err != nil {
			return fmt.Errorf("center %d payload: %w", ordinal, err)
		}
		payload, err = json.Marshal(&utils.CenterPayload{Ordinal: ordinal, Owner: loc.Identity, Frame: frame})
		if err != nil {
			return fmt.Errorf("center %d marshalling: %w", ordinal, err)
		}
	}

	payload, err := comm.Bcast(e.comm, loc.Rank, payload)
	if err != nil {
		return err
	}
	var center utils.CenterPayload
	if err = json.Unmarshal(payload, &center); err != nil {
		return fmt.Errorf("center %d unmarshalling: %w", ordinal, err)
	}
	if center.Ordinal != ordinal || center.Owner != loc.Identity {
		return fmt.Errorf("%w: broadcast center %d %v, expected %d %v",
			ErrProtocol, center.Ordinal, center.Owner, ordinal, loc.Identity)
	}

	// rescore
	fresh, err := e.shard.Store.Score(center.Frame)
	if err != nil {
		return fmt.Errorf("center %d scoring: %w", ordinal, err)
	}
	moved, err := e.shard.Update(ordinal, fresh)
	if err != nil {
		return err
	}
	if loc.Rank == e.comm.Rank() {
		e.shard.markCenter(loc.Index, ordinal)
	}

	e.Centers = append(e.Centers, utils.Center{Identity: loc.Identity, Ordinal: ordinal, Distance: loc.Value})
	if Debug && e.isCoordinator {
		log.Printf("--> center #%d at %v, farthest distance %.4f, %d local frames reassigned",
			ordinal, loc.Identity, loc.Value, moved)
	}
	return nil
}
