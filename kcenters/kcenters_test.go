package kcenters

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// pointStore holds one-atom frames scored by plain euclidean distance
type pointStore utils.Frames

func (s pointStore) Len() int { return len(s) }

func (s pointStore) Payload(i int) (utils.Frame, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("no frame %d", i)
	}
	return s[i].Copy(), nil
}

func (s pointStore) Score(ref utils.Frame) ([]float64, error) {
	out := make([]float64, len(s))
	for i, f := range s {
		out[i] = utils.GetDistance(f[0], ref[0])
	}
	return out, nil
}

// newTestShard loads the tasks a rank receives round-robin
func newTestShard(tasks [][]utils.Coords, rank, size int) (*Shard, error) {
	var (
		p      Partition
		frames pointStore
	)
	for _, task := range RoundRobin(len(tasks), rank, size) {
		for _, c := range tasks[task] {
			frames = append(frames, utils.Frame{c})
		}
		p.Add(task, fmt.Sprintf("trj%d.csv", task), len(tasks[task]))
	}
	return NewShard(frames, p)
}

func runGroup(t *testing.T, size int, fn func(c comm.Communicator) error) {
	t.Helper()
	if err := comm.RunLocal(size, fn); err != nil {
		t.Fatal(err)
	}
}

func randomTasks(seed int64, lengths ...int) [][]utils.Coords {
	rng := rand.New(rand.NewSource(seed))
	tasks := make([][]utils.Coords, len(lengths))
	for i, n := range lengths {
		for j := 0; j < n; j++ {
			tasks[i] = append(tasks[i], utils.Coords{rng.Float64() * 100, rng.Float64() * 100, rng.Float64() * 100})
		}
	}
	return tasks
}

func TestGlobalIndexRoundTrip(t *testing.T) {
	for maxLen := 1; maxLen <= 5; maxLen++ {
		for rank := 0; rank < 4; rank++ {
			for local := 0; local < maxLen; local++ {
				global := EncodeGlobalIndex(rank, local, maxLen)
				r, l := DecodeGlobalIndex(global, maxLen)
				if r != rank || l != local {
					t.Fatalf("maxLen %d: (%d, %d) -> %d -> (%d, %d)", maxLen, rank, local, global, r, l)
				}
			}
		}
	}
}

func TestMaxLoc(t *testing.T) {
	tests := []struct {
		values [][]float64
		want   Location
	}{
		{
			[][]float64{{5, 2, 9}, {1}, {}, {3, 3}},
			Location{utils.Identity{Rank: 0, Index: 2}, 9},
		},
		{
			[][]float64{{1, 7}, {7, 0}},
			Location{utils.Identity{Rank: 0, Index: 1}, 7},
		},
		{
			[][]float64{{1}, {3, 7, 7}, {7}},
			Location{utils.Identity{Rank: 1, Index: 1}, 7},
		},
		{
			[][]float64{{}, {}, {2}},
			Location{utils.Identity{Rank: 2, Index: 0}, 2},
		},
		{
			[][]float64{{math.Inf(1), math.Inf(1)}, {math.Inf(1)}},
			Location{utils.Identity{Rank: 0, Index: 0}, math.Inf(1)},
		},
	}
	for _, test := range tests {
		got := make([]Location, len(test.values))
		runGroup(t, len(test.values), func(c comm.Communicator) error {
			loc, err := MaxLoc(c, test.values[c.Rank()])
			got[c.Rank()] = loc
			return err
		})
		for rank, loc := range got {
			if loc != test.want {
				t.Fatalf("%v: rank %d got %+v, want %+v", test.values, rank, loc, test.want)
			}
		}
	}
}

func TestMaxLocAllEmpty(t *testing.T) {
	const size = 3
	errs := make([]error, size)
	runGroup(t, size, func(c comm.Communicator) error {
		_, errs[c.Rank()] = MaxLoc(c, nil)
		return nil
	})
	for rank, err := range errs {
		if !errors.Is(err, ErrEmptyReduction) {
			t.Fatalf("rank %d: got %v, want %v", rank, err, ErrEmptyReduction)
		}
	}
}

func TestPartitionLocate(t *testing.T) {
	var p Partition
	p.Add(0, "a", 3)
	p.Add(3, "b", 0)
	p.Add(6, "c", 2)

	tests := []struct {
		local, slot, offset int
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 2, 0},
		{4, 2, 1},
	}
	for _, test := range tests {
		slot, offset, err := p.Locate(test.local)
		if err != nil {
			t.Fatal(err)
		}
		if slot != test.slot || offset != test.offset {
			t.Fatalf("Locate(%d) = (%d, %d), want (%d, %d)", test.local, slot, offset, test.slot, test.offset)
		}
	}
	if _, _, err := p.Locate(5); !errors.Is(err, ErrProtocol) {
		t.Fatalf("Locate(5): got %v, want %v", err, ErrProtocol)
	}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		budget Budget
		ok     bool
	}{
		{Budget{K: 3}, true},
		{CutoffBudget(0.5), true},
		{CutoffBudget(0), true},
		{CutoffBudget(-1), false},
		{CutoffBudget(math.NaN()), false},
		{Budget{Cutoff: 0.5}, false},
		{Budget{}, false},
		{Budget{K: 2, Cutoff: 1}, false},
		{Budget{K: -1}, false},
	}
	for _, test := range tests {
		err := test.budget.Validate()
		if (err == nil) != test.ok {
			t.Fatalf("%+v: got %v", test.budget, err)
		}
		if err != nil && !errors.Is(err, ErrBudget) {
			t.Fatalf("%+v: got %v, want %v", test.budget, err, ErrBudget)
		}
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		k      int
		cutoff float64
		want   string
		ok     bool
	}{
		{3, -1, "k=3", true},
		{0, 0, "cutoff=0", true},
		{0, 2.5, "cutoff=2.5", true},
		{0, -1, "", false},
		{2, 0, "", false},
		{-2, -1, "", false},
	}
	for _, test := range tests {
		b, err := ParseBudget(test.k, test.cutoff)
		if (err == nil) != test.ok {
			t.Fatalf("k=%d cutoff=%g: got %v", test.k, test.cutoff, err)
		}
		if err != nil {
			if !errors.Is(err, ErrBudget) {
				t.Fatalf("k=%d cutoff=%g: got %v, want %v", test.k, test.cutoff, err, ErrBudget)
			}
			continue
		}
		if b.String() != test.want {
			t.Fatalf("k=%d cutoff=%g: got %s, want %s", test.k, test.cutoff, b, test.want)
		}
	}
}

func TestTooManyCenters(t *testing.T) {
	tasks := randomTasks(1, 2, 1)
	errs := make([]error, 2)
	runGroup(t, 2, func(c comm.Communicator) error {
		shard, err := newTestShard(tasks, c.Rank(), c.Size())
		if err != nil {
			return err
		}
		_, errs[c.Rank()] = NewEngine(c, shard, c.Rank() == 0).Run(Budget{K: 4})
		return nil
	})
	for rank, err := range errs {
		if !errors.Is(err, ErrBudget) {
			t.Fatalf("rank %d: got %v, want %v", rank, err, ErrBudget)
		}
	}
}

func TestCountBudget(t *testing.T) {
	tasks := randomTasks(2, 4, 3, 5)
	for _, k := range []int{1, 3, 12} {
		centers := make([]utils.Centers, 3)
		runGroup(t, 3, func(c comm.Communicator) error {
			shard, err := newTestShard(tasks, c.Rank(), c.Size())
			if err != nil {
				return err
			}
			centers[c.Rank()], err = NewEngine(c, shard, c.Rank() == 0).Run(Budget{K: k})
			if err != nil {
				return err
			}
			for i, a := range shard.Assignments {
				if a < 0 || a >= k {
					return fmt.Errorf("rank %d: frame %d assigned to %d", c.Rank(), i, a)
				}
			}
			return nil
		})
		for rank, cs := range centers {
			if len(cs) != k {
				t.Fatalf("k=%d: rank %d selected %d centers", k, rank, len(cs))
			}
			if !reflect.DeepEqual(cs, centers[0]) {
				t.Fatalf("k=%d: rank %d centers %v differ from rank 0 %v", k, rank, cs, centers[0])
			}
		}
	}
}

func TestCutoffBudget(t *testing.T) {
	a := utils.Coords{0, 0, 0}
	b := utils.Coords{10, 0, 0}
	c := utils.Coords{5, 5 * math.Sqrt(3), 0}
	tasks := [][]utils.Coords{{a, b, c, a}}

	var (
		centers utils.Centers
		shard   *Shard
		history []float64
	)
	runGroup(t, 1, func(cm comm.Communicator) error {
		var err error
		if shard, err = newTestShard(tasks, 0, 1); err != nil {
			return err
		}
		e := NewEngine(cm, shard, true)
		centers, err = e.Run(CutoffBudget(5))
		history = e.History
		return err
	})

	want := []utils.Identity{{Rank: 0, Index: 0}, {Rank: 0, Index: 1}, {Rank: 0, Index: 2}}
	if got := centers.Identities(); !reflect.DeepEqual(got, want) {
		t.Fatalf("centers %v, want %v", got, want)
	}
	for i, d := range shard.Distances {
		if d >= 5 {
			t.Fatalf("frame %d left at distance %g", i, d)
		}
	}
	if shard.Assignments[3] != 0 {
		t.Fatalf("duplicate of the first center assigned to %d", shard.Assignments[3])
	}
	if last := history[len(history)-1]; last != 0 {
		t.Fatalf("terminating distance %g, want 0", last)
	}
}

// a zero cutoff covers a frame only by making it a center, duplicates
// included
func TestZeroCutoff(t *testing.T) {
	a := utils.Coords{0, 0, 0}
	b := utils.Coords{10, 0, 0}
	tasks := [][]utils.Coords{{a, b, a}}

	var centers utils.Centers
	runGroup(t, 1, func(cm comm.Communicator) error {
		shard, err := newTestShard(tasks, 0, 1)
		if err != nil {
			return err
		}
		centers, err = NewEngine(cm, shard, true).Run(CutoffBudget(0))
		return err
	})

	want := []utils.Identity{{Rank: 0, Index: 0}, {Rank: 0, Index: 1}, {Rank: 0, Index: 2}}
	if got := centers.Identities(); !reflect.DeepEqual(got, want) {
		t.Fatalf("centers %v, want %v", got, want)
	}
}

// distances only ever shrink, and a frame always sits at its distance to
// the center it is assigned to
func TestMonotoneCoverage(t *testing.T) {
	tasks := randomTasks(3, 6, 2, 7, 1)
	runGroup(t, 2, func(c comm.Communicator) error {
		shard, err := newTestShard(tasks, c.Rank(), c.Size())
		if err != nil {
			return err
		}
		store := shard.Store.(pointStore)
		e := NewEngine(c, shard, c.Rank() == 0)
		budget := Budget{K: 8}

		var generators utils.Frames
		for {
			before := append([]float64(nil), shard.Distances...)
			done, err := e.Step(budget)
			if err != nil {
				return err
			}
			for i := range before {
				if shard.Distances[i] > before[i] {
					return fmt.Errorf("rank %d: frame %d went from %g to %g", c.Rank(), i, before[i], shard.Distances[i])
				}
			}

			if len(e.Centers) == len(generators) {
				break
			}

			// centers are rebuilt through the same broadcast the engine uses
			last := e.Centers[len(e.Centers)-1]
			var payload []byte
			if last.Rank == c.Rank() {
				f, _ := store.Payload(last.Index)
				payload = []byte(fmt.Sprintf("[%g,%g,%g]", f[0][0], f[0][1], f[0][2]))
			}
			if payload, err = comm.Bcast(c, last.Rank, payload); err != nil {
				return err
			}
			var g utils.Coords
			if _, err = fmt.Sscanf(string(payload), "[%g,%g,%g]", &g[0], &g[1], &g[2]); err != nil {
				return err
			}
			generators = append(generators, utils.Frame{g})
			if done {
				break
			}
		}

		for i, f := range store {
			a := shard.Assignments[i]
			if d := utils.GetDistance(f[0], generators[a][0]); math.Abs(d-shard.Distances[i]) > 1e-9 {
				return fmt.Errorf("rank %d: frame %d at %g from its center, recorded %g", c.Rank(), i, d, shard.Distances[i])
			}
			for j, g := range generators {
				if utils.GetDistance(f[0], g[0]) < shard.Distances[i]-1e-9 {
					return fmt.Errorf("rank %d: frame %d closer to center %d than to %d", c.Rank(), i, j, a)
				}
			}
		}
		for i := 2; i < len(e.History); i++ {
			if e.History[i] > e.History[i-1] {
				return fmt.Errorf("farthest distance grew at round %d: %v", i, e.History)
			}
		}
		return nil
	})
}

// the centers, mapped back to (file, offset), do not depend on the group size
func TestGroupSizeIndependence(t *testing.T) {
	tasks := randomTasks(4, 5, 3, 0, 6, 2, 4, 1)

	var reference []utils.Listing
	for size := 1; size <= 4; size++ {
		var listings []utils.Listing
		runGroup(t, size, func(c comm.Communicator) error {
			shard, err := newTestShard(tasks, c.Rank(), c.Size())
			if err != nil {
				return err
			}
			centers, err := NewEngine(c, shard, c.Rank() == 0).Run(Budget{K: 6})
			if err != nil {
				return err
			}
			owned, err := OwnedListings(centers, c.Rank(), shard.Partition)
			if err != nil {
				return err
			}
			all, err := GatherListings(c, 0, owned)
			if c.Rank() == 0 {
				listings = all
			}
			return err
		})

		if len(listings) != 6 {
			t.Fatalf("size %d: %d listings", size, len(listings))
		}
		if size == 1 {
			reference = listings
			continue
		}
		if !reflect.DeepEqual(listings, reference) {
			t.Fatalf("size %d: listings %v differ from single rank %v", size, listings, reference)
		}
	}
}

func TestAggregate(t *testing.T) {
	tasks := [][]utils.Coords{
		{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}},
		{{8, 0, 0}},
		{{9, 0, 0}, {3, 0, 0}},
	}
	generators := utils.Frames{{{0, 0, 0}}, {{10, 0, 0}}}

	var (
		matrix *Matrix
		pops   []int
	)
	runGroup(t, 2, func(c comm.Communicator) error {
		shard, err := newTestShard(tasks, c.Rank(), c.Size())
		if err != nil {
			return err
		}
		if err = Assign(shard, generators); err != nil {
			return err
		}
		counts, err := Populations(c, shard, len(generators))
		if err != nil {
			return err
		}
		m, err := Aggregate(c, 0, TaskResults(shard))
		if c.Rank() == 0 {
			matrix, pops = m, counts
		}
		return err
	})

	wantAssignments := [][]int{
		{0, 0, 0},
		{1, -1, -1},
		{1, 0, -1},
	}
	wantDistances := [][]float64{
		{0, 1, 2},
		{2, -1, -1},
		{1, 3, -1},
	}
	if !reflect.DeepEqual(matrix.Assignments, wantAssignments) {
		t.Fatalf("assignments %v, want %v", matrix.Assignments, wantAssignments)
	}
	if !reflect.DeepEqual(matrix.Distances, wantDistances) {
		t.Fatalf("distances %v, want %v", matrix.Distances, wantDistances)
	}
	if !reflect.DeepEqual(matrix.Lengths, []int{3, 1, 2}) || matrix.Width != 3 {
		t.Fatalf("lengths %v width %d", matrix.Lengths, matrix.Width)
	}
	if want := []string{"trj0.csv", "trj1.csv", "trj2.csv"}; !reflect.DeepEqual(matrix.Files, want) {
		t.Fatalf("files %v, want %v", matrix.Files, want)
	}
	if !reflect.DeepEqual(pops, []int{4, 2}) {
		t.Fatalf("populations %v, want [4 2]", pops)
	}
}

func TestMergeRejectsDuplicates(t *testing.T) {
	results := []utils.TaskResult{
		{Task: 0, Assignments: []int{0}, Distances: []float64{0}},
		{Task: 0, Assignments: []int{0}, Distances: []float64{0}},
	}
	if _, err := merge(results); !errors.Is(err, ErrProtocol) {
		t.Fatalf("got %v, want %v", err, ErrProtocol)
	}
}

func ExampleEncodeGlobalIndex() {
	global := EncodeGlobalIndex(2, 1, 3)
	rank, local := DecodeGlobalIndex(global, 3)
	fmt.Println(global, rank, local)
	// Output: 7 2 1
}
