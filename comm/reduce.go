package comm

import (
	"encoding/json"
	"fmt"
	"math"
)

// Reductions gather every contribution and fold them in rank order, so the
// result is bit-for-bit identical on every rank.

// AllreduceMaxInt returns the largest v across the group.
func AllreduceMaxInt(c Communicator, v int) (int, error) {
	all, err := AllgatherJSON(c, v)
	if err != nil {
		return 0, err
	}
	res := all[0]
	for _, x := range all[1:] {
		res = max(res, x)
	}
	return res, nil
}

// AllreduceSumInt returns the sum of v across the group.
func AllreduceSumInt(c Communicator, v int) (int, error) {
	all, err := AllgatherJSON(c, v)
	if err != nil {
		return 0, err
	}
	res := 0
	for _, x := range all {
		res += x
	}
	return res, nil
}

// AllreduceSumInts sums equally long vectors element-wise across the group.
func AllreduceSumInts(c Communicator, v []int) ([]int, error) {
	all, err := AllgatherJSON(c, v)
	if err != nil {
		return nil, err
	}
	res := make([]int, len(v))
	for rank, vec := range all {
		if len(vec) != len(v) {
			return nil, fmt.Errorf("comm: rank %d contributed %d values, expected %d", rank, len(vec), len(v))
		}
		for i, x := range vec {
			res[i] += x
		}
	}
	return res, nil
}

// ValueIndex is the operand of a MaxLoc reduction.
type ValueIndex struct {
	Value float64
	Index int
}

// MaxLoc keeps the pair with the larger value; on an exact tie the pair
// with the smaller index wins.
func MaxLoc(a, b ValueIndex) ValueIndex {
	switch {
	case a.Value > b.Value:
		return a
	case b.Value > a.Value:
		return b
	case a.Index <= b.Index:
		return a
	default:
		return b
	}
}

// AllreduceMaxLoc folds every rank's pair with MaxLoc.
func AllreduceMaxLoc(c Communicator, v ValueIndex) (ValueIndex, error) {
	all, err := AllgatherJSON(c, v)
	if err != nil {
		return ValueIndex{}, err
	}
	res := all[0]
	for _, x := range all[1:] {
		res = MaxLoc(res, x)
	}
	return res, nil
}

// infinities and NaN have no JSON form, the value travels as raw bits
type wireValueIndex struct {
	Bits  uint64
	Index int
}

func (v ValueIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireValueIndex{Bits: math.Float64bits(v.Value), Index: v.Index})
}

func (v *ValueIndex) UnmarshalJSON(b []byte) error {
	var w wireValueIndex
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v.Value = math.Float64frombits(w.Bits)
	v.Index = w.Index
	return nil
}
