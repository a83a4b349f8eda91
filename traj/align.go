package traj

import (
	"fmt"

	matrix "github.com/skelterjohn/go.matrix"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// Align superposes every frame of t in place onto reference, using the
// atoms of subset (every atom when empty) to find the rigid motion. The
// whole frame is moved. Aligning twice onto the same reference changes
// nothing.
func Align(t *Trajectory, reference utils.Frame, subset []int) error {
	for i, frame := range t.Frames {
		if err := AlignFrame(frame, reference, subset); err != nil {
			return fmt.Errorf("%s frame %d: %w", t.File, i, err)
		}
	}
	return nil
}

// AlignFrame is Align for a single frame.
func AlignFrame(frame, reference utils.Frame, subset []int) error {
	if len(frame) != len(reference) {
		return fmt.Errorf("%w: frame has %d atoms, reference %d", ErrFormat, len(frame), len(reference))
	}
	if err := CheckRange(subset, len(frame)); err != nil {
		return err
	}

	mobile := frame.Select(subset)
	target := reference.Select(subset)
	if len(mobile) == 0 {
		return nil
	}
	cm, ct := mobile.Centroid(nil), target.Centroid(nil)

	rot, err := kabsch(mobile, target, cm, ct)
	if err != nil {
		return err
	}

	for i, atom := range frame {
		var x utils.Coords
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				x[r] += rot[r*3+c] * (atom[c] - cm[c])
			}
		}
		for r := 0; r < 3; r++ {
			frame[i][r] = x[r] + ct[r]
		}
	}
	return nil
}

// kabsch returns, in row-major order, the rotation taking the centered
// mobile atoms closest to the centered target atoms
//
// With H = P(Q^T) = U S (V^T), the rotation is V D (U^T), where D flips the
// last axis when V(U^T) is a reflection.
func kabsch(mobile, target utils.Frame, cm, ct utils.Coords) ([]float64, error) {
	cols := len(mobile)
	P := make([]float64, 3*cols)
	Q := make([]float64, 3*cols)
	for i := 0; i < cols; i++ {
		for r := 0; r < 3; r++ {
			P[r*cols+i] = mobile[i][r] - cm[r]
			Q[r*cols+i] = target[i][r] - ct[r]
		}
	}

	H, err := matrix.MakeDenseMatrix(P, 3, cols).TimesDense(matrix.MakeDenseMatrix(Q, 3, cols).Transpose())
	if err != nil {
		return nil, err
	}
	U, _, V, err := H.SVD()
	if err != nil {
		return nil, fmt.Errorf("traj: superposition failed: %v", err)
	}

	UT := U.Transpose()
	VUT, err := V.TimesDense(UT)
	if err != nil {
		return nil, err
	}
	if det3(VUT.Array()) >= 0 {
		return VUT.Array(), nil
	}

	flip := matrix.MakeDenseMatrix([]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, -1,
	}, 3, 3)
	VD, err := V.TimesDense(flip)
	if err != nil {
		return nil, err
	}
	R, err := VD.TimesDense(UT)
	if err != nil {
		return nil, err
	}
	return R.Array(), nil
}

func det3(a []float64) float64 {
	return a[0]*(a[4]*a[8]-a[5]*a[7]) -
		a[1]*(a[3]*a[8]-a[5]*a[6]) +
		a[2]*(a[3]*a[7]-a[4]*a[6])
}
