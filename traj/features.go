package traj

import (
	"fmt"
	"math"
	"strings"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// Contacts counts, for every ligand atom, the protein atoms closer than
// cutoff.
func Contacts(f utils.Frame, protein, ligand []int, cutoff float64) []float64 {
	out := make([]float64, len(ligand))
	for i, l := range ligand {
		for _, p := range protein {
			if utils.GetDistance(f[l], f[p]) < cutoff {
				out[i]++
			}
		}
	}
	return out
}

// CenterOfMass is the unweighted geometric center of the atoms of subset.
func CenterOfMass(f utils.Frame, subset []int) []float64 {
	c := f.Centroid(subset)
	return c[:]
}

// PairwiseDistances lists the distance of every pair of atoms of subset,
// (0,1), (0,2), ..., (1,2), ...
func PairwiseDistances(f utils.Frame, subset []int) []float64 {
	var out []float64
	for i := 0; i < len(subset); i++ {
		for j := i + 1; j < len(subset); j++ {
			out = append(out, utils.GetDistance(f[subset[i]], f[subset[j]]))
		}
	}
	return out
}

// Dihedrals returns the torsion angle, in radians, of every window of four
// consecutive atoms of subset.
func Dihedrals(f utils.Frame, subset []int) []float64 {
	var out []float64
	for i := 0; i+3 < len(subset); i++ {
		out = append(out, dihedral(f[subset[i]], f[subset[i+1]], f[subset[i+2]], f[subset[i+3]]))
	}
	return out
}

func dihedral(p0, p1, p2, p3 utils.Coords) float64 {
	b1, b2, b3 := sub(p1, p0), sub(p2, p1), sub(p3, p2)
	n1, n2 := cross(b1, b2), cross(b2, b3)
	y := norm(b2) * dot(b1, n2)
	x := dot(n1, n2)
	return math.Atan2(y, x)
}

func sub(a, b utils.Coords) utils.Coords {
	return utils.Coords{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b utils.Coords) utils.Coords {
	return utils.Coords{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b utils.Coords) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm(a utils.Coords) float64 {
	return math.Sqrt(dot(a, a))
}

/*------------------------------------------------- FEATURIZER -------------------------------------------------------*/

type feature struct {
	name    string
	compute func(utils.Frame) []float64
}

// Featurizer concatenates a fixed list of features, so every frame gets a
// row of the same width.
type Featurizer struct {
	features []feature
	header   []string
}

// FeatureNames lists the features NewFeaturizer knows.
var FeatureNames = []string{"contacts", "com", "pairwise", "dihedrals"}

// NewFeaturizer builds the named features. protein and ligand are atom
// positions inside the loaded frames.
func NewFeaturizer(names []string, protein, ligand []int, cutoff float64) (*Featurizer, error) {
	fz := new(Featurizer)

	for _, name := range names {
		var (
			ft    feature
			width int
		)
		switch strings.TrimSpace(name) {
		case "contacts":
			ft = feature{"contacts", func(f utils.Frame) []float64 { return Contacts(f, protein, ligand, cutoff) }}
			width = len(ligand)
		case "com":
			ft = feature{"com", func(f utils.Frame) []float64 { return CenterOfMass(f, ligand) }}
			width = 3
		case "pairwise":
			ft = feature{"pairwise", func(f utils.Frame) []float64 { return PairwiseDistances(f, ligand) }}
			width = len(ligand) * (len(ligand) - 1) / 2
		case "dihedrals":
			ft = feature{"dihedrals", func(f utils.Frame) []float64 { return Dihedrals(f, ligand) }}
			width = max(len(ligand)-3, 0)
		default:
			return nil, fmt.Errorf("traj: unknown feature %q (known: %s)", name, strings.Join(FeatureNames, ", "))
		}

		fz.features = append(fz.features, ft)
		for i := 0; i < width; i++ {
			fz.header = append(fz.header, fmt.Sprintf("%s_%d", ft.name, i))
		}
	}
	if len(fz.features) == 0 {
		return nil, fmt.Errorf("traj: no feature selected")
	}
	return fz, nil
}

// Header names the columns of a row.
func (fz *Featurizer) Header() []string {
	return fz.header
}

// Compute returns the row of one frame.
func (fz *Featurizer) Compute(f utils.Frame) []float64 {
	row := make([]float64, 0, len(fz.header))
	for _, ft := range fz.features {
		row = append(row, ft.compute(f)...)
	}
	return row
}
