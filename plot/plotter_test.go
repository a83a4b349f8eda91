package plot

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

func TestCharts(t *testing.T) {
	p := &Plotter{Dir: t.TempDir()}

	centers := utils.Centers{
		{Identity: utils.Identity{Rank: 0, Index: 0}, Ordinal: 0, Distance: math.Inf(1)},
		{Identity: utils.Identity{Rank: 1, Index: 4}, Ordinal: 1, Distance: 7.5},
		{Identity: utils.Identity{Rank: 0, Index: 2}, Ordinal: 2, Distance: 3.25},
	}
	if err := p.GenerateBarChart([]int{5, 3, 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.GenerateLineChart([]float64{math.Inf(1), 7.5, 3.25}); err != nil {
		t.Fatal(err)
	}
	if err := p.GenerateScatterPlot(centers, 2); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{BarFile, LineFile, ScatterFile} {
		b, err := os.ReadFile(filepath.Join(p.Dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(b), "echarts") {
			t.Fatalf("%s does not look like a chart", name)
		}
	}
}

func TestMissingDir(t *testing.T) {
	p := &Plotter{Dir: filepath.Join(t.TempDir(), "missing")}
	if err := p.GenerateBarChart([]int{1}); err == nil {
		t.Fatal("rendering into a missing directory succeeded")
	}
}
