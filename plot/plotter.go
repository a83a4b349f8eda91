package plot

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// palette : series colors, reused in order
var palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc", "#2f4554",
}

const (
	BarFile     = "kcenters_populations.html"
	LineFile    = "kcenters_farthest.html"
	ScatterFile = "kcenters_centers.html"
)

// Plotter renders the run report as HTML charts inside Dir.
type Plotter struct {
	Dir string
}

func getColor(i int) string {
	return palette[i%len(palette)]
}

func toolbox(title string) opts.Toolbox {
	return opts.Toolbox{
		Show:  opts.Bool(true),
		Right: "20%",
		Feature: &opts.ToolBoxFeature{
			SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
				Show:  opts.Bool(true),
				Type:  "png",
				Title: title,
			},
			DataView: &opts.ToolBoxFeatureDataView{
				Show:  opts.Bool(true),
				Title: "Data",
				Lang:  []string{"View", "Close", "Refresh"},
			},
		}}
}

// GenerateBarChart draws the population of every cluster.
func (p *Plotter) GenerateBarChart(populations []int) error {
	bar := charts.NewBar()
	// opts
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "k-centers - Cluster populations"}),
		charts.WithToolboxOpts(toolbox("kcenters_populations")),
		charts.WithXAxisOpts(opts.XAxis{Name: "center"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "frames"}),
	)
	// create bars
	var items []opts.BarData
	var xAxis []string
	for i, n := range populations {
		xAxis = append(xAxis, strconv.Itoa(i))
		items = append(items, opts.BarData{
			Name:  strconv.Itoa(i),
			Value: n,
		})
	}
	// draw chart
	bar.SetXAxis(xAxis).AddSeries("population", items, charts.WithItemStyleOpts(opts.ItemStyle{Color: getColor(0)})).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		)

	return p.save(BarFile, bar.Render)
}

// GenerateLineChart draws the farthest distance found at every selection
// round. Rounds before any center exists have no finite distance and are
// left out.
func (p *Plotter) GenerateLineChart(history []float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "k-centers - Farthest distance",
			Subtitle: "distance of the farthest frame from its center, per round",
		}),
		charts.WithToolboxOpts(toolbox("kcenters_farthest")),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "round"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "distance"}),
	)

	var items []opts.LineData
	var xAxis []string
	for round, d := range history {
		if math.IsInf(d, 0) || math.IsNaN(d) {
			continue
		}
		xAxis = append(xAxis, strconv.Itoa(round))
		items = append(items, opts.LineData{Value: d})
	}
	line.SetXAxis(xAxis).AddSeries("farthest", items, charts.WithItemStyleOpts(opts.ItemStyle{Color: getColor(3)}))

	return p.save(LineFile, line.Render)
}

// GenerateScatterPlot draws every center at (ordinal, distance when
// chosen), one series per owning rank.
func (p *Plotter) GenerateScatterPlot(centers utils.Centers, ranks int) error {
	es := charts.NewScatter()
	es.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "k-centers - Centers by owner"}),
		charts.WithLegendOpts(
			opts.Legend{
				Show: opts.Bool(true),
				Top:  "5%",
			},
		),
		charts.WithToolboxOpts(toolbox("kcenters_centers")),
		charts.WithDataZoomOpts(
			opts.DataZoom{
				Type:       "inside",
				XAxisIndex: 0,
			},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "ordinal", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "distance"}),
	)

	for rank := 0; rank < ranks; rank++ {
		data := make([]opts.ScatterData, 0)
		for _, c := range centers.Owned(rank) {
			if math.IsInf(c.Distance, 0) || math.IsNaN(c.Distance) {
				continue
			}
			data = append(data, opts.ScatterData{
				Name:  c.Identity.String(),
				Value: []float64{float64(c.Ordinal), c.Distance},
			})
		}
		es.AddSeries(fmt.Sprintf("Rank %d", rank), data, charts.WithItemStyleOpts(opts.ItemStyle{Color: getColor(rank)}))
	}

	return p.save(ScatterFile, es.Render)
}

func (p *Plotter) save(name string, render func(w io.Writer) error) error {
	f, err := os.Create(filepath.Join(p.Dir, name))
	if err != nil {
		return err
	}
	if err = render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
