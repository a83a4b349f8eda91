package main

import (
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/kcenters"
	"github.com/cxhernandez/clusterLP-MPI/main/util"
	"github.com/cxhernandez/clusterLP-MPI/plot"
	"github.com/cxhernandez/clusterLP-MPI/traj"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

var (
	flagProtein  = ""
	flagLigand   = ""
	flagTrajDir  = "."
	flagExt      = "csv"
	flagTopology = ""
	flagK        = 0
	flagCutoff   = -1.0
	flagOutput   = "kcenters.csv"
	flagStride   = 1
	flagMode     = "pose"
	flagAssign   = ""
	flagReport   = ""
)

func init() {
	flag.StringVar(&flagProtein, "pi", flagProtein,
		"File of protein atom indices, one per line. Frames are aligned on them.")
	flag.StringVar(&flagLigand, "li", flagLigand,
		"File of ligand atom indices, one per line. Distances are computed on them.")
	flag.StringVar(&flagTrajDir, "td", flagTrajDir,
		"Directory of the trajectory files.")
	flag.StringVar(&flagExt, "ext", flagExt,
		"Extension of the trajectory files.")
	flag.StringVar(&flagTopology, "top", flagTopology,
		"Topology file, holding the reference structure.")
	flag.IntVar(&flagK, "k", flagK,
		"Number of centers to select. Excludes -cutoff.")
	flag.Float64Var(&flagCutoff, "cutoff", flagCutoff,
		"Select centers until every frame is closer than this distance\n"+
			"to one of them. A negative value leaves it unset. Excludes -k.")
	flag.StringVar(&flagOutput, "o", flagOutput,
		"Output file listing the centers.")
	flag.IntVar(&flagStride, "stride", flagStride,
		"Only every stride-th frame of each trajectory is clustered.")
	flag.StringVar(&flagMode, "mode", flagMode,
		"Distance between frames: 'pose' compares the aligned ligands,\n"+
			"'superposed' superposes the ligands first.")
	flag.StringVar(&flagAssign, "assign", flagAssign,
		"When set, the assignments and distances of every frame are written\n"+
			"to <assign>_assignments.csv and <assign>_distances.csv.")
	flag.StringVar(&flagReport, "report", flagReport,
		"When set, HTML charts of the run are written in this directory.")

	util.FlagUse("cpu", "np", "rank", "peers", "config", "debug")
}

func main() {
	util.FlagParse("",
		"Selects cluster centers among the frames of a set of trajectories\n"+
			"with the greedy k-centers algorithm.")

	util.Assert(util.RunGroup(util.FlagNp, util.FlagRank, util.FlagPeers, run), "k-centers")
}

func run(c comm.Communicator) error {
	// checked inside the group: a failing rank aborts the others
	if err := util.CheckRequired("pi", "li", "top"); err != nil {
		return err
	}
	if err := util.CheckDir(flagTrajDir); err != nil {
		return err
	}
	isCoordinator := c.Rank() == util.Coordinator

	budget, err := kcenters.ParseBudget(flagK, flagCutoff)
	if err != nil {
		return err
	}
	mode, err := traj.ParseMode(flagMode)
	if err != nil {
		return err
	}

	in, err := util.LoadInputs(flagProtein, flagLigand, flagTopology, flagTrajDir, flagExt)
	if err != nil {
		return err
	}
	shard, err := in.LoadShard(c, flagStride, mode)
	if err != nil {
		return err
	}

	engine := kcenters.NewEngine(c, shard, isCoordinator)
	centers, err := engine.Run(budget)
	if err != nil {
		return err
	}

	owned, err := kcenters.OwnedListings(centers, c.Rank(), shard.Partition)
	if err != nil {
		return err
	}
	listings, err := kcenters.GatherListings(c, util.Coordinator, owned)
	if err != nil {
		return err
	}
	populations, err := kcenters.Populations(c, shard, len(centers))
	if err != nil {
		return err
	}

	var matrix *kcenters.Matrix
	if len(flagAssign) > 0 {
		if matrix, err = kcenters.Aggregate(c, util.Coordinator, kcenters.TaskResults(shard)); err != nil {
			return err
		}
	}

	if !isCoordinator {
		return nil
	}

	total := 0
	for _, n := range populations {
		total += n
	}
	preamble := []string{
		"clusterLP k-centers",
		fmt.Sprintf("budget: %s, distance: %s", budget, mode),
		fmt.Sprintf("%d centers over %d frames of %d trajectories, %d processes",
			len(centers), total, len(in.Files), c.Size()),
		"columns: trj,index",
	}
	err = util.WriteFile(flagOutput, func(w io.Writer) error {
		return utils.WriteListing(w, preamble, listings)
	})
	if err != nil {
		return err
	}
	log.Printf("--> %d centers written to %s", len(listings), flagOutput)

	if matrix != nil {
		if err = util.WriteMatrices(flagAssign, matrix); err != nil {
			return err
		}
	}

	if len(flagReport) > 0 {
		p := &plot.Plotter{Dir: flagReport}
		if err = p.GenerateBarChart(populations); err != nil {
			return err
		}
		if err = p.GenerateLineChart(engine.History); err != nil {
			return err
		}
		if err = p.GenerateScatterPlot(centers, c.Size()); err != nil {
			return err
		}
		log.Printf("--> report written in %s", flagReport)
	}
	return nil
}
