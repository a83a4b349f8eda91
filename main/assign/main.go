package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/kcenters"
	"github.com/cxhernandez/clusterLP-MPI/main/util"
	"github.com/cxhernandez/clusterLP-MPI/traj"
)

var (
	flagProtein    = ""
	flagLigand     = ""
	flagTrajDir    = "."
	flagExt        = "csv"
	flagTopology   = ""
	flagGenerators = ""
	flagOutput     = "assign"
	flagStride     = 1
	flagMode       = "pose"
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
	flag.StringVar(&flagGenerators, "gens", flagGenerators,
		"Trajectory file whose frames are the cluster generators, in order.")
	flag.StringVar(&flagOutput, "o", flagOutput,
		"Prefix of the output matrices.")
	flag.IntVar(&flagStride, "stride", flagStride,
		"Only every stride-th frame of each trajectory is assigned.")
	flag.StringVar(&flagMode, "mode", flagMode,
		"Distance between frames, 'pose' or 'superposed'.")

	util.FlagUse("cpu", "np", "rank", "peers", "config", "debug")
}

func main() {
	util.FlagParse("",
		"Assigns every frame of a set of trajectories to its closest generator.")

	util.Assert(util.RunGroup(util.FlagNp, util.FlagRank, util.FlagPeers, run), "assignment")
}

func run(c comm.Communicator) error {
	// checked inside the group: a failing rank aborts the others
	if err := util.CheckRequired("pi", "li", "top", "gens"); err != nil {
		return err
	}
	if err := util.CheckDir(flagTrajDir); err != nil {
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

	// generators are read by every rank
	gens, err := in.LoadAligned(flagGenerators, 1)
	if err != nil {
		return err
	}
	if gens.Len() == 0 {
		return fmt.Errorf("no generator in '%s'", flagGenerators)
	}

	shard, err := in.LoadShard(c, flagStride, mode)
	if err != nil {
		return err
	}
	if err = kcenters.Assign(shard, gens.Frames); err != nil {
		return err
	}

	populations, err := kcenters.Populations(c, shard, gens.Len())
	if err != nil {
		return err
	}
	matrix, err := kcenters.Aggregate(c, util.Coordinator, kcenters.TaskResults(shard))
	if err != nil {
		return err
	}
	if c.Rank() != util.Coordinator {
		return nil
	}

	log.Printf("--> %d generators, populations %v", gens.Len(), populations)
	return util.WriteMatrices(flagOutput, matrix)
}
