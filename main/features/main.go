package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/main/util"
	"github.com/cxhernandez/clusterLP-MPI/master"
	"github.com/cxhernandez/clusterLP-MPI/traj"
	"github.com/cxhernandez/clusterLP-MPI/utils"
	"github.com/cxhernandez/clusterLP-MPI/worker"
)

const rowsPerWrite = 256 // frames appended under one write token

var (
	flagProtein  = ""
	flagLigand   = ""
	flagTrajDir  = "."
	flagExt      = "csv"
	flagTopology = ""
	flagFeatures = "contacts,com"
	flagContact  = 4.5
	flagOutput   = "features.csv"
	flagStride   = 1
)

func init() {
	flag.StringVar(&flagProtein, "pi", flagProtein,
		"File of protein atom indices, one per line. Frames are aligned on them.")
	flag.StringVar(&flagLigand, "li", flagLigand,
		"File of ligand atom indices, one per line.")
	flag.StringVar(&flagTrajDir, "td", flagTrajDir,
		"Directory of the trajectory files.")
	flag.StringVar(&flagExt, "ext", flagExt,
		"Extension of the trajectory files.")
	flag.StringVar(&flagTopology, "top", flagTopology,
		"Topology file, holding the reference structure.")
	flag.StringVar(&flagFeatures, "features", flagFeatures,
		"Comma separated features to compute. Valid values are\n"+
			"'contacts', 'com', 'pairwise' and 'dihedrals'.")
	flag.Float64Var(&flagContact, "contact", flagContact,
		"A protein atom closer than this to a ligand atom is a contact.")
	flag.StringVar(&flagOutput, "o", flagOutput,
		"Output file, one row per frame.")
	flag.IntVar(&flagStride, "stride", flagStride,
		"Only every stride-th frame of each trajectory is used.")

	util.FlagUse("cpu", "np", "rank", "peers", "config", "debug")
}

func main() {
	util.FlagParse("",
		"Computes ligand features for every frame of a set of trajectories.\n"+
			"Rank 0 hands out one trajectory at a time to the other ranks.")

	util.Assert(util.RunGroup(util.FlagNp, util.FlagRank, util.FlagPeers, run), "feature extraction")
}

func run(c comm.Communicator) error {
	// checked inside the group: a failing rank aborts the others
	if err := util.CheckRequired("pi", "li", "top"); err != nil {
		return err
	}
	if err := util.CheckDir(flagTrajDir); err != nil {
		return err
	}
	in, err := util.LoadInputs(flagProtein, flagLigand, flagTopology, flagTrajDir, flagExt)
	if err != nil {
		return err
	}
	fz, err := traj.NewFeaturizer(util.SplitList(flagFeatures), in.ProteinPos(), in.LigandPos(), flagContact)
	if err != nil {
		return err
	}
	header := append([]string{"trj", "frame"}, fz.Header()...)

	var tasks []utils.Task
	if c.Rank() == util.Coordinator {
		for i, file := range in.Files {
			tasks = append(tasks, utils.Task{ID: i, File: file})
		}
		// the header goes first: no worker writes before its first grant
		err = util.WriteFile(flagOutput, func(w io.Writer) error {
			return utils.AppendRows(w, header, [][]string{header})
		})
		if err != nil {
			return err
		}
	}

	handle := func(task utils.Task, arb *worker.Arbiter) error {
		t, err := in.LoadAligned(task.File, flagStride)
		if err != nil {
			return err
		}

		var rows [][]string
		for i, frame := range t.Frames {
			row := []string{filepath.Base(task.File), strconv.Itoa(i * flagStride)}
			for _, v := range fz.Compute(frame) {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
			rows = append(rows, row)

			if len(rows) == rowsPerWrite || i == len(t.Frames)-1 {
				if err = arb.Do(func() error { return appendRows(header, rows) }); err != nil {
					return err
				}
				rows = rows[:0]
			}
		}
		return nil
	}

	_, err = master.Dispatch(c, util.Coordinator, tasks, handle)
	return err
}

func appendRows(header []string, rows [][]string) error {
	f, err := os.OpenFile(flagOutput, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if err = utils.AppendRows(f, header, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
