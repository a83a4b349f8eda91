package util

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/cxhernandez/clusterLP-MPI/kcenters"
	"github.com/cxhernandez/clusterLP-MPI/master"
	"github.com/cxhernandez/clusterLP-MPI/worker"
)

var (
	FlagCpu = runtime.NumCPU()

	FlagNp    = 1
	FlagRank  = -1
	flagPeers = ""
	FlagPeers []string

	FlagConfig = ""
	FlagDebug  = false
)

func init() {
	log.SetFlags(0)
}

type commonFlag struct {
	set, init func()
	use       bool
}

var commonFlags = map[string]*commonFlag{
	"cpu": {
		set: func() {
			flag.IntVar(&FlagCpu, "cpu", FlagCpu,
				"The max number of CPUs to use.")
		},
		init: func() {
			runtime.GOMAXPROCS(FlagCpu)
		},
	},
	"np": {
		set: func() {
			flag.IntVar(&FlagNp, "np", FlagNp,
				"The number of ranks to run inside this process.\n"+
					"Ignored when -rank is set.")
		},
	},
	"rank": {
		set: func() {
			flag.IntVar(&FlagRank, "rank", FlagRank,
				"The rank of this process in a group spanning several processes.\n"+
					"Requires -peers.")
		},
	},
	"peers": {
		set: func() {
			flag.StringVar(&flagPeers, "peers", flagPeers,
				"Comma separated host:port addresses of every rank, in rank order.")
		},
		init: func() {
			FlagPeers = SplitList(flagPeers)
		},
	},
	"config": {
		set: func() {
			flag.StringVar(&FlagConfig, "config", FlagConfig,
				"A TOML file of flag values. Flags given on the command line\n"+
					"take precedence.")
		},
	},
	"debug": {
		set: func() {
			flag.BoolVar(&FlagDebug, "debug", FlagDebug,
				"When set, every selection round and dispatched task is logged.")
		},
		init: func() {
			kcenters.Debug = FlagDebug
			master.Debug = FlagDebug
			worker.Debug = FlagDebug
		},
	},
}

func FlagUse(names ...string) {
	for _, name := range names {
		commonFlags[name].use = true
	}
}

func FlagParse(positional string, desc string) {
	for _, fl := range commonFlags {
		if fl.use {
			fl.set()
		}
	}

	flag.Usage = func() {
		log.Printf("Usage: %s [flags] %s\n\n",
			path.Base(os.Args[0]), positional)
		if len(desc) > 0 {
			log.Printf("%s\n", desc)
		}
		flag.VisitAll(func(fl *flag.Flag) {
			var def string
			if len(fl.DefValue) > 0 {
				def = fmt.Sprintf(" (default: %s)", fl.DefValue)
			}

			usage := strings.Replace(fl.Usage, "\n", "\n    ", -1)
			log.Printf("-%s%s\n", fl.Name, def)
			log.Printf("    %s\n", usage)
		})
		os.Exit(1)
	}
	flag.Parse()

	// the config file only fills flags missing from the command line
	if len(FlagConfig) > 0 {
		Assert(ApplyConfig(flag.CommandLine, FlagConfig), "applying '%s'", FlagConfig)
	}

	for _, fl := range commonFlags {
		if fl.use && fl.init != nil {
			fl.init()
		}
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); len(item) > 0 {
			items = append(items, item)
		}
	}
	return items
}
