package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/hgrid"
	"github.com/phil-mansfield/hgrid/io"
	"github.com/phil-mansfield/hgrid/optimize"
)

type FileGroup struct {
	log, prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var (
		grid, exampleConfig string
		plotFile            string
	)
	vars := map[string]*string{
		"Grid":          &grid,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(
		&grid, "Grid", "",
		"Configuration file for [Grid] mode. Takes a particle catalog as "+
			"its only argument.",
	)
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the "+
			"specified type to stdout. The only accepted argument is 'Grid'.",
	)
	flag.StringVar(
		&plotFile, "PlotFile", "",
		"When the [Grid] config sets Optimize, plot the optimizer's work "+
			"history to this file.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Grid":
		gridMain(grid, plotFile, flag.Args())
	case "ExampleConfig":
		switch exampleConfig {
		case "Grid":
			fmt.Println(io.ExampleGridFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only recognized " +
					"value is 'Grid'.",
			)
		}
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but hgrid only accepts one "+
				"flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func gridMain(fname, plotFile string, args []string) {
	con, err := io.ReadGridConfig(fname)
	if err != nil {
		log.Fatal(err.Error())
	}

	fg := setupIO(con)
	defer fg.Close()

	if len(args) != 1 {
		log.Fatal("Must supply exactly one particle catalog.")
	}

	dom, err := con.Domain()
	if err != nil {
		log.Fatal(err.Error())
	}
	cfg, err := con.Config()
	if err != nil {
		log.Fatal(err.Error())
	}
	ps, err := io.ReadArena(args[0], dom)
	if err != nil {
		log.Fatal(err.Error())
	}
	log.Printf("Read %d particles from %s.", ps.Len(), args[0])

	if con.Optimize {
		opt := optimize.DefaultOptions()
		opt.MaxIter = con.OptimizerIterations
		opt.Bins = con.HistogramBins
		opt.Logger = log.New(log.Writer(), log.Prefix(), log.Flags())

		res := optimize.ForParticles(ps, dom, cfg, con.OverheadRatio, opt)
		log.Printf(
			"Optimized cell sizes in %d iterations with %d merges: %.4g",
			res.Iterations, res.Merged, res.CellSizes,
		)
		cfg.CellSizes = res.CellSizes

		if plotFile != "" {
			plotWork(res.Work, plotFile)
		}
	} else if plotFile != "" {
		log.Println("PlotFile is ignored unless Optimize is set.")
	}

	g, err := hgrid.NewGrid(cfg, dom, ps)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := g.BeginStep(); err != nil {
		log.Fatal(err.Error())
	}

	overlaps := 0
	g.FindAllPairs(func(a, b int) {
		if g.Overlaps(a, b) {
			overlaps++
		}
	})

	fmt.Printf("# %5s %12s %10s\n", "Level", "CellSize", "Particles")
	for l := 0; l < g.Levels(); l++ {
		fmt.Printf("  %5d %12.5g %10d\n", l, g.CellSize(l), g.LevelPopulation(l))
	}
	fmt.Printf("Candidates:    %d\n", g.Stats.Candidates)
	fmt.Printf("Cells visited: %d\n", g.Stats.CellsVisited)
	fmt.Printf("Overlaps:      %d\n", overlaps)
	if overlaps > 0 {
		fmt.Printf(
			"Ratio:         %.3g\n",
			float64(g.Stats.Candidates)/float64(overlaps),
		)
	}
}

func setupIO(con *io.GridConfig) *FileGroup {
	fg := &FileGroup{}
	var err error

	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}

func plotWork(work []float64, fname string) {
	iters := make([]float64, len(work))
	for i := range iters {
		iters[i] = float64(i)
	}

	plt.Figure()
	plt.Plot(iters, work, "k", plt.LW(2))
	plt.Title(fmt.Sprintf("Final work: %.4g", work[len(work)-1]))
	plt.XLabel("Iteration", plt.FontSize(16))
	plt.YLabel("Estimated work [pair tests]", plt.FontSize(16))
	plt.YScale("log")
	plt.Grid(plt.Axis("y"))
	plt.SaveFig(fname)
	plt.Execute()
}
