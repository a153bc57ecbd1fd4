// Command dialin searches grind size and temperature for a recipe whose
// extraction yield hits a target, holding the rest of the recipe fixed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/field"
	"github.com/pthm-cable/pourover/telemetry"
)

// evalRow is one line of dialin_log.csv.
type evalRow struct {
	Eval        int     `csv:"eval"`
	Fitness     float64 `csv:"fitness"`
	Yield       float64 `csv:"yield"`
	GrindSize   float64 `csv:"grind_size"`
	Temperature float64 `csv:"temperature"`
}

// recipe is the YAML written for the best result.
type recipe struct {
	Target      float64 `yaml:"target_yield"`
	Yield       float64 `yaml:"yield"`
	GrindSize   float64 `yaml:"grind_size"`
	Temperature float64 `yaml:"temperature"`
	Ratio       float64 `yaml:"ratio"`
	Agitation   float64 `yaml:"agitation"`
	Time        float64 `yaml:"time"`
	Shape       string  `yaml:"shape"`
	Evaluations int     `yaml:"evaluations"`
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	target := flag.Float64("target", 0.2, "Target extraction yield in [0,1]")
	seeds := flag.Int("seeds", 3, "Number of generator seeds per evaluation")
	maxEvals := flag.Int("max-evals", 120, "Maximum number of evaluations")
	ratio := flag.Float64("ratio", 0.5, "Fixed water to coffee ratio")
	agitation := flag.Float64("agitation", 0.3, "Fixed agitation")
	brewTime := flag.Float64("time", 1.0, "Fixed brew time")
	shape := flag.String("shape", "cone", "Brewer shape (cone or flat)")
	outputDir := flag.String("output", "", "Output directory for the log, best recipe and snapshot (optional)")
	flag.Parse()

	if *target < 0 || *target > 1 {
		log.Fatalf("--target must be in [0,1], got %v", *target)
	}
	if *seeds < 1 {
		log.Fatal("--seeds must be at least 1")
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()

	base := field.DefaultParams()
	base.Ratio = *ratio
	base.Agitation = *agitation
	base.Time = *brewTime
	base.Shape = field.ParseShape(*shape)
	params := NewParamVector(base)

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *target, evalSeeds, cfg)

	var rows []evalRow
	evalCount := 0
	bestFitness := 1e9
	var bestRaw []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			evalCount++

			clamped := params.Clamp(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestRaw = clamped
			}
			rows = append(rows, evalRow{
				Eval:        evalCount,
				Fitness:     fitness,
				Yield:       evaluator.LastYield(),
				GrindSize:   clamped[0],
				Temperature: clamped[1],
			})
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 20,
		},
	}
	method := &optimize.NelderMead{}

	fmt.Printf("Dialing in %d parameters toward yield %.3f (max_evals=%d, seeds=%d)\n",
		params.Dim(), *target, *maxEvals, *seeds)

	initX := params.Normalize(params.DefaultVector())
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	if bestRaw == nil && result != nil {
		bestRaw = params.Clamp(params.Denormalize(result.X))
	}
	if bestRaw == nil {
		log.Fatal("no evaluations completed")
	}

	best := params.Params(bestRaw)
	yield := evaluator.Yield(best)

	fmt.Printf("\nDial-in complete after %d evaluations in %s\n", evalCount, time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("  grind_size:  %.4f\n", best.GrindSize)
	fmt.Printf("  temperature: %.4f\n", best.Temperature)
	fmt.Printf("  yield:       %.4f (target %.4f)\n", yield, *target)

	if *outputDir == "" {
		return
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := writeLog(filepath.Join(*outputDir, "dialin_log.csv"), rows); err != nil {
		log.Printf("failed to write log: %v", err)
	}

	out := recipe{
		Target:      *target,
		Yield:       yield,
		GrindSize:   best.GrindSize,
		Temperature: best.Temperature,
		Ratio:       best.Ratio,
		Agitation:   best.Agitation,
		Time:        best.Time,
		Shape:       best.Shape.String(),
		Evaluations: evalCount,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		log.Fatalf("failed to marshal recipe: %v", err)
	}
	recipePath := filepath.Join(*outputDir, "best_recipe.yaml")
	if err := os.WriteFile(recipePath, data, 0644); err != nil {
		log.Printf("failed to write recipe: %v", err)
	} else {
		fmt.Printf("\nBest recipe saved to: %s\n", recipePath)
	}

	// Snapshot the best cloud so the viewer can replay it with -snapshot.
	gen := field.NewGenerator(cfg, evalSeeds[0])
	snap := telemetry.NewSnapshot(evalSeeds[0], 0, "dialin", &best, gen.Simulate(best))
	path, err := telemetry.SaveSnapshot(snap, *outputDir)
	if err != nil {
		log.Printf("failed to save snapshot: %v", err)
	} else {
		fmt.Printf("Snapshot saved to: %s\n", path)
	}
}

func writeLog(path string, rows []evalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}
