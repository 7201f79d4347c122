// Command vectormaton runs one of the engine's build strategies (or one
// of the baseline collaborators it is measured against) over a dataset
// and a query workload, per spec §6.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/vectormaton/internal/vmlog"
	"github.com/liliang-cn/vectormaton/pkg/baseline"
	"github.com/liliang-cn/vectormaton/pkg/dataset"
	"github.com/liliang-cn/vectormaton/pkg/vectormaton"
)

var (
	flagDebug           bool
	flagDataSize        int
	flagStatisticsFile  string
	flagLoadIndex       string
	flagSaveIndex       string
	flagNumThreads      int
	flagWriteGroundTrue string
)

// querier is the common interface every mode in §6 implements.
type querier interface {
	Query(vec []float32, substr string, k int) []uint32
}

type efSetter interface {
	SetEf(ef int)
}

type saver interface {
	SaveIndex(folder string) error
}

var rootCmd = &cobra.Command{
	Use:   "vectormaton <strings_file> <vectors_file> <query_strings_file> <query_vectors_file> <query_k_file> <mode>",
	Short: "Hybrid vector+substring nearest-neighbor search engine",
	Args:  cobra.ExactArgs(6),
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "lower log level to include DEBUG")
	rootCmd.Flags().IntVar(&flagDataSize, "data-size", -1, "truncate the dataset to the first N records")
	rootCmd.Flags().StringVar(&flagStatisticsFile, "statistics-file", "", "emit a recall-vs-ef_search CSV to this path")
	rootCmd.Flags().StringVar(&flagLoadIndex, "load-index", "", "restore a previously saved VectorMaton index from this folder")
	rootCmd.Flags().StringVar(&flagSaveIndex, "save-index", "", "persist the built VectorMaton index to this folder")
	rootCmd.Flags().IntVar(&flagNumThreads, "num-threads", 0, "worker count for VectorMaton-parallel")
	rootCmd.Flags().StringVar(&flagWriteGroundTrue, "write-ground-truth", "", "dump exact-search results to this path for reuse")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := vmlog.LevelInfo
	if flagDebug {
		level = vmlog.LevelDebug
	}
	log := vmlog.NewStd(level)

	ds, err := loadDataset(args[0], args[1])
	if err != nil {
		return err
	}

	queries, err := loadQueries(args[2], args[3], args[4], ds.Dim, log)
	if err != nil {
		return err
	}

	mode := args[5]
	cfg := vectormaton.DefaultConfig()
	if flagNumThreads > 0 {
		cfg.NumThreads = flagNumThreads
	}

	q, err := buildEngine(mode, ds, cfg, log)
	if err != nil {
		return err
	}

	if flagSaveIndex != "" {
		sv, ok := q.(saver)
		if !ok {
			return fmt.Errorf("--save-index is only supported for VectorMaton modes, got %s", mode)
		}
		if err := sv.SaveIndex(flagSaveIndex); err != nil {
			return fmt.Errorf("saving index: %w", err)
		}
	}

	groundTruth := groundTruthFor(ds, queries)
	if flagWriteGroundTrue != "" {
		f, err := os.Create(flagWriteGroundTrue)
		if err != nil {
			return fmt.Errorf("writing ground truth: %w", err)
		}
		defer f.Close()
		if err := dataset.WriteResults(f, groundTruth); err != nil {
			return fmt.Errorf("writing ground truth: %w", err)
		}
	}

	if flagSaveIndex != "" {
		if err := recordCatalogRun(mode, ds, queries); err != nil {
			log.Warn("catalog bookkeeping failed", "error", err)
		}
	}

	if flagStatisticsFile != "" {
		return writeStatistics(flagStatisticsFile, q, queries, groundTruth)
	}

	results := make([][]uint32, len(queries))
	for i, query := range queries {
		results[i] = q.Query(query.Vector, query.Substr, query.K)
	}
	return dataset.WriteResults(os.Stdout, results)
}

func loadDataset(stringsPath, vectorsPath string) (*dataset.Dataset, error) {
	sf, err := os.Open(stringsPath)
	if err != nil {
		return nil, fmt.Errorf("opening strings file: %w", err)
	}
	defer sf.Close()
	strs, err := dataset.ReadStrings(sf, -1)
	if err != nil {
		return nil, err
	}

	vf, err := os.Open(vectorsPath)
	if err != nil {
		return nil, fmt.Errorf("opening vectors file: %w", err)
	}
	defer vf.Close()
	vecs, err := dataset.ReadVectors(vf, -1)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.New(strs, vecs)
	if err != nil {
		return nil, err
	}
	if flagDataSize >= 0 {
		ds.Truncate(flagDataSize)
	}
	return ds, nil
}

func loadQueries(strPath, vecPath, kPath string, dim int, log vmlog.Logger) ([]dataset.Query, error) {
	sf, err := os.Open(strPath)
	if err != nil {
		return nil, fmt.Errorf("opening query strings file: %w", err)
	}
	defer sf.Close()
	vf, err := os.Open(vecPath)
	if err != nil {
		return nil, fmt.Errorf("opening query vectors file: %w", err)
	}
	defer vf.Close()
	kf, err := os.Open(kPath)
	if err != nil {
		return nil, fmt.Errorf("opening query k file: %w", err)
	}
	defer kf.Close()
	return dataset.ReadQueries(sf, vf, kf, dim, log)
}

func buildEngine(mode string, ds *dataset.Dataset, cfg vectormaton.Config, log vmlog.Logger) (querier, error) {
	switch mode {
	case "Exact":
		return baseline.NewExactSearch(ds), nil
	case "PreFiltering":
		return vectormaton.NewPreFiltering(ds, log), nil
	case "PostFiltering":
		pf := baseline.NewPostFiltering(ds, cfg.M, cfg.EfConstruction, cfg.AmplificationThreshold, log)
		pf.Build()
		return pf, nil
	case "Baseline":
		return baseline.NewBaseline(ds, cfg.M, cfg.EfConstruction, cfg.AmplificationThreshold), nil
	case "VectorMaton-full", "VectorMaton-smart", "VectorMaton-parallel":
		return buildVectorMaton(mode, ds, cfg, log)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func buildVectorMaton(mode string, ds *dataset.Dataset, cfg vectormaton.Config, log vmlog.Logger) (querier, error) {
	if flagLoadIndex != "" {
		return vectormaton.LoadIndex(flagLoadIndex, ds, log)
	}

	vm, err := vectormaton.New(ds, cfg, log)
	if err != nil {
		return nil, err
	}
	switch mode {
	case "VectorMaton-full":
		err = vm.BuildFull()
	case "VectorMaton-smart":
		err = vm.BuildSmart()
	case "VectorMaton-parallel":
		err = vm.BuildParallel(context.Background())
	}
	if err != nil {
		return nil, err
	}
	return vm, nil
}

// recordCatalogRun appends a row to a SQLite catalog of runs living
// inside the saved index folder, so a later --statistics-file or
// --write-ground-truth invocation against the same folder can be traced
// back to the run that produced it.
func recordCatalogRun(mode string, ds *dataset.Dataset, queries []dataset.Query) error {
	cat, err := dataset.OpenCatalog(filepath.Join(flagSaveIndex, "catalog.db"))
	if err != nil {
		return err
	}
	defer cat.Close()
	_, err = cat.RecordRun(context.Background(), mode, ds, len(queries), flagStatisticsFile, flagWriteGroundTrue)
	return err
}

func groundTruthFor(ds *dataset.Dataset, queries []dataset.Query) [][]uint32 {
	exact := baseline.NewExactSearch(ds)
	out := make([][]uint32, len(queries))
	for i, q := range queries {
		out[i] = exact.Query(q.Vector, q.Substr, q.K)
	}
	return out
}

// efSweep is the ef_search grid named in spec §6.
var efSweep = []int{20, 40, 60, 80, 100, 120, 140, 160, 180, 200, 400}

func writeStatistics(path string, q querier, queries []dataset.Query, groundTruth [][]uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("opening statistics file: %w", err)
	}
	defer f.Close()

	setter, tunable := q.(efSetter)
	efs := efSweep
	if !tunable {
		efs = efSweep[len(efSweep)-1:]
	}

	var rows []dataset.StatRow
	for _, ef := range efs {
		if tunable {
			setter.SetEf(ef)
		}
		start := time.Now()
		results := make([][]uint32, len(queries))
		for i, query := range queries {
			results[i] = q.Query(query.Vector, query.Substr, query.K)
		}
		elapsed := time.Since(start)

		perQuery := int64(0)
		if len(queries) > 0 {
			perQuery = elapsed.Microseconds() / int64(len(queries))
		}
		rows = append(rows, dataset.StatRow{
			EfSearch: ef,
			TimeUs:   perQuery,
			Recall:   dataset.AverageRecall(results, groundTruth),
			Exact:    !tunable,
		})
	}
	return dataset.WriteStatistics(f, rows)
}
