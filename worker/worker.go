package worker

import (
	"bufio"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emptyOVO/logbucket/streaming"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Config describes a single-machine map-reduce run.
type Config struct {
	Files     []string
	Reducers  int
	Workers   int
	InRAM     bool
	OutputDir string
}

func (c *Config) WithDefaults() {
	if c.Reducers <= 0 {
		c.Reducers = 1
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
}

type Worker struct {
	UUID       string
	nReduce    int
	nWorker    int
	Mapf       MapFormat
	Reducef    ReduceFormat
	storeInRAM bool
	outputDir  string
}

func newWorker(cfg Config, mapf MapFormat, reducef ReduceFormat) *Worker {
	return &Worker{
		UUID:       uuid.New().String(),
		nReduce:    cfg.Reducers,
		nWorker:    cfg.Workers,
		Mapf:       mapf,
		Reducef:    reducef,
		storeInRAM: cfg.InRAM,
		outputDir:  cfg.OutputDir,
	}
}

// Run maps every input file, partitions the intermediate pairs by key and
// reduces each partition into <OutputDir>/mr-out-<n>.txt. It returns the
// reduce output paths in partition order.
func Run(ctx context.Context, cfg Config, mapf MapFormat, reducef ReduceFormat) ([]string, error) {
	cfg.WithDefaults()
	if len(cfg.Files) == 0 {
		return nil, nil
	}
	if mapf == nil || reducef == nil {
		return nil, fmt.Errorf("map and reduce functions are required")
	}
	wr := newWorker(cfg, mapf, reducef)
	log.WithFields(log.Fields{
		"worker":   wr.UUID,
		"files":    len(cfg.Files),
		"reducers": wr.nReduce,
	}).Info("[Worker] Start job")

	imdKV, err := wr.Map(ctx, cfg.Files)
	if err != nil {
		return nil, err
	}

	log.Trace("[Worker] Write intermediate kv to file")
	filenames, err := writeIMDToLocalFile(imdKV, wr.UUID, wr.storeInRAM, wr.outputDir)
	defer removeFiles(filenames)
	if err != nil {
		return nil, err
	}

	outputs, err := wr.Reduce(ctx, filenames)
	if err != nil {
		return nil, err
	}
	log.WithField("worker", wr.UUID).Info("[Worker] Finish job")
	return outputs, nil
}

// Map runs Mapf over the files with at most nWorker files in flight and
// returns the emitted pairs split into nReduce partitions.
func (wr *Worker) Map(ctx context.Context, files []string) ([][]KV, error) {
	log.Info("[Worker] Start Map")
	imdKV := make([][]KV, wr.nReduce)
	if len(files) == 0 {
		return imdKV, nil
	}

	mapChan := make(chan KV, 100)
	done := make(chan error, len(files))
	sem := make(chan struct{}, wr.nWorker)
	for _, f := range files {
		go func(f0 string) {
			sem <- struct{}{}
			defer func() { <-sem }()
			done <- wr.mapFile(ctx, f0, mapChan)
		}(f)
	}

	count := 0
	var firstErr error

	log.Trace("[Worker] Start partition intermediate kv")
LOOP:
	for {
		select {
		case mapKV, haveKV := <-mapChan:
			if !haveKV {
				break LOOP
			}
			reducerID := reducerForKey(mapKV.Key, wr.nReduce)
			imdKV[reducerID] = append(imdKV[reducerID], mapKV)

		case err := <-done:
			if err != nil && firstErr == nil {
				firstErr = err
			}
			count++
			if count == len(files) {
				close(mapChan)
			}
		}
	}
	log.Trace("[Worker] End partition intermediate kv")

	if firstErr != nil {
		return nil, firstErr
	}
	log.Info("[Worker] Finish Map")
	return imdKV, nil
}

func (wr *Worker) mapFile(ctx context.Context, filename string, out chan<- KV) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	mctx := newMrContext(func(kv KV) { out <- kv })
	if err := wr.Mapf(filename, string(b), mctx); err != nil {
		return fmt.Errorf("map %s: %w", filename, err)
	}
	return nil
}

func reducerForKey(key string, nReduce int) int {
	if nReduce <= 0 {
		panic("nReduce must be > 0")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % nReduce
}

func writeIMDToLocalFile(imdKV [][]KV, uuid string, inRAM bool, outputDir string) ([]string, error) {
	// Filenames stay aligned with the reducer index.
	filenames := make([]string, len(imdKV))
	errs := make([]error, len(imdKV))
	var wg sync.WaitGroup
	for taskID, kvs := range imdKV {
		wg.Add(1)
		go func(t int, s []KV) {
			defer wg.Done()
			filenames[t], errs[t] = writeIMDToLocalFileParallel(t, s, uuid, inRAM, outputDir)
		}(taskID, kvs)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return filenames, err
		}
	}
	return filenames, nil
}

func writeIMDToLocalFileParallel(taskID int, kvs []KV, uuid string, inRAM bool, outputDir string) (string, error) {
	baseDir := outputDir
	if inRAM {
		baseDir = "/dev/shm"
		if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
			baseDir = os.TempDir()
		}
	}
	fname := filepath.Join(baseDir, fmt.Sprintf("imd-%v-%v.txt", uuid, taskID))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fname, []byte(streaming.EncodeKVs(kvs)), 0o644); err != nil {
		return "", err
	}
	return fname, nil
}

// Reduce reduces each intermediate partition file into its own output file.
func (wr *Worker) Reduce(ctx context.Context, filenames []string) ([]string, error) {
	log.Info("[Worker] Start Reduce")

	outputs := make([]string, len(filenames))
	errs := make([]error, len(filenames))
	var wg sync.WaitGroup
	for taskID, fname := range filenames {
		wg.Add(1)
		go func(t int, f string) {
			defer wg.Done()
			outputs[t], errs[t] = wr.reducePartition(ctx, t, f)
		}(taskID, fname)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	log.Info("[Worker] End Reduce")
	return outputs, nil
}

func (wr *Worker) reducePartition(ctx context.Context, taskID int, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	log.Trace("[Worker] Group intermediate KV")
	groups := treemap.NewWithStringComparator()
	for _, kv := range streaming.DecodeKVs(string(b)) {
		var values []string
		if v, ok := groups.Get(kv.Key); ok {
			values = v.([]string)
		}
		groups.Put(kv.Key, append(values, kv.Value))
	}

	if err := os.MkdirAll(wr.outputDir, 0o755); err != nil {
		return "", err
	}
	outputFile := filepath.Join(wr.outputDir, fmt.Sprintf("mr-out-%v.txt", taskID))
	ofile, err := os.Create(outputFile)
	if err != nil {
		return "", err
	}
	defer ofile.Close()
	bw := bufio.NewWriter(ofile)
	w := streaming.NewWriter(bw)

	log.Trace("[Worker] Start Reducing")
	var emitted []KV
	rctx := newMrContext(func(kv KV) { emitted = append(emitted, kv) })
	it := groups.Iterator()
	for it.Next() {
		emitted = emitted[:0]
		wr.Reducef(it.Key().(string), it.Value().([]string), rctx)
		for _, kv := range emitted {
			if err := w.Emit(kv.Key, kv.Value); err != nil {
				return "", err
			}
		}
	}
	log.Trace("[Worker] End Reducing")

	if err := bw.Flush(); err != nil {
		return "", err
	}
	return outputFile, ofile.Close()
}

func removeFiles(files []string) {
	for _, f := range files {
		if f != "" {
			_ = os.Remove(f)
		}
	}
}
