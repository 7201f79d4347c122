package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/liliang-cn/vectormaton/internal/vmlog"
)

// ReadStrings parses a strings_file: whitespace-separated tokens, one
// string per token, per §6. limit truncates the result (--data-size=N);
// pass a negative limit for no truncation.
func ReadStrings(r io.Reader, limit int) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		out = append(out, scanner.Text())
		if limit >= 0 && len(out) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading strings: %w", err)
	}
	return out, nil
}

// ReadVectors parses a vectors_file: one vector per line,
// whitespace-separated floats. All lines must share dimension; a
// mismatch is a Shape error reported immediately, per §7.
func ReadVectors(r io.Reader, limit int) ([][]float32, error) {
	var out [][]float32
	dim := -1
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		vec := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("dataset: parsing vector at line %d: %w", lineNo, err)
			}
			vec[i] = float32(v)
		}
		if dim == -1 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, fmt.Errorf("dataset: line %d has dimension %d, want %d", lineNo, len(vec), dim)
		}
		out = append(out, vec)
		if limit >= 0 && len(out) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading vectors: %w", err)
	}
	return out, nil
}

// Query is one row of the query workload: a query vector, a query
// substring, and a k.
type Query struct {
	Vector []float32
	Substr string
	K      int
}

// ReadQueries aligns a query_strings_file, a query_vectors_file, and a
// query_k_file into a slice of Query. Mismatched sizes are aligned to
// the minimum and logged as a warning per §6. dim is the dataset's
// vector dimension; every query vector's length must equal dim, a Shape
// error per §7 ("per-query mismatch is fatal before any search runs"),
// checked here rather than deferred to the distance kernel.
func ReadQueries(strs io.Reader, vecs io.Reader, ks io.Reader, dim int, logger vmlog.Logger) ([]Query, error) {
	qStrings, err := ReadStrings(strs, -1)
	if err != nil {
		return nil, err
	}
	qVectors, err := ReadVectors(vecs, -1)
	if err != nil {
		return nil, err
	}
	qKs, err := readInts(ks)
	if err != nil {
		return nil, err
	}

	n := len(qStrings)
	if len(qVectors) < n {
		n = len(qVectors)
	}
	if len(qKs) < n {
		n = len(qKs)
	}
	if len(qStrings) != n || len(qVectors) != n || len(qKs) != n {
		if logger == nil {
			logger = vmlog.Nop()
		}
		logger.Warn("mismatched query file sizes: aligning to minimum",
			"strings", len(qStrings), "vectors", len(qVectors), "ks", len(qKs), "aligned", n)
	}

	out := make([]Query, n)
	for i := 0; i < n; i++ {
		if len(qVectors[i]) != dim {
			return nil, fmt.Errorf("dataset: query vector %d has dimension %d, want %d", i, len(qVectors[i]), dim)
		}
		out[i] = Query{Vector: qVectors[i], Substr: qStrings[i], K: qKs[i]}
	}
	return out, nil
}

func readInts(r io.Reader) ([]int, error) {
	words, err := ReadStrings(r, -1)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(words))
	for i, w := range words {
		v, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("dataset: parsing k at entry %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// WriteResults writes one line of space-separated ids per query,
// newline-terminated, matching the ground-truth and results file format
// of §6.
func WriteResults(w io.Writer, results [][]uint32) error {
	bw := bufio.NewWriter(w)
	for _, ids := range results {
		for i, id := range ids {
			if i > 0 {
				if _, err := bw.WriteString(" "); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(strconv.FormatUint(uint64(id), 10)); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadResults parses a results/ground-truth file back into per-query id
// lists, the inverse of WriteResults.
func ReadResults(r io.Reader) ([][]uint32, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out [][]uint32
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var ids []uint32
		if line != "" {
			for _, f := range strings.Fields(line) {
				v, err := strconv.ParseUint(f, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("dataset: parsing result id: %w", err)
				}
				ids = append(ids, uint32(v))
			}
		}
		out = append(out, ids)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading results: %w", err)
	}
	return out, nil
}

// StatRow is one row of the statistics CSV: ef_search,time_us,recall,exact.
type StatRow struct {
	EfSearch int
	TimeUs   int64
	Recall   float64
	Exact    bool
}

// WriteStatistics emits the statistics CSV described in §6.
func WriteStatistics(w io.Writer, rows []StatRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ef_search", "time_us", "recall", "exact"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.EfSearch),
			strconv.FormatInt(r.TimeUs, 10),
			strconv.FormatFloat(r.Recall, 'f', 6, 64),
			strconv.FormatBool(r.Exact),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
