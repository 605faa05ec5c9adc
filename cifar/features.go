package cifar

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// NumFeatures is the length of the vector Extract produces.
const NumFeatures = 4

// Extract summarises an edge image as
// [mean intensity, edge pixel count, intensity standard deviation, edge pixel ratio].
// The standard deviation is the population one.
func Extract(edges *image.Gray) []float64 {
	b := edges.Bounds()
	w, h := b.Dx(), b.Dy()
	values := make([]float64, 0, w*h)
	var count float64
	for y := 0; y < h; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+w]
		for _, p := range row {
			values = append(values, float64(p))
			if p > 0 {
				count++
			}
		}
	}
	if len(values) == 0 {
		return make([]float64, NumFeatures)
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return []float64{mean, count, math.Sqrt(variance), count / float64(len(values))}
}

// Features runs edge detection and extraction over every image.
func Features(images []Image) [][]float64 {
	out := make([][]float64, len(images))
	for n := range images {
		out[n] = Extract(Canny(images[n].Gray(), EdgeLow, EdgeHigh))
	}
	return out
}

// Stats holds the per-dimension statistics used by Normalize. Held-out data
// must be scaled with the statistics of the training data, so Stats are
// saved next to the trained maps and read back with ReadStats.
type Stats struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// StatsName is the artifact name the training driver stores Stats under.
const StatsName = "stats.json"

// Normalize centres every column of data on zero and scales it to unit
// population variance, in place. Constant columns are centred but not scaled.
func Normalize(data [][]float64) (Stats, error) {
	if len(data) == 0 {
		return Stats{}, nil
	}
	dim := len(data[0])
	for n, v := range data {
		if len(v) != dim {
			return Stats{}, fmt.Errorf("row %d: expected %d columns, got %d", n, dim, len(v))
		}
	}

	st := Stats{Mean: make([]float64, dim), Std: make([]float64, dim)}
	col := make([]float64, len(data))
	for j := 0; j < dim; j++ {
		for n := range data {
			col[n] = data[n][j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		st.Mean[j], st.Std[j] = mean, math.Sqrt(variance)
	}
	return st, st.Apply(data)
}

// Apply normalises data in place with previously computed statistics.
// Nothing is modified unless every row has len(st.Mean) columns.
func (st Stats) Apply(data [][]float64) error {
	if len(st.Mean) != len(st.Std) {
		return fmt.Errorf("stats: %d means but %d deviations", len(st.Mean), len(st.Std))
	}
	for n, v := range data {
		if len(v) != len(st.Mean) {
			return fmt.Errorf("row %d: expected %d columns, got %d", n, len(st.Mean), len(v))
		}
	}
	for _, v := range data {
		for j := range v {
			v[j] -= st.Mean[j]
			if st.Std[j] > 0 {
				v[j] /= st.Std[j]
			}
		}
	}
	return nil
}

// WriteStats encodes st as JSON.
func WriteStats(w io.Writer, st Stats) error {
	return json.NewEncoder(w).Encode(st)
}

// ReadStats decodes Stats written by WriteStats.
func ReadStats(r io.Reader) (Stats, error) {
	var st Stats
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if len(st.Mean) == 0 || len(st.Mean) != len(st.Std) {
		return Stats{}, fmt.Errorf("stats: %d means but %d deviations", len(st.Mean), len(st.Std))
	}
	return st, nil
}

// ReadCSV reads a numeric matrix, one sample per line. Lines starting with
// '#' are skipped.
func ReadCSV(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	data := make([][]float64, len(records))
	for n, rec := range records {
		data[n] = make([]float64, len(rec))
		for j, field := range rec {
			if data[n][j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", n+1, j+1, err)
			}
		}
	}
	return data, nil
}

// WriteCSV writes data in the format ReadCSV accepts.
func WriteCSV(w io.Writer, data [][]float64) error {
	cw := csv.NewWriter(w)
	rec := make([]string, 0, NumFeatures)
	for _, v := range data {
		rec = rec[:0]
		for _, x := range v {
			rec = append(rec, strconv.FormatFloat(x, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
