package cifar

import (
	"bytes"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Pix[0] = 255
	img.Pix[5] = 255
	img.Pix[10] = 255
	img.Pix[15] = 255

	f := Extract(img)
	require.Len(t, f, NumFeatures)
	assert.InDelta(t, 63.75, f[0], 1e-9)
	assert.Equal(t, 4.0, f[1])
	assert.InDelta(t, math.Sqrt(0.25*0.75)*255, f[2], 1e-9)
	assert.Equal(t, 0.25, f[3])
}

func TestFeatures(t *testing.T) {
	var im Image
	for y := 0; y < Side; y++ {
		for x := Side / 2; x < Side; x++ {
			p := y*Side + x
			im.Pixels[p], im.Pixels[planeSize+p], im.Pixels[2*planeSize+p] = 255, 255, 255
		}
	}
	f := Features([]Image{im, {}})
	require.Len(t, f, 2)
	assert.Equal(t, float64(Side), f[0][1], "one edge pixel per row")
	assert.Equal(t, []float64{0, 0, 0, 0}, f[1])
}

func TestNormalize(t *testing.T) {
	data := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	st, err := Normalize(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, st.Mean)
	assert.InDelta(t, math.Sqrt(8.0/3), st.Std[0], 1e-12)
	assert.Equal(t, 0.0, st.Std[1])

	var sum, sq float64
	for _, v := range data {
		sum += v[0]
		sq += v[0] * v[0]
		assert.Equal(t, 0.0, v[1])
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.InDelta(t, 1, sq/3, 1e-12)

	_, err = Normalize([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestApplyTrainingStats(t *testing.T) {
	train := [][]float64{{0, 10}, {2, 10}, {4, 10}}
	st, err := Normalize(train)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, st))
	loaded, err := ReadStats(&buf)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)

	// Held-out rows are scaled with the training mean and deviation, not their own.
	held := [][]float64{{2, 12}, {4, 8}}
	require.NoError(t, loaded.Apply(held))
	sd := math.Sqrt(8.0 / 3)
	assert.InDelta(t, 0, held[0][0], 1e-12)
	assert.InDelta(t, 2/sd, held[1][0], 1e-12)
	assert.Equal(t, 2.0, held[0][1])
	assert.Equal(t, -2.0, held[1][1])
}

func TestApplyMismatch(t *testing.T) {
	st := Stats{Mean: []float64{1, 2}, Std: []float64{1, 1}}
	data := [][]float64{{3, 4}, {5}}
	assert.Error(t, st.Apply(data))
	assert.Equal(t, []float64{3, 4}, data[0])

	assert.Error(t, Stats{Mean: []float64{1}}.Apply(nil))
}

func TestReadStatsInvalid(t *testing.T) {
	for _, in := range []string{"", "{", `{"mean":[1],"std":[]}`, `{"mean":[],"std":[]}`} {
		_, err := ReadStats(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestCSV(t *testing.T) {
	data := [][]float64{{1.5, -2, 0.125}, {3, 4e-9, 5}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, data))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got, err = ReadCSV(strings.NewReader("# header\n1, 2\n3, 4\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, got)

	_, err = ReadCSV(strings.NewReader("1,x\n"))
	assert.Error(t, err)
}
