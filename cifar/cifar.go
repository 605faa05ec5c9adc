// Package cifar reads the binary CIFAR-10 distribution and turns vehicle
// images into the edge features a SOM is trained on.
package cifar

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
)

const (
	Side       = 32
	planeSize  = Side * Side
	recordSize = 1 + 3*planeSize

	LabelAutomobile = 1
	LabelTruck      = 9

	NumTrainBatches = 5
)

// An Image is one CIFAR-10 record: a class label and three 32x32 planes
// (red, green, blue) stored row by row.
type Image struct {
	Label  uint8
	Pixels [3 * planeSize]byte
}

// RGB returns the channels of the pixel at (x, y).
func (im *Image) RGB(x, y int) (r, g, b uint8) {
	p := y*Side + x
	return im.Pixels[p], im.Pixels[planeSize+p], im.Pixels[2*planeSize+p]
}

// RGBA converts the record to an image.RGBA.
func (im *Image) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, Side, Side))
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			r, g, b := im.RGB(x, y)
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return out
}

// Gray converts the record to grayscale with the red and blue weights
// swapped (0.114 R + 0.587 G + 0.299 B), matching features extracted by
// running a BGR conversion over RGB data. Weights are 14-bit fixed point.
func (im *Image) Gray() *image.Gray {
	const (
		wRed   = 1868
		wGreen = 9617
		wBlue  = 4899
		shift  = 14
	)
	out := image.NewGray(image.Rect(0, 0, Side, Side))
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			r, g, b := im.RGB(x, y)
			v := (int(r)*wRed + int(g)*wGreen + int(b)*wBlue + 1<<(shift-1)) >> shift
			out.Pix[y*out.Stride+x] = uint8(v)
		}
	}
	return out
}

// ReadBatch reads every record from a CIFAR-10 binary batch.
func ReadBatch(r io.Reader) ([]Image, error) {
	br := bufio.NewReader(r)
	var images []Image
	buf := make([]byte, recordSize)
	for {
		_, err := io.ReadFull(br, buf)
		if errors.Is(err, io.EOF) {
			return images, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(images), err)
		}
		var im Image
		im.Label = buf[0]
		copy(im.Pixels[:], buf[1:])
		images = append(images, im)
	}
}

// BatchPath returns the path of training batch n (1-based) under dir.
func BatchPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("data_batch_%d.bin", n))
}

// TestBatchPath returns the path of the held-out test batch under dir.
func TestBatchPath(dir string) string {
	return filepath.Join(dir, "test_batch.bin")
}

// LoadVehicles reads all training batches under dir and keeps automobiles and trucks.
func LoadVehicles(dir string) ([]Image, error) {
	paths := make([]string, NumTrainBatches)
	for n := range paths {
		paths[n] = BatchPath(dir, n+1)
	}
	return loadVehicles(paths...)
}

// LoadTestVehicles is LoadVehicles for the test batch.
func LoadTestVehicles(dir string) ([]Image, error) {
	return loadVehicles(TestBatchPath(dir))
}

func loadVehicles(paths ...string) ([]Image, error) {
	var vehicles []Image
	for _, path := range paths {
		images, err := loadBatch(path)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, Vehicles(images)...)
	}
	return vehicles, nil
}

func loadBatch(path string) ([]Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	images, err := ReadBatch(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return images, nil
}

// Vehicles returns the automobiles and trucks among images, in order.
func Vehicles(images []Image) []Image {
	var out []Image
	for _, im := range images {
		if im.Label == LabelAutomobile || im.Label == LabelTruck {
			out = append(out, im)
		}
	}
	return out
}
