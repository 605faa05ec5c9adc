// Command test evaluates a trained SOM snapshot on CIFAR-10 vehicle features.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"som"
	"som/cifar"
)

var (
	snapshotFile = flag.String("snapshot", "", "trained weights written by the sweep (.som)")
	cifarDir     = flag.String("cifar", "cifar-10-batches-bin", "CIFAR-10 binary directory")
	featuresCSV  = flag.String("features", "", "read normalised features from this CSV instead of CIFAR")
	split        = flag.String("split", "test", "CIFAR split to evaluate: train or test")
	statsFile    = flag.String("stats", "", "normalisation statistics stored by the sweep (stats.json), required for CIFAR input")
	silhouette   = flag.Bool("silhouette", false, "also compute the silhouette coefficient")
)

func main() {
	flag.Parse()
	if *snapshotFile == "" {
		log.Fatalf("-snapshot is required")
	}
	m, err := readSnapshot(*snapshotFile)
	if err != nil {
		log.Fatalf("%s: %v", *snapshotFile, err)
	}
	log.Printf("map %dx%d, input dimension %d, learning rate %g, radius %g",
		m.Rows(), m.Cols(), m.InputDim(), m.InitialLearningRate(), m.InitialRadius())

	data, err := loadFeatures(*featuresCSV, *cifarDir, *split, *statsFile)
	if err != nil {
		log.Fatalf("load features: %v", err)
	}
	log.Printf("samples: %d", len(data))

	qe, err := m.QuantizationError(data)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("quantization error: %.4f", qe)
	if m.Rows()*m.Cols() > 1 {
		te, err := m.TopographicError(data)
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("topographic error: %.4f", te)
	}
	if *silhouette {
		coords, err := m.Assign(data)
		if err != nil {
			log.Fatalf("%v", err)
		}
		s, err := som.Silhouette(data, coords)
		if err != nil {
			log.Printf("silhouette: %v", err)
		} else {
			log.Printf("silhouette: %.4f", s)
		}
	}

	members, err := m.Membership(data)
	if err != nil {
		log.Fatalf("%v", err)
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	fmt.Fprintln(w, "hits per cell:")
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			fmt.Fprintf(w, "%6d", members[som.Coord{I: i, J: j}.Index(m.Cols())].GetCardinality())
		}
		fmt.Fprintln(w)
	}
}

func readSnapshot(path string) (*som.SOM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return som.Decode(bufio.NewReader(f))
}

// loadFeatures reads already normalised features from csvPath, or extracts
// them from a CIFAR split and scales them with the training statistics in
// statsPath so they live in the space the map was trained in.
func loadFeatures(csvPath, dir, split, statsPath string) ([][]float64, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return cifar.ReadCSV(f)
	}
	if statsPath == "" {
		return nil, fmt.Errorf("-stats is required with CIFAR input")
	}
	stats, err := readStats(statsPath)
	if err != nil {
		return nil, err
	}

	var images []cifar.Image
	switch split {
	case "train":
		images, err = cifar.LoadVehicles(dir)
	case "test":
		images, err = cifar.LoadTestVehicles(dir)
	default:
		return nil, fmt.Errorf("unknown split %q", split)
	}
	if err != nil {
		return nil, err
	}
	data := cifar.Features(images)
	if err := stats.Apply(data); err != nil {
		return nil, err
	}
	return data, nil
}

func readStats(path string) (cifar.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return cifar.Stats{}, err
	}
	defer f.Close()
	return cifar.ReadStats(f)
}
