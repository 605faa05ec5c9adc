package som

import (
	"math"
)

func MakeTensor2(n, m int) [][]float64 {
	t := make([][]float64, n)
	for i := 0; i < len(t); i++ {
		t[i] = make([]float64, m)
	}
	return t
}

func MakeTensor3(n, m, p int) [][][]float64 {
	t := make([][][]float64, n)
	for i := 0; i < len(t); i++ {
		t[i] = MakeTensor2(m, p)
	}
	return t
}

func copyTensor3(src [][][]float64) [][][]float64 {
	t := make([][][]float64, len(src))
	for i := range src {
		t[i] = make([][]float64, len(src[i]))
		for j := range src[i] {
			t[i][j] = append([]float64(nil), src[i][j]...)
		}
	}
	return t
}

func finite(v []float64) bool {
	for _, x := range v {
		if !finiteScalar(x) {
			return false
		}
	}
	return true
}

func finiteScalar(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
