package som

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// ClusterCenters returns a copy of every weight vector, row by row.
func (s *SOM) ClusterCenters() [][]float64 {
	centers := make([][]float64, 0, s.rows*s.cols)
	for i := 0; i < s.rows; i++ {
		for j := 0; j < s.cols; j++ {
			centers = append(centers, append([]float64(nil), s.weights[i][j]...))
		}
	}
	return centers
}

// Assign maps every sample to its winning cell.
func (s *SOM) Assign(data [][]float64) ([]Coord, error) {
	coords := make([]Coord, len(data))
	for n, v := range data {
		c, err := s.FindWinner(v)
		if err != nil {
			return nil, err
		}
		coords[n] = c
	}
	return coords, nil
}

// Membership returns, for every cell in row-major order, the set of sample
// indices that the cell wins.
func (s *SOM) Membership(data [][]float64) ([]*roaring.Bitmap, error) {
	coords, err := s.Assign(data)
	if err != nil {
		return nil, err
	}
	members := make([]*roaring.Bitmap, s.rows*s.cols)
	for k := range members {
		members[k] = roaring.New()
	}
	for n, c := range coords {
		members[c.Index(s.cols)].Add(uint32(n))
	}
	return members, nil
}

// Hits returns how many samples each cell wins, in row-major order.
func (s *SOM) Hits(data [][]float64) ([]uint64, error) {
	members, err := s.Membership(data)
	if err != nil {
		return nil, err
	}
	hits := make([]uint64, len(members))
	for k, m := range members {
		hits[k] = m.GetCardinality()
	}
	return hits, nil
}
