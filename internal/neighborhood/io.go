package neighborhood

import (
	"fmt"

	"github.com/banshee-data/pointfeatures/internal/fsutil"
)

// Load reads neighbor-index lists from a JSON file of the form
// [[i, j, ...], ...].
func Load(fsys fsutil.FileSystem, path string) ([][]int, error) {
	var nbs [][]int
	if err := fsutil.ReadJSON(fsys, path, 0, &nbs); err != nil {
		return nil, fmt.Errorf("neighborhoods: %w", err)
	}
	for i := range nbs {
		if nbs[i] == nil {
			nbs[i] = []int{}
		}
	}
	return nbs, nil
}

// All returns a single neighborhood holding every index of an n-point
// cloud, for features computed over the whole cloud.
func All(n int) [][]int {
	nb := make([]int, n)
	for i := range nb {
		nb[i] = i
	}
	return [][]int{nb}
}
