package topic

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// cluster labels unit vectors with topic IDs 0..n-1 (largest first) or
// OutlierID, and returns the unit centroid of every topic.
func cluster(vectors [][]float64, opts Options) ([]int, [][]float64) {
	dim := len(vectors[0])

	labels, centroids := leaders(vectors, opts.Similarity)
	labels, centroids = compact(labels, centroids, opts.MinTopicSize)

	for i := 0; i < opts.Iterations && len(centroids) > 0; i++ {
		next := assign(vectors, centroids, opts.Similarity)
		stable := slices.Equal(labels, next)
		labels = next
		centroids = means(vectors, labels, len(centroids), dim)
		labels, centroids = compact(labels, centroids, 1)
		if stable {
			break
		}
	}

	labels, centroids = compact(labels, centroids, opts.MinTopicSize)
	centroids = means(vectors, labels, len(centroids), dim)

	return bySize(labels, centroids)
}

// leaders makes a single pass over the vectors: each joins the most similar
// existing cluster when that similarity reaches threshold, otherwise it
// starts a new cluster.
func leaders(vectors [][]float64, threshold float64) ([]int, [][]float64) {
	labels := make([]int, len(vectors))
	var sums, centroids [][]float64

	for i, v := range vectors {
		best, bestSim := nearest(v, centroids)
		if best >= 0 && bestSim >= threshold {
			labels[i] = best
			floats.Add(sums[best], v)
			copy(centroids[best], sums[best])
			unit(centroids[best])
			continue
		}

		labels[i] = len(centroids)
		sums = append(sums, append([]float64(nil), v...))
		centroids = append(centroids, append([]float64(nil), v...))
	}

	return labels, centroids
}

// assign labels each vector with its nearest centroid, or OutlierID when no
// centroid reaches threshold.
func assign(vectors, centroids [][]float64, threshold float64) []int {
	labels := make([]int, len(vectors))
	for i, v := range vectors {
		best, bestSim := nearest(v, centroids)
		if best < 0 || bestSim < threshold {
			labels[i] = OutlierID
			continue
		}
		labels[i] = best
	}
	return labels
}

// nearest returns the index of the centroid most similar to v, ties going to
// the lower index. It returns -1 when there are no centroids.
func nearest(v []float64, centroids [][]float64) (int, float64) {
	best, bestSim := -1, math.Inf(-1)
	for c, centroid := range centroids {
		if sim := floats.Dot(v, centroid); sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best, bestSim
}

// means returns the unit mean vector of each of the k clusters.
func means(vectors [][]float64, labels []int, k, dim int) [][]float64 {
	centroids := make([][]float64, k)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
	}
	for i, l := range labels {
		if l != OutlierID {
			floats.Add(centroids[l], vectors[i])
		}
	}
	for _, c := range centroids {
		unit(c)
	}
	return centroids
}

// compact turns clusters with fewer than minSize members into outliers and
// renumbers the survivors densely, keeping their relative order.
func compact(labels []int, centroids [][]float64, minSize int) ([]int, [][]float64) {
	counts := make([]int, len(centroids))
	for _, l := range labels {
		if l != OutlierID {
			counts[l]++
		}
	}

	remap := make([]int, len(centroids))
	var kept [][]float64
	for c, n := range counts {
		if n < minSize {
			remap[c] = OutlierID
			continue
		}
		remap[c] = len(kept)
		kept = append(kept, centroids[c])
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		if l == OutlierID {
			out[i] = OutlierID
			continue
		}
		out[i] = remap[l]
	}
	return out, kept
}

// bySize renumbers clusters by descending size, ties going to the cluster
// whose first member comes earlier.
func bySize(labels []int, centroids [][]float64) ([]int, [][]float64) {
	counts := make([]int, len(centroids))
	first := make([]int, len(centroids))
	for c := range first {
		first[c] = len(labels)
	}
	for i, l := range labels {
		if l == OutlierID {
			continue
		}
		counts[l]++
		if i < first[l] {
			first[l] = i
		}
	}

	order := make([]int, len(centroids))
	for c := range order {
		order[c] = c
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return first[a] < first[b]
	})

	remap := make([]int, len(centroids))
	sorted := make([][]float64, len(centroids))
	for newID, old := range order {
		remap[old] = newID
		sorted[newID] = centroids[old]
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		if l == OutlierID {
			out[i] = OutlierID
			continue
		}
		out[i] = remap[l]
	}
	return out, sorted
}
