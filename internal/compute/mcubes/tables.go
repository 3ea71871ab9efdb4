// Package mcubes builds the marching-cubes lookup tables and polygonises
// single cells. The triangle table is derived from the cube topology rather
// than transcribed: crossed edges on every face are joined into segments,
// segments are chained into loops and each loop is fanned into triangles.
// Ambiguous faces always separate the corners above the iso level, so two
// cells sharing a face agree on it and the surface is closed.
package mcubes

import "sort"

// Corner offsets in cell units. Corner i is bit i of a configuration index.
var CornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// EdgeCorners lists the two corners of each of the 12 cell edges.
var EdgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// faces lists each cube face as a cycle of corners.
var faces = [6][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{3, 2, 6, 7},
	{0, 3, 7, 4},
	{1, 2, 6, 5},
}

var (
	// EdgeTable has bit e set when edge e of the configuration is crossed.
	EdgeTable [256]uint16
	// TriTable holds, per configuration, edge indices three per triangle.
	TriTable [256][]int8
	// MaxTriangles is the largest triangle count of any configuration.
	MaxTriangles int
)

func init() {
	for c := 0; c < 256; c++ {
		EdgeTable[c] = edgeMask(c)
		TriTable[c] = triangulate(c)
		if n := len(TriTable[c]) / 3; n > MaxTriangles {
			MaxTriangles = n
		}
	}
}

func inside(config, corner int) bool { return config&(1<<corner) != 0 }

func edgeMask(config int) uint16 {
	var mask uint16
	for e, ends := range EdgeCorners {
		if inside(config, ends[0]) != inside(config, ends[1]) {
			mask |= 1 << e
		}
	}
	return mask
}

func edgeBetween(a, b int) int {
	for e, ends := range EdgeCorners {
		if (ends[0] == a && ends[1] == b) || (ends[0] == b && ends[1] == a) {
			return e
		}
	}
	return -1
}

func faceSegments(config int) [][2]int {
	var segs [][2]int
	for _, f := range faces {
		var crossed []int
		for i := 0; i < 4; i++ {
			a, b := f[i], f[(i+1)%4]
			if inside(config, a) != inside(config, b) {
				crossed = append(crossed, edgeBetween(a, b))
			}
		}
		switch len(crossed) {
		case 2:
			segs = append(segs, [2]int{crossed[0], crossed[1]})
		case 4:
			// Cut off each inside corner with the two face edges meeting at it.
			for i := 0; i < 4; i++ {
				if !inside(config, f[i]) {
					continue
				}
				prev := edgeBetween(f[(i+3)%4], f[i])
				next := edgeBetween(f[i], f[(i+1)%4])
				segs = append(segs, [2]int{prev, next})
			}
		}
	}
	return segs
}

func triangulate(config int) []int8 {
	segs := faceSegments(config)
	if len(segs) == 0 {
		return nil
	}

	adj := make(map[int][]int, 12)
	for _, s := range segs {
		adj[s[0]] = append(adj[s[0]], s[1])
		adj[s[1]] = append(adj[s[1]], s[0])
	}
	edges := make([]int, 0, len(adj))
	for e := range adj {
		edges = append(edges, e)
	}
	sort.Ints(edges)

	visited := make(map[int]bool, len(adj))
	var tris []int8
	for _, start := range edges {
		if visited[start] {
			continue
		}
		loop := []int{start}
		visited[start] = true
		prev, cur := -1, start
		for {
			next := adj[cur][0]
			if next == prev {
				next = adj[cur][1]
			}
			if next == start {
				break
			}
			loop = append(loop, next)
			visited[next] = true
			prev, cur = cur, next
		}
		for i := 1; i+1 < len(loop); i++ {
			tris = append(tris, int8(loop[0]), int8(loop[i]), int8(loop[i+1]))
		}
	}
	return tris
}

// Config returns the configuration index of a cell: bit i is set when
// corner i is above iso.
func Config(values [8]float32, iso float32) int {
	c := 0
	for i, v := range values {
		if v > iso {
			c |= 1 << i
		}
	}
	return c
}
