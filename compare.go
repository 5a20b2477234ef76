package leafdb

// Uint32Comparator orders row keys. Cells in a leaf are sorted ascending
// under it, and the order is part of the file format.
func Uint32Comparator(a, b uint32) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
