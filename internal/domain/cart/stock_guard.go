package cart

// Clamp limits a requested quantity to the available stock.
// A result of 0 means the line must be deleted, never stored.
func Clamp(requested, stock int) int {
	return max(0, min(requested, stock))
}
