//go:build !race

package todoapi

func passwordHashCost() int {
	return 14
}
