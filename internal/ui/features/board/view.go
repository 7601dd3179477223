package board

import "strconv"

func countLabel(n int) string {
	switch n {
	case 0:
		return "No pinned charts"
	case 1:
		return "1 pinned chart"
	default:
		return strconv.Itoa(n) + " pinned charts"
	}
}
