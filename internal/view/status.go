// Package view holds the HTML fragments patched into the player page.
package view

import (
	"fmt"
	"math"
	"strconv"

	"github.com/msomdec/coursewatch/internal/watch"
)

// StatusElementID is the id of the element WatchStatus renders.
const StatusElementID = "watch-status"

func progressValue(st watch.Status) string {
	return strconv.Itoa(int(math.Round(st.Progress * 100)))
}

func watchedLabel(completionPercent float64) string {
	return fmt.Sprintf("%.0f%% watched", completionPercent)
}
