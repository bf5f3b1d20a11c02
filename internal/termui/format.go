// Package termui renders probe progress on a terminal.
package termui

import "fmt"

// FormatSpeed renders bytes/sec as Mbps, or Gbps from 1000 Mbps upward.
// Megabits are counted in 1024*1024 bit units.
func FormatSpeed(bytesPerSecond float64) string {
	mbps := bytesPerSecond * 8 / (1024 * 1024)
	if mbps >= 1000 {
		return fmt.Sprintf("%.2f Gbps", mbps/1000)
	}
	return fmt.Sprintf("%.2f Mbps", mbps)
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n with 1024-step units up to GB.
func FormatBytes(n int64) string {
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, byteUnits[unit])
}
