package core

import "time"

// Working-hours window for the security gate, farm-local time. The off-hours
// bypass is only permitted outside this window.
const (
	workingHoursStartMinute = 6 * 60  // 06:00
	workingHoursEndMinute   = 18 * 60 // 18:00
)

// InWorkingHours reports whether t falls inside the 06:00-18:00 security gate
// window. Both boundaries count as working hours, so a bypass at exactly
// 06:00 or 18:00 is refused.
func InWorkingHours(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= workingHoursStartMinute && minutes <= workingHoursEndMinute
}
