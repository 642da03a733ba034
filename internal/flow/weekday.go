package flow

import "strings"

type weekday struct {
	Code   string
	Korean string
}

// weekdays is the calendar order used for every weekly output.
var weekdays = [7]weekday{
	{"Mon", "월"},
	{"Tue", "화"},
	{"Wed", "수"},
	{"Thu", "목"},
	{"Fri", "금"},
	{"Sat", "토"},
	{"Sun", "일"},
}

var weekdayAliases = func() map[string]int {
	full := [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	m := make(map[string]int, 35)
	for i, d := range weekdays {
		m[strings.ToLower(d.Code)] = i
		m[d.Korean] = i
		m[d.Korean+"요일"] = i
		m[full[i]] = i
	}
	return m
}()

// WeekdayIndex resolves a day name in Korean or English to 0 (Monday)
// through 6 (Sunday).
func WeekdayIndex(name string) (int, bool) {
	i, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// WeekdayLabel returns the Korean display name for a canonical day code.
func WeekdayLabel(code string) string {
	if i, ok := WeekdayIndex(code); ok {
		return weekdays[i].Korean
	}
	return code
}
