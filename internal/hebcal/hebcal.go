// Package hebcal renders dates the way an Israeli reader expects them,
// with the Hebrew date taken from hebcal's calendar.
package hebcal

import (
	"fmt"
	"time"

	"github.com/hebcal/gematriya"
	"github.com/hebcal/hdate"
)

var monthNames = map[hdate.HMonth]string{
	hdate.Nisan:    "ניסן",
	hdate.Iyyar:    "אייר",
	hdate.Sivan:    "סיוון",
	hdate.Tamuz:    "תמוז",
	hdate.Av:       "אב",
	hdate.Elul:     "אלול",
	hdate.Tishrei:  "תשרי",
	hdate.Cheshvan: "חשוון",
	hdate.Kislev:   "כסלו",
	hdate.Tevet:    "טבת",
	hdate.Shvat:    "שבט",
	hdate.Adar1:    "אדר",
	hdate.Adar2:    "אדר ב׳",
}

// MonthName is the Hebrew month name of hd; the first Adar of a leap year
// is "אדר א׳".
func MonthName(hd hdate.HDate) string {
	if hd.Month() == hdate.Adar1 && hdate.IsLeapYear(hd.Year()) {
		return "אדר א׳"
	}
	return monthNames[hd.Month()]
}

// Date renders hd with Hebrew numerals and the thousands dropped,
// e.g. "א׳ בתשרי תשפ״ה".
func Date(hd hdate.HDate) string {
	return fmt.Sprintf("%s ב%s %s",
		gematriya.Gematriya(hd.Day()), MonthName(hd), gematriya.Gematriya(hd.Year()%1000))
}

var weekdays = [...]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

// WeekdayName is the bare day name, "ראשון" .. "שבת".
func WeekdayName(t time.Time) string {
	return weekdays[t.Weekday()]
}

// Long renders t as "יום חמישי, א׳ בתשרי תשפ״ה", using the civil date of t
// in t's location.
func Long(t time.Time) string {
	return fmt.Sprintf("יום %s, %s", WeekdayName(t), Date(hdate.FromTime(t)))
}

// CivilDate renders t as the short he-IL civil date, e.g. "3.10.2024".
func CivilDate(t time.Time) string {
	return fmt.Sprintf("%d.%d.%d", t.Day(), int(t.Month()), t.Year())
}

// ClockTime renders t as two-digit 24-hour "HH:MM".
func ClockTime(t time.Time) string {
	return t.Format("15:04")
}
