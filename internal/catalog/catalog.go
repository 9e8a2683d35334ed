package catalog

import "strings"

// Session types accepted by the booking engine.
const (
	SessionGroup       = "group"
	SessionSunday      = "sunday"
	SessionPrivate     = "private"
	SessionSemiPrivate = "semi_private"
)

// Program types a registration can be enrolled in.
const (
	ProgramGroup       = "group"
	ProgramPrivate     = "private"
	ProgramSemiPrivate = "semi_private"
)

// SundayBand is one of the two age bands that share the Sunday practice,
// each with its own time window and capacity.
type SundayBand struct {
	Label    string
	TimeSlot string
	Capacity int
}

var (
	youngBand = SundayBand{Label: "U6-U10", TimeSlot: "10:00-11:30", Capacity: 12}
	olderBand = SundayBand{Label: "U11-U14", TimeSlot: "12:00-13:30", Capacity: 10}
)

// categoryRank maps a normalized age category to its numeric age. Ordered
// configuration keeps band membership a range check instead of a list.
var categoryRank = map[string]int{
	"U6": 6, "U7": 7, "U8": 8, "U9": 9, "U10": 10,
	"U11": 11, "U12": 12, "U13": 13, "U14": 14,
	"U15": 15, "U16": 16, "U17": 17, "U18": 18,
}

// weekdaySlots assigns each category group its recurring weekday
// group-training window.
var weekdaySlots = []struct {
	minAge, maxAge int
	slot           string
}{
	{6, 8, "16:00-17:00"},
	{9, 11, "17:00-18:15"},
	{12, 14, "18:15-19:30"},
	{15, 18, "19:30-21:00"},
}

const (
	groupCapacity       = 14
	privateCapacity     = 1
	semiPrivateCapacity = 3
)

// NormalizeCategory uppercases and trims a category label ("u9" -> "U9").
func NormalizeCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

// ValidCategory reports whether the category is one the academy trains.
func ValidCategory(category string) bool {
	_, ok := categoryRank[NormalizeCategory(category)]
	return ok
}

// AssignedSlot returns the weekday group-training slot for a category.
// Unknown categories get no slot.
func AssignedSlot(category string) (string, bool) {
	age, ok := categoryRank[NormalizeCategory(category)]
	if !ok {
		return "", false
	}
	for _, ws := range weekdaySlots {
		if age >= ws.minAge && age <= ws.maxAge {
			return ws.slot, true
		}
	}
	return "", false
}

// BandForCategory returns the Sunday practice band a category belongs to.
// Categories above U14 are ineligible and get no band; there is no
// fallback assignment.
func BandForCategory(category string) (SundayBand, bool) {
	age, ok := categoryRank[NormalizeCategory(category)]
	if !ok {
		return SundayBand{}, false
	}
	switch {
	case age <= 10:
		return youngBand, true
	case age <= 14:
		return olderBand, true
	default:
		return SundayBand{}, false
	}
}

// SundayBands lists the configured bands, youngest first. Used by the
// admin slot generator.
func SundayBands() []SundayBand {
	return []SundayBand{youngBand, olderBand}
}

// MaxCapacity returns the hard ceiling for a (session type, time slot,
// category) bucket. Zero means the combination is not bookable.
func MaxCapacity(sessionType, timeSlot, category string) int {
	switch sessionType {
	case SessionGroup:
		return groupCapacity
	case SessionPrivate:
		return privateCapacity
	case SessionSemiPrivate:
		return semiPrivateCapacity
	case SessionSunday:
		band, ok := BandForCategory(category)
		if !ok || band.TimeSlot != timeSlot {
			return 0
		}
		return band.Capacity
	default:
		return 0
	}
}

// ValidSessionType reports whether the session type is known.
func ValidSessionType(sessionType string) bool {
	switch sessionType {
	case SessionGroup, SessionSunday, SessionPrivate, SessionSemiPrivate:
		return true
	default:
		return false
	}
}

// UsesCredits reports whether bookings of this session type are funded
// from the credit ledger. Directly-paid types never touch the ledger.
func UsesCredits(sessionType string) bool {
	return sessionType == SessionGroup
}

// AllowedDays returns the weekdays a program type may train on. Private
// formats avoid the weekend; group training runs the academy's standard
// weekday grid.
func AllowedDays(programType string) []string {
	switch programType {
	case ProgramPrivate, ProgramSemiPrivate:
		return []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	case ProgramGroup:
		return []string{"monday", "wednesday", "friday"}
	default:
		return nil
	}
}

// ValidProgramType reports whether the program type is known.
func ValidProgramType(programType string) bool {
	switch programType {
	case ProgramGroup, ProgramPrivate, ProgramSemiPrivate:
		return true
	default:
		return false
	}
}
