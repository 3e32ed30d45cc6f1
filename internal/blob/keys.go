package blob

import (
	"regexp"
	"sort"
	"time"

	"github.com/databunker/pricewatch/internal/logger"
)

// Historical snapshot keys embed an ISO date in their filename. Files
// without a parseable date are skipped with a warning, never treated as an
// error.
var keyDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Dated pairs an object with the date parsed from its key.
type Dated struct {
	Object
	Date time.Time
}

// ExtractDate parses the embedded ISO date from a blob key.
func ExtractDate(key string) (time.Time, bool) {
	match := keyDatePattern.FindString(key)
	if match == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", match)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DatedObjects keeps the objects whose keys carry a parseable date,
// logging and dropping the rest.
func DatedObjects(objects []Object, appLogger *logger.Logger) []Dated {
	const component = "BlobKeys"

	dated := make([]Dated, 0, len(objects))
	for _, obj := range objects {
		date, ok := ExtractDate(obj.Key)
		if !ok {
			appLogger.Warn(component, "Skipping key without a recognizable date: key=%s", obj.Key)
			continue
		}
		dated = append(dated, Dated{Object: obj, Date: date})
	}
	return dated
}

// Latest returns the most recently dated object. Two objects claiming the
// same date is a data-quality anomaly: it is logged, and the
// lexicographically greatest key wins so the choice stays deterministic.
func Latest(objects []Dated, appLogger *logger.Logger) (Dated, bool) {
	const component = "BlobKeys"

	if len(objects) == 0 {
		return Dated{}, false
	}

	best := objects[0]
	for _, obj := range objects[1:] {
		switch {
		case obj.Date.After(best.Date):
			best = obj
		case obj.Date.Equal(best.Date):
			appLogger.Warn(component, "Two files claim the same date: date=%s keys=%s,%s", best.Date.Format("2006-01-02"), best.Key, obj.Key)
			if obj.Key > best.Key {
				best = obj
			}
		}
	}
	return best, true
}

// LatestBefore returns the most recently dated object strictly older than
// the cutoff date.
func LatestBefore(objects []Dated, cutoff time.Time, appLogger *logger.Logger) (Dated, bool) {
	older := make([]Dated, 0, len(objects))
	for _, obj := range objects {
		if obj.Date.Before(cutoff) {
			older = append(older, obj)
		}
	}
	return Latest(older, appLogger)
}

// SortNewestFirst orders dated objects by date descending, breaking date
// ties by key descending.
func SortNewestFirst(objects []Dated) {
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].Date.Equal(objects[j].Date) {
			return objects[i].Date.After(objects[j].Date)
		}
		return objects[i].Key > objects[j].Key
	})
}
