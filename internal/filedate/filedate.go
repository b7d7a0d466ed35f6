// Package filedate pulls the publication date out of document filenames.
package filedate

import "regexp"

// pattern matches "(2024)09-03": year in parentheses, then month-day.
var pattern = regexp.MustCompile(`\((\d{4})\)(\d{2})-(\d{2})`)

// Parse returns the first "(YYYY)MM-DD" sequence in filename as "YYYY-MM-DD".
// The groups are copied as-is; "(2024)13-40" yields "2024-13-40".
// ok is false when the filename has no such sequence.
func Parse(filename string) (date string, ok bool) {
	m := pattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1] + "-" + m[2] + "-" + m[3], true
}
