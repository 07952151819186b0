package booking

import (
	"regexp"
	"strconv"
	"strings"
)

var folioPattern = regexp.MustCompile(`^VT-(\d{1,10})$`)

// ParseFolio extracts the reservation id from a folio such as "VT-0042" or
// from bare digits.
func ParseFolio(raw string) (uint64, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	digits := s
	if m := folioPattern.FindStringSubmatch(s); m != nil {
		digits = m[1]
	}
	if digits == "" || len(digits) > 10 {
		return 0, Validation("invalid folio")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, Validation("invalid folio")
		}
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || id == 0 {
		return 0, Validation("invalid folio")
	}
	return id, nil
}
