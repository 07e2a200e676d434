package corpus

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tbd54566975/did-resolution-conformance/internal/util"
)

var (
	xmlDateTimePattern = regexp.MustCompile(`^(-?\d{4,})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(\.\d+)?(Z|[+-](\d{2}):(\d{2}))?$`)
	normalizedPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)
	didPattern         = regexp.MustCompile(`^did:[a-z0-9]+:(?:(?:[A-Za-z0-9._-]|%[0-9A-Fa-f]{2})*:)*(?:[A-Za-z0-9._-]|%[0-9A-Fa-f]{2})+$`)
)

// IsASCII reports whether s only holds ASCII characters.
func IsASCII(s string) bool {
	return util.IsASCII(s)
}

// IsPercentEncoded reports whether s only uses characters allowed unescaped in a relative reference path, with every
// other octet percent-encoded.
func IsPercentEncoded(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte("-._~!$&'()*+,;=:@/", c) >= 0:
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

// IsXMLDateTime reports whether s is a valid XSD 1.1 dateTime lexical value.
func IsXMLDateTime(s string) bool {
	m := xmlDateTimePattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])

	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return false
	}
	if minute > 59 || second > 59 {
		return false
	}
	if hour > 24 || (hour == 24 && (minute != 0 || second != 0 || (m[7] != "" && strings.Trim(m[7], ".0") != ""))) {
		return false
	}
	if m[9] != "" {
		tzHour, _ := strconv.Atoi(m[9])
		tzMinute, _ := strconv.Atoi(m[10])
		if tzMinute > 59 || tzHour > 14 || (tzHour == 14 && tzMinute != 0) {
			return false
		}
	}
	return true
}

// IsNormalizedVersionTime reports whether s is an XML datetime in UTC ('Z') without sub-second precision.
func IsNormalizedVersionTime(s string) bool {
	return normalizedPattern.MatchString(s) && IsXMLDateTime(s)
}

// IsDID reports whether s is a conformant DID (no path, query or fragment).
func IsDID(s string) bool {
	return didPattern.MatchString(s)
}

// IsDIDURL reports whether s is a DID optionally followed by a path, query and fragment.
func IsDIDURL(s string) bool {
	end := strings.IndexAny(s, "/?#")
	if end < 0 {
		return IsDID(s)
	}
	if !IsDID(s[:end]) {
		return false
	}
	rest := s[end:]
	if !IsASCII(rest) || strings.ContainsAny(rest, " \t\r\n") {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] == '%' && (i+2 >= len(rest) || !isHex(rest[i+1]) || !isHex(rest[i+2])) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
