package hcl

import (
	"fmt"
	"strings"
	"time"
)

// namedMasks are the predefined dateformat masks.
var namedMasks = map[string]string{
	"default":        "ddd mmm dd yyyy HH:MM:ss",
	"shortDate":      "m/d/yy",
	"mediumDate":     "mmm d, yyyy",
	"longDate":       "mmmm d, yyyy",
	"fullDate":       "dddd, mmmm d, yyyy",
	"shortTime":      "h:MM TT",
	"mediumTime":     "h:MM:ss TT",
	"longTime":       "h:MM:ss TT Z",
	"isoDate":        "yyyy-mm-dd",
	"isoTime":        "HH:MM:ss",
	"isoDateTime":    "yyyy-mm-dd'T'HH:MM:ss",
	"isoUtcDateTime": "UTC:yyyy-mm-dd'T'HH:MM:ss'Z'",
}

// dateTokens is ordered longest first within each letter.
var dateTokens = []string{
	"yyyy", "yy",
	"mmmm", "mmm", "mm", "m",
	"dddd", "ddd", "dd", "d",
	"HH", "H", "hh", "h",
	"MM", "M",
	"ss", "s",
	"TT", "T", "tt", "t",
	"L", "l", "Z", "o", "S",
}

// FormatDate renders t using a dateformat-style mask such as "yyyy-mm-dd".
// Text in single or double quotes is copied verbatim; a "UTC:" prefix
// formats in UTC.
func FormatDate(t time.Time, mask string) string {
	if named, ok := namedMasks[mask]; ok {
		mask = named
	}
	if rest, ok := strings.CutPrefix(mask, "UTC:"); ok {
		mask = rest
		t = t.UTC()
	}

	var b strings.Builder
	for i := 0; i < len(mask); {
		ch := mask[i]
		if ch == '\'' || ch == '"' {
			end := strings.IndexByte(mask[i+1:], ch)
			if end < 0 {
				b.WriteString(mask[i+1:])
				break
			}
			b.WriteString(mask[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(mask[i:], tok) {
				b.WriteString(dateToken(t, tok))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

func dateToken(t time.Time, tok string) string {
	hour12 := t.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	switch tok {
	case "yyyy":
		return fmt.Sprintf("%04d", t.Year())
	case "yy":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "mmmm":
		return t.Month().String()
	case "mmm":
		return t.Month().String()[:3]
	case "mm":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "m":
		return fmt.Sprint(int(t.Month()))
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "dd":
		return fmt.Sprintf("%02d", t.Day())
	case "d":
		return fmt.Sprint(t.Day())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return fmt.Sprint(t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", hour12)
	case "h":
		return fmt.Sprint(hour12)
	case "MM":
		return fmt.Sprintf("%02d", t.Minute())
	case "M":
		return fmt.Sprint(t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return fmt.Sprint(t.Second())
	case "l":
		return fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
	case "L":
		return fmt.Sprintf("%02d", t.Nanosecond()/int(10*time.Millisecond))
	case "t":
		return ampm(t, "a", "p")
	case "tt":
		return ampm(t, "am", "pm")
	case "T":
		return ampm(t, "A", "P")
	case "TT":
		return ampm(t, "AM", "PM")
	case "Z":
		return t.Format("MST")
	case "o":
		return t.Format("-0700")
	case "S":
		return ordinal(t.Day())
	}
	return tok
}

func ampm(t time.Time, am, pm string) string {
	if t.Hour() < 12 {
		return am
	}
	return pm
}

func ordinal(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
