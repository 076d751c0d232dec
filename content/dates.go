package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is the site's display locale.
var DefaultLocale = language.BrazilianPortuguese

// prismicLayout is the timestamp layout the CMS API emits (no colon in the offset).
const prismicLayout = "2006-01-02T15:04:05-0700"

type monthNames struct {
	short [12]string
	long  [12]string
}

var (
	supportedLocales = []language.Tag{
		language.BrazilianPortuguese,
		language.English,
		language.Spanish,
	}
	localeMatcher = language.NewMatcher(supportedLocales)

	months = []monthNames{
		{
			short: [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
			long:  [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
		},
		{
			short: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
			long:  [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		},
		{
			short: [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
			long:  [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		},
	}
)

// ParseTimestamp parses a CMS timestamp. Both the API's own layout and
// RFC 3339 are accepted.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range []string{prismicLayout, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}

// DateFormatter renders timestamps for display in a fixed locale and zone.
type DateFormatter struct {
	Locale   language.Tag
	Location *time.Location
}

// NewDateFormatter builds a formatter for a BCP 47 locale tag and an IANA
// zone name. Empty values select DefaultLocale and UTC.
func NewDateFormatter(locale, zone string) (*DateFormatter, error) {
	f := &DateFormatter{Locale: DefaultLocale, Location: time.UTC}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("content: locale %q: %w", locale, err)
		}
		f.Locale = tag
	}
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("content: time zone %q: %w", zone, err)
		}
		f.Location = loc
	}
	return f, nil
}

// Format renders ts with a date-fns style pattern in the formatter's locale.
func (f *DateFormatter) Format(ts *time.Time, pattern string) (string, error) {
	return FormatDate(ts, pattern, f.Locale, f.Location)
}

// FormatIn renders ts in an explicit locale, overriding the default.
func (f *DateFormatter) FormatIn(ts *time.Time, pattern, locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = f.Locale
	}
	return FormatDate(ts, pattern, tag, f.Location)
}

// Hour returns the hour of ts in the formatter's zone.
func (f *DateFormatter) Hour(ts *time.Time) (int, error) {
	if ts == nil {
		return 0, ErrInvalidTimestamp
	}
	return ts.In(f.location()).Hour(), nil
}

// Minute returns the minute of ts in the formatter's zone.
func (f *DateFormatter) Minute(ts *time.Time) (int, error) {
	if ts == nil {
		return 0, ErrInvalidTimestamp
	}
	return ts.In(f.location()).Minute(), nil
}

func (f *DateFormatter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// FormatDate renders ts using date-fns pattern letters:
//
//	d dd M MM MMM MMMM y yy yyy yyyy H HH h hh m mm s ss a
//
// Text inside single quotes is copied verbatim and '' is a literal quote.
// Letters outside that set are copied as-is, so a valid timestamp never fails.
func FormatDate(ts *time.Time, pattern string, locale language.Tag, loc *time.Location) (string, error) {
	if ts == nil {
		return "", ErrInvalidTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}
	t := ts.In(loc)
	_, idx, _ := localeMatcher.Match(locale)
	names := months[idx]

	runes := []rune(pattern)
	var b strings.Builder
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						b.WriteRune('\'')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteRune(runes[i])
				i++
			}
			continue
		}
		if !isASCIILetter(r) {
			b.WriteRune(r)
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		b.WriteString(formatToken(t, r, j-i, names))
		i = j
	}
	return b.String(), nil
}

func formatToken(t time.Time, letter rune, n int, names monthNames) string {
	switch letter {
	case 'd':
		return pad(t.Day(), n)
	case 'M':
		switch {
		case n <= 2:
			return pad(int(t.Month()), n)
		case n == 3:
			return names.short[t.Month()-1]
		default:
			return names.long[t.Month()-1]
		}
	case 'y':
		if n == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), n)
	case 'H':
		return pad(t.Hour(), n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'a':
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	}
	return strings.Repeat(string(letter), n)
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
