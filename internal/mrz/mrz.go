// Package mrz parses ICAO 9303 TD3 machine-readable zones from passport
// scans. OCR output is noisy, so a failed check digit marks the field as
// suspect instead of rejecting the whole zone.
package mrz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const lineLen = 44

var ErrNotTD3 = errors.New("mrz: not a TD3 zone")

// Field is one parsed MRZ value with its check-digit status.
type Field struct {
	Value   string `json:"value"`
	Suspect bool   `json:"suspect,omitempty"` // check digit failed; likely OCR misread
}

// Zone is the parsed TD3 machine-readable zone.
type Zone struct {
	DocumentType   string `json:"document_type"`
	IssuingState   string `json:"issuing_state"`
	Surnames       string `json:"surnames"`
	GivenNames     string `json:"given_names"`
	Number         Field  `json:"number"`
	Nationality    string `json:"nationality"`
	BirthDate      Field  `json:"birth_date"`  // YYYY-MM-DD
	Sex            string `json:"sex"`         // M, F or ""
	ExpiryDate     Field  `json:"expiry_date"` // YYYY-MM-DD
	PersonalNumber Field  `json:"personal_number"`
	CompositeOK    bool   `json:"composite_ok"`
}

// Parse decodes a two-line TD3 zone. Lines shorter than 44 characters are
// right-padded with filler before parsing, since OCR tends to drop trailing
// filler characters.
func Parse(line1, line2 string, now time.Time) (*Zone, error) {
	line1 = pad(strings.ToUpper(strings.TrimSpace(line1)))
	line2 = pad(strings.ToUpper(strings.TrimSpace(line2)))
	if len(line1) != lineLen || len(line2) != lineLen {
		return nil, ErrNotTD3
	}
	if line1[0] != 'P' {
		return nil, fmt.Errorf("%w: document type %q", ErrNotTD3, line1[0])
	}

	z := &Zone{
		DocumentType: strings.Trim(line1[0:2], "<"),
		IssuingState: strings.Trim(line1[2:5], "<"),
		Nationality:  strings.Trim(line2[10:13], "<"),
	}

	z.Surnames, z.GivenNames = splitNames(line1[5:44])

	z.Number = checkedField(line2[0:9], line2[9])
	z.BirthDate = dateField(line2[13:19], line2[19], false, now)
	z.ExpiryDate = dateField(line2[21:27], line2[27], true, now)
	z.PersonalNumber = checkedField(line2[28:42], line2[42])

	switch line2[20] {
	case 'M':
		z.Sex = "M"
	case 'F':
		z.Sex = "F"
	}

	composite := line2[0:10] + line2[13:20] + line2[21:43]
	z.CompositeOK = checkDigit(composite) == digitVal(line2[43])

	return z, nil
}

// ParseLines finds a TD3 zone in free-form OCR output by scanning for two
// consecutive 40+ character candidate lines.
func ParseLines(lines []string, now time.Time) (*Zone, error) {
	var candidates []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if len(l) >= 40 && isMRZLine(l) {
			candidates = append(candidates, l)
		}
	}
	for i := 0; i+1 < len(candidates); i++ {
		if z, err := Parse(candidates[i], candidates[i+1], now); err == nil {
			return z, nil
		}
	}
	return nil, ErrNotTD3
}

func checkedField(raw string, check byte) Field {
	return Field{
		Value:   strings.Trim(raw, "<"),
		Suspect: checkDigit(raw) != digitVal(check),
	}
}

func dateField(raw string, check byte, future bool, now time.Time) Field {
	f := Field{Suspect: checkDigit(raw) != digitVal(check)}
	t, err := time.Parse("060102", raw)
	if err != nil {
		f.Suspect = true
		return f
	}
	// time.Parse pivots 2-digit years at 69; re-pivot for the document's
	// plausible window: birth dates are in the past, expiry within ~+50y.
	if !future && t.After(now) {
		t = t.AddDate(-100, 0, 0)
	}
	if future && t.After(now.AddDate(50, 0, 0)) {
		t = t.AddDate(-100, 0, 0)
	}
	f.Value = t.Format("2006-01-02")
	return f
}

func splitNames(raw string) (surnames, givenNames string) {
	parts := strings.SplitN(raw, "<<", 2)
	surnames = strings.ReplaceAll(strings.Trim(parts[0], "<"), "<", " ")
	if len(parts) == 2 {
		givenNames = strings.ReplaceAll(strings.Trim(parts[1], "<"), "<", " ")
	}
	return surnames, givenNames
}

var weights = []int{7, 3, 1}

// checkDigit computes the ICAO 9303 check digit (7-3-1 weighting) over a
// field. Characters outside [0-9A-Z<] poison the result so the field reads
// as suspect.
func checkDigit(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		v := digitVal(s[i])
		if v < 0 {
			return -1
		}
		sum += v * weights[i%3]
	}
	return sum % 10
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c == '<':
		return 0
	}
	return -2
}

func isMRZLine(l string) bool {
	fillers := strings.Count(l, "<")
	return fillers > 2 || strings.HasPrefix(l, "P<")
}

func pad(l string) string {
	if len(l) < lineLen {
		l += strings.Repeat("<", lineLen-len(l))
	}
	if len(l) > lineLen {
		l = l[:lineLen]
	}
	return l
}
