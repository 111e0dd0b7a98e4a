// Package mrz parses the machine-readable zone of TD3 travel
// documents (two 44-character lines, ICAO Doc 9303).
package mrz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const lineLength = 44

// Parse errors
var (
	ErrNotTD3           = errors.New("mrz: not a TD3 machine-readable zone")
	ErrCheckDigit       = errors.New("mrz: check digit mismatch")
	ErrInvalidCharacter = errors.New("mrz: invalid character")
)

// Result holds the fields decoded from a passport MRZ
type Result struct {
	DocumentNumber string     `json:"document_number"`
	Surname        string     `json:"surname"`
	GivenNames     string     `json:"given_names"`
	Nationality    string     `json:"nationality"`
	IssuingCountry string     `json:"issuing_country"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	Sex            string     `json:"sex"`
}

var countryNames = map[string]string{
	"UZB": "Uzbekistan",
	"KAZ": "Kazakhstan",
	"TJK": "Tajikistan",
	"KGZ": "Kyrgyzstan",
	"TKM": "Turkmenistan",
	"RUS": "Russia",
	"USA": "United States",
	"GBR": "United Kingdom",
	"DEU": "Germany",
	"FRA": "France",
	"TUR": "Turkey",
	"ARE": "United Arab Emirates",
	"KOR": "South Korea",
	"JPN": "Japan",
	"CHN": "China",
}

// CountryName maps an ICAO alpha-3 code to a display name, falling
// back to the code itself
func CountryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}

// charValue implements the ICAO character weighting: digits keep
// their value, A-Z map to 10-35, the filler '<' counts as zero.
func charValue(ch byte) (int, error) {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0'), nil
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10, nil
	case ch == '<':
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCharacter, ch)
}

// checkDigit computes the 7-3-1 weighted check digit over a field
func checkDigit(field string) (int, error) {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(field); i++ {
		v, err := charValue(field[i])
		if err != nil {
			return 0, err
		}
		sum += v * weights[i%3]
	}
	return sum % 10, nil
}

func verifyCheckDigit(field string, digit byte, name string) error {
	if digit < '0' || digit > '9' {
		// '<' in a check-digit slot means the field is absent.
		if digit == '<' && strings.Trim(field, "<") == "" {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrCheckDigit, name)
	}
	want, err := checkDigit(field)
	if err != nil {
		return err
	}
	if want != int(digit-'0') {
		return fmt.Errorf("%w: %s", ErrCheckDigit, name)
	}
	return nil
}

// parseDate decodes a YYMMDD date. Two-digit years up to 30 are read
// as 20xx, everything above as 19xx.
func parseDate(s string) *time.Time {
	if len(s) != 6 || strings.ContainsRune(s, '<') {
		return nil
	}
	t, err := time.Parse("060102", s)
	if err != nil {
		return nil
	}
	yy := (t.Year()) % 100
	century := 1900
	if yy <= 30 {
		century = 2000
	}
	d := time.Date(century+yy, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// cleanName converts MRZ fillers to spaces and title-cases the result
func cleanName(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "<", " "))
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Parse decodes a TD3 MRZ from raw OCR text. It scans the text for
// two consecutive 44-character MRZ lines, verifies the document
// number, birth date, expiry date and composite check digits, and
// returns the decoded fields.
func Parse(text string) (*Result, error) {
	lines := candidateLines(text)
	for i := 0; i+1 < len(lines); i++ {
		if strings.HasPrefix(lines[i], "P") {
			r, err := parseTD3(lines[i], lines[i+1])
			if err == nil {
				return r, nil
			}
			if errors.Is(err, ErrCheckDigit) || errors.Is(err, ErrInvalidCharacter) {
				return nil, err
			}
		}
	}
	return nil, ErrNotTD3
}

func candidateLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(line), " ", ""))
		if len(line) == lineLength {
			out = append(out, line)
		}
	}
	return out
}

func parseTD3(line1, line2 string) (*Result, error) {
	if len(line1) != lineLength || len(line2) != lineLength || line1[0] != 'P' {
		return nil, ErrNotTD3
	}

	issuing := strings.Trim(line1[2:5], "<")
	nameField := line1[5:]
	surname, given := "", ""
	if idx := strings.Index(nameField, "<<"); idx >= 0 {
		surname = cleanName(nameField[:idx])
		given = cleanName(nameField[idx+2:])
	} else {
		surname = cleanName(nameField)
	}

	docNumber := line2[0:9]
	if err := verifyCheckDigit(docNumber, line2[9], "document number"); err != nil {
		return nil, err
	}
	nationality := strings.Trim(line2[10:13], "<")

	birthField := line2[13:19]
	if err := verifyCheckDigit(birthField, line2[19], "birth date"); err != nil {
		return nil, err
	}
	sex := strings.Trim(line2[20:21], "<")

	expiryField := line2[21:27]
	if err := verifyCheckDigit(expiryField, line2[27], "expiry date"); err != nil {
		return nil, err
	}

	// Composite digit covers document number, birth and expiry fields
	// including their own check digits, plus the personal number field.
	composite := line2[0:10] + line2[13:20] + line2[21:43]
	if err := verifyCheckDigit(composite, line2[43], "composite"); err != nil {
		return nil, err
	}

	return &Result{
		DocumentNumber: strings.Trim(docNumber, "<"),
		Surname:        surname,
		GivenNames:     given,
		Nationality:    CountryName(nationality),
		IssuingCountry: CountryName(issuing),
		BirthDate:      parseDate(birthField),
		ExpiryDate:     parseDate(expiryField),
		Sex:            sex,
	}, nil
}
