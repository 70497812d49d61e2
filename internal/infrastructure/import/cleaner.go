package csvimport

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Encoding is a source text encoding the cleaner can recognise
type Encoding string

const (
	EncodingUTF8        Encoding = "UTF-8"
	EncodingWindows1252 Encoding = "Windows-1252"
	EncodingISO88591    Encoding = "ISO-8859-1"
)

var (
	validate        = validator.New()
	refractionToken = regexp.MustCompile(`[+-]?(?:\d+(?:\.\d+)?|\.\d+)`)
)

// DetectEncoding classifies raw bytes. Valid UTF-8 wins. Otherwise any byte
// in 0x80-0x9F that Windows-1252 defines selects Windows-1252, since
// ISO-8859-1 only has control codes there.
func DetectEncoding(raw []byte) Encoding {
	if utf8.Valid(raw) {
		return EncodingUTF8
	}
	for _, b := range raw {
		if b >= 0x80 && b <= 0x9F && windows1252Defined(b) {
			return EncodingWindows1252
		}
	}
	return EncodingISO88591
}

func windows1252Defined(b byte) bool {
	switch b {
	case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
		return false
	}
	return true
}

// NormalizeUTF8 transcodes a cell to UTF-8 and strips NUL and vertical tab
// characters. Undecodable input is sanitized instead of rejected.
func NormalizeUTF8(raw []byte) string {
	var s string
	switch DetectEncoding(raw) {
	case EncodingUTF8:
		s = string(raw)
	case EncodingWindows1252:
		s = decodeOrSanitize(raw, charmap.Windows1252)
	default:
		s = decodeOrSanitize(raw, charmap.ISO8859_1)
	}
	return stripControl(s)
}

func decodeOrSanitize(raw []byte, cm *charmap.Charmap) string {
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(out) {
		return strings.ToValidUTF8(string(raw), "")
	}
	return string(out)
}

func stripControl(s string) string {
	if !strings.ContainsAny(s, "\x00\v") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == 0x00 || r == '\v' {
			return -1
		}
		return r
	}, s)
}

// trimSpaces trims every Unicode space, including the NBSP spreadsheets emit
func trimSpaces(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}

// CleanString normalizes and trims a cell; an empty result is absent
func CleanString(s string) (string, bool) {
	s = trimSpaces(NormalizeUTF8([]byte(s)))
	return s, s != ""
}

// isAbsent reports the placeholder values exports use for "no value"
func isAbsent(s string) bool {
	return s == "" || s == "0"
}

// CleanPhone keeps digits and one leading '+'. Empty, "0" or digitless
// input is absent. CleanPhone(CleanPhone(x)) == CleanPhone(x).
func CleanPhone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if isAbsent(s) {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(s))
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}

	out := b.String()
	if digits == 0 || isAbsent(out) {
		return "", false
	}
	return out, true
}

// CleanEmail trims and validates an email, keeping its case. Invalid input is absent, not an error.
func CleanEmail(s string) (string, bool) {
	s = trimSpaces(s)
	if isAbsent(s) {
		return "", false
	}
	if err := validate.Var(s, "required,email"); err != nil {
		return "", false
	}
	return s, true
}

// CleanAmount strips everything except digits and '.', keeping a leading
// minus sign. Absent or unparseable input yields zero.
func CleanAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-") || (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

// CleanRefraction turns values such as "-1,25", "+ 0.50 D" or "pl -2" into
// the first signed decimal token. No token means absent.
func CleanRefraction(s string) (string, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.Join(strings.Fields(s), "")
	token := refractionToken.FindString(s)
	if token == "" {
		return "", false
	}
	return token, true
}

// CleanIdentification keeps only the digits of an RNC or cedula
func CleanIdentification(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if strings.Trim(out, "0") == "" {
		return "", false
	}
	return out, true
}
