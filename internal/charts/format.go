package charts

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// printer formats counts the way the article's readers expect.
var printer = message.NewPrinter(language.CanadianFrench)

// Count formats an integer with locale thousand separators.
func Count(n int64) string {
	return printer.Sprintf("%d", n)
}

// Percent formats a 0-100 value as "42%".
func Percent(v float64) string {
	return Decimal(v) + "%"
}

// Decimal formats v with at most one decimal, using a comma separator.
func Decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return strings.Replace(s, ".", ",", 1)
}

// Integer formats v rounded to an integer.
func Integer(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// Short formats large values with an SI suffix: 150000 becomes "150k".
func Short(v float64) string {
	s := humanize.SIWithDigits(v, 0, "")
	return strings.ReplaceAll(s, " ", "")
}

var slugger = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug turns a label such as "Milieux de vie et de soins" into a css class
// token: "milieux-de-vie-et-de-soins".
func Slug(s string) string {
	plain, _, err := transform.String(slugger, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
