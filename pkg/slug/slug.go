package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var latinFold = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "å", "a", "ã", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ğ", "g", "ş", "s", "ß", "ss",
	"&", " and ",
)

// Generate derives a URL slug from a product name, e.g.
// "Seductive Lace Bra Set" becomes "seductive-lace-bra-set".
func Generate(name string) string {
	s := latinFold.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Ensure returns current when it is non-empty and otherwise generates a
// slug from name.
func Ensure(current, name string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return Generate(name)
}
