package auth

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HasLoginSignature reports whether html still shows a login page: a
// password-type input inside a form. This is the session-expiry signature —
// its presence in a page expected to contain authenticated data means the
// session is gone.
func HasLoginSignature(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable content cannot be a login form.
		return false
	}

	found := false
	doc.Find("form").EachWithBreak(func(i int, form *goquery.Selection) bool {
		form.Find("input").EachWithBreak(func(j int, input *goquery.Selection) bool {
			if typ, _ := input.Attr("type"); strings.EqualFold(typ, "password") {
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return found
}
