package portals

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the collapsed, trimmed text of a selection.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// OwnText returns only the direct text nodes of the first element.
func OwnText(s *goquery.Selection) string {
	var parts []string
	s.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if text := strings.TrimSpace(c.Text()); text != "" {
				parts = append(parts, text)
			}
		}
	})
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(parts[0]), " ")
}

// Href resolves the href of the first element against the document URL.
func Href(doc *goquery.Document, s *goquery.Selection) string {
	raw, ok := s.First().Attr("href")
	if !ok {
		return ""
	}
	return Resolve(doc, raw)
}

// Resolve makes ref absolute against the document URL when one is known.
func Resolve(doc *goquery.Document, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if doc == nil || doc.Url == nil || parsed.IsAbs() {
		return parsed.String()
	}
	return doc.Url.ResolveReference(parsed).String()
}

// LabeledValue finds the element whose own text equals label and returns
// the container matched by up, so callers can read the sibling value cell.
func LabeledValue(scope *goquery.Selection, labelSelector, label, up string) *goquery.Selection {
	var found *goquery.Selection
	scope.Find(labelSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == label {
			found = s.Closest(up)
			return false
		}
		return true
	})
	if found == nil {
		return scope.Find("#__no_match__")
	}
	return found
}
