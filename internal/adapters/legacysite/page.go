// Package legacysite reads the old Drupal-based help site: live over HTTP (crawler)
// and from the local HTML cache (importers).
package legacysite

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Main content node of a facility page.
const mainNodeSel = "div.node, div.node-osrodek, div.view-mode-full"

type Link struct {
	Text string
	Href string
}

// LabeledItem is a div.field-item together with the label of its enclosing div.field.
type LabeledItem struct {
	Label string
	Text  string
	Links []Link
}

// FacilityPage holds the fields of a facility page addressed by their Drupal field classes.
// Empty strings mean the field is absent.
type FacilityPage struct {
	Canonical       string
	Title           string
	HasMainNode     bool
	FullAddress     string
	Phone           string
	Email           string
	Website         string
	Voivodeship     string
	Places          *int
	AddictionTypes  string
	ProgramLengths  string
	TherapyTypes    string
	FacilityType    string
	Psychotherapy   string
	Counseling      string
	OtherActivities string
	ChangedDate     string
}

func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func ParseFile(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func Heading(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// Label picks the category label of a listing page: title, else first h1, else fallback.
func Label(doc *goquery.Document, fallback string) string {
	if t := Title(doc); t != "" {
		return t
	}
	if h := Heading(doc); h != "" {
		return h
	}
	return fallback
}

func Canonical(doc *goquery.Document) (string, bool) {
	href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	href = strings.TrimSpace(href)
	return href, ok && href != ""
}

// Anchors returns every anchor with an href, in document order.
func Anchors(s *goquery.Selection) []Link {
	var out []Link
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		out = append(out, Link{Text: strings.TrimSpace(a.Text()), Href: strings.TrimSpace(href)})
	})
	return out
}

// LabeledItems collects every div.field-item whose enclosing div.field carries a div.field-label.
func LabeledItems(doc *goquery.Document) []LabeledItem {
	var out []LabeledItem
	doc.Find("div.field-item").Each(func(_ int, it *goquery.Selection) {
		label := it.Closest("div.field").Find("div.field-label").First()
		if label.Length() == 0 {
			return
		}
		out = append(out, LabeledItem{
			Label: strings.TrimSpace(label.Text()),
			Text:  strings.TrimSpace(it.Text()),
			Links: Anchors(it),
		})
	})
	return out
}

// fieldText joins the non-empty items of the first matching field, or falls back
// to the whole field text minus its label.
func fieldText(node *goquery.Selection, sel string) string {
	field := node.Find(sel).First()
	if field.Length() == 0 {
		return ""
	}
	items := field.Find("div.field-item")
	if items.Length() > 0 {
		var parts []string
		items.Each(func(_ int, it *goquery.Selection) {
			if t := strings.TrimSpace(it.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		return strings.Join(parts, ", ")
	}
	label := strings.TrimSpace(field.Find("div.field-label").First().Text())
	text := strings.TrimSpace(field.Text())
	if label != "" {
		text = strings.TrimSpace(strings.Replace(text, label, "", 1))
	}
	return text
}

func linkHref(node *goquery.Selection, sel string) string {
	href, _ := node.Find(sel).First().Find("a").First().Attr("href")
	return strings.TrimSpace(href)
}

func ParseFacilityPage(doc *goquery.Document) FacilityPage {
	p := FacilityPage{Title: Title(doc)}
	p.Canonical, _ = Canonical(doc)

	node := doc.Find(mainNodeSel).First()
	if node.Length() == 0 {
		return p
	}
	p.HasMainNode = true

	p.FullAddress = fieldText(node, "div.field-name-field-adres")
	p.Phone = fieldText(node, "div.field-name-field-telefon-stacjonarny, div.field-name-field-telefon")
	if email := fieldText(node, "div.field-name-field-email"); email != "" {
		p.Email = email
		mail := node.Find("div.field-name-field-email").First().Find("a").First()
		if href, _ := mail.Attr("href"); strings.HasPrefix(href, "mailto:") {
			p.Email = strings.TrimSpace(mail.Text())
		}
	}
	p.Website = linkHref(node, "div.field-name-field-adres-strony-www, div.field-name-field-www")
	p.Voivodeship = fieldText(node, "div.field-name-field-wojewodztwo")
	if n, ok := atoiStrict(fieldText(node, "div.field-name-field-ilosc-miejsc")); ok {
		p.Places = &n
	}
	p.AddictionTypes = fieldText(node, "div.field-name-field-rodzaje-uzaleznien")
	p.ProgramLengths = fieldText(node, "div.field-name-field-dlugosc-programu")
	p.TherapyTypes = fieldText(node, "div.field-name-field-rodzaj-terapii")
	p.FacilityType = fieldText(node, "div.field-name-field-typ-placowki")
	p.Psychotherapy = fieldText(node, "div.field-name-field-psychoterapia")
	p.Counseling = fieldText(node, "div.field-name-field-poradnictwo")
	p.OtherActivities = fieldText(node, "div.field-name-field-inne-dzialania")
	p.ChangedDate = fieldText(node, "div.field-name-changed-date")
	return p
}

func atoiStrict(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
