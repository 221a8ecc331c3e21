package legacysite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const facilityHTML = `<html><head>
<title>Ośrodek Terapii Uzależnień | Hyperreal [H]elp - chcemy pomóc</title>
<link rel="canonical" href="/help/placowka/osrodek-terapii" />
</head><body>
<div class="node node-osrodek view-mode-full">
  <div class="field field-name-field-adres"><div class="field-label">Adres:</div>
    <div class="field-items"><div class="field-item">ul. Leśna 5, 00-001 Warszawa</div></div></div>
  <div class="field field-name-field-telefon"><div class="field-label">Telefon:</div>
    <div class="field-items"><div class="field-item">22 123 45 67</div><div class="field-item"> </div></div></div>
  <div class="field field-name-field-email"><div class="field-label">Email:</div>
    <div class="field-items"><div class="field-item"><a href="mailto:kontakt@osrodek.pl">kontakt@osrodek.pl</a></div></div></div>
  <div class="field field-name-field-www"><div class="field-label">Strona www:</div>
    <div class="field-items"><div class="field-item"><a href="http://osrodek.pl">osrodek.pl</a></div></div></div>
  <div class="field field-name-field-ilosc-miejsc"><div class="field-label">Ilość miejsc:</div>
    <div class="field-items"><div class="field-item">30</div></div></div>
  <div class="field field-name-field-rodzaje-uzaleznien"><div class="field-label">Rodzaj uzależnień:</div>
    <div class="field-items">
      <div class="field-item"><a href="/help/rodzaj_uzaleznien/alkohol">Uzależnienie od alkoholu</a></div>
      <div class="field-item"><a href="/help/rodzaj_uzaleznien/narkotyki">Narkotyki</a></div>
    </div></div>
  <div class="field field-name-changed-date"><div class="field-label">Zmieniono:</div>2015-03-01</div>
</div>
</body></html>`

func TestParseFacilityPage(t *testing.T) {
	doc, err := Parse(strings.NewReader(facilityHTML))
	require.NoError(t, err)

	p := ParseFacilityPage(doc)
	assert.True(t, p.HasMainNode)
	assert.Equal(t, "/help/placowka/osrodek-terapii", p.Canonical)
	assert.Equal(t, "ul. Leśna 5, 00-001 Warszawa", p.FullAddress)
	assert.Equal(t, "22 123 45 67", p.Phone)
	assert.Equal(t, "kontakt@osrodek.pl", p.Email)
	assert.Equal(t, "http://osrodek.pl", p.Website)
	require.NotNil(t, p.Places)
	assert.Equal(t, 30, *p.Places)
	assert.Equal(t, "Uzależnienie od alkoholu, Narkotyki", p.AddictionTypes)
	assert.Equal(t, "2015-03-01", p.ChangedDate)
	assert.Empty(t, p.Voivodeship)
}

func TestParseFacilityPage_NoMainNode(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<html><head><title>Pusta</title></head><body><p>x</p></body></html>`))
	require.NoError(t, err)
	p := ParseFacilityPage(doc)
	assert.False(t, p.HasMainNode)
	assert.Equal(t, "Pusta", p.Title)
}

func TestLabeledItems(t *testing.T) {
	doc, err := Parse(strings.NewReader(facilityHTML))
	require.NoError(t, err)

	items := LabeledItems(doc)
	require.Len(t, items, 8)
	assert.Equal(t, "Adres:", items[0].Label)
	assert.Equal(t, "Rodzaj uzależnień:", items[6].Label)
	require.Len(t, items[6].Links, 1)
	assert.Equal(t, "Uzależnienie od alkoholu", items[6].Links[0].Text)
}

func TestLabel(t *testing.T) {
	doc, _ := Parse(strings.NewReader(`<html><body><h1>Poradnia</h1></body></html>`))
	assert.Equal(t, "Poradnia", Label(doc, "fallback"))

	doc, _ = Parse(strings.NewReader(`<html><body><p>none</p></body></html>`))
	assert.Equal(t, "fallback", Label(doc, "fallback"))
}
