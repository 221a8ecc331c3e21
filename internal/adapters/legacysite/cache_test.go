package legacysite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	cases := map[string]string{
		"https://hyperreal.info/help/placowka/osrodek-a":                        "placowka/osrodek-a.html",
		"https://hyperreal.info/help/":                                          "index.html",
		"https://hyperreal.info/help/alfabetyczny_spis_wszystkich_placowek?litera=A&start=10": "alfabetyczny_spis_wszystkich_placowek_litera_A__start_10.html",
		"https://hyperreal.info/help/files/plan.pdf":                            "files/plan.pdf",
		"https://hyperreal.info/frames/b":                                       "frames/b.html",
	}
	for in, want := range cases {
		got, err := LocalPath("cache", in)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("cache", filepath.FromSlash(want)), got, in)
	}
}

func TestFacilityFile(t *testing.T) {
	assert.Equal(t, filepath.Join("dir", "osrodek-a.html"),
		FacilityFile("dir", "https://hyperreal.info/help/placowka/osrodek-a"))
	assert.Equal(t, filepath.Join("dir", "osrodek-a.html"),
		FacilityFile("dir", "https://hyperreal.info/help/placowka/osrodek-a#kontakt"))
}

func TestFacilityFile_MatchesCrawlerLayout(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	for _, u := range []string{
		"https://hyperreal.info/help/placowka/osrodek-b/",
		"https://hyperreal.info/help/placowka/osrodek-c?page=2",
		"https://hyperreal.info/help/placowka/osrodek-d#mapa",
	} {
		saved, err := s.Save(u, []byte("<html></html>"))
		require.NoError(t, err)
		assert.Equal(t, saved, FacilityFile(filepath.Join(s.Dir, "placowka"), u), u)
	}
}

func TestStoreAndManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := Store{Dir: dir}
	p, err := s.Save("https://hyperreal.info/help/placowka/x", []byte("<html></html>"))
	require.NoError(t, err)
	assert.FileExists(t, p)

	b, err := s.Load("https://hyperreal.info/help/placowka/x")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(b))

	mp := filepath.Join(dir, ManifestFile)
	in := []ManifestEntry{{Name: "Ośrodek", URL: "https://hyperreal.info/help/placowka/x"}}
	require.NoError(t, SaveManifest(mp, in))
	raw, _ := os.ReadFile(mp)
	assert.Contains(t, string(raw), `"nazwa": "Ośrodek"`)

	out, err := LoadManifest(mp)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestListHTML(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.html", "a.html", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	files, err := ListHTML(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.html"), filepath.Join(dir, "b.html")}, files)

	_, err = ListHTML(filepath.Join(dir, "missing"))
	assert.True(t, IsMissingDir(err))
}
