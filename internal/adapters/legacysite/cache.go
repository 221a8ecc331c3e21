package legacysite

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ManifestFile is the crawler's list of facilities found on the legacy site.
const ManifestFile = "placowki_data.json"

type ManifestEntry struct {
	Name      string `json:"nazwa"`
	URL       string `json:"url_oryginalny_tresci"`
	ParentURL string `json:"url_strony_nadrzednej,omitempty"`
}

var unsafeName = strings.NewReplacer("?", "_", ":", "_", "*", "_", "|", "_", "<", "_", ">", "_", `"`, "_")

// LocalPath maps a page URL onto the cache tree: the path is mirrored under dir
// (minus the leading "help/"), the query is folded into the file name and pages
// without an extension get ".html".
func LocalPath(dir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("cache path %q: %w", rawURL, err)
	}
	p := strings.TrimPrefix(u.EscapedPath(), "/")
	p = strings.TrimPrefix(p, "help/")
	if u.RawQuery != "" {
		q := strings.NewReplacer("=", "_", "&", "__").Replace(u.RawQuery)
		p = strings.TrimRight(p, "/") + "_" + q
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p = unsafeName.Replace(p)

	var sub, name string
	switch {
	case p == "" || strings.HasSuffix(p, "/"):
		sub, name = p, "index.html"
	case !strings.Contains(path.Base(p), "."):
		sub, name = path.Dir(p), path.Base(p)+".html"
	default:
		sub, name = path.Dir(p), path.Base(p)
	}
	return filepath.Join(dir, filepath.FromSlash(sub), name), nil
}

// FacilityFile is where the cached page of a facility URL lives inside the placowka folder.
// It follows LocalPath so query strings and trailing slashes resolve to the file the crawler wrote.
func FacilityFile(placowkaDir, rawURL string) string {
	rel, err := LocalPath("", rawURL)
	if err != nil {
		return filepath.Join(placowkaDir, path.Base(rawURL)+".html")
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "placowka/")
	return filepath.Join(placowkaDir, filepath.FromSlash(rel))
}

// ListHTML returns the .html files of dir sorted by name.
func ListHTML(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func IsMissingDir(err error) bool { return errors.Is(err, os.ErrNotExist) }

// Store writes fetched pages into the cache tree.
type Store struct{ Dir string }

func (s Store) Path(rawURL string) (string, error) { return LocalPath(s.Dir, rawURL) }

func (s Store) Save(rawURL string, body []byte) (string, error) {
	p, err := s.Path(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("cache mkdir: %w", err)
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("cache write: %w", err)
	}
	return p, nil
}

func (s Store) Load(rawURL string) ([]byte, error) {
	p, err := s.Path(rawURL)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func LoadManifest(p string) ([]ManifestEntry, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var out []ManifestEntry
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", p, err)
	}
	return out, nil
}

func SaveManifest(p string, entries []ManifestEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o644)
}
