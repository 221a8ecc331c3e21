//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "help_directory/internal/adapters/http_server"
	"help_directory/internal/app"
	"help_directory/internal/domain"
	mysqlrepo "help_directory/internal/storage/mysql"
)

func pstr(s string) *string     { return &s }
func pfloat(f float64) *float64 { return &f }

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations")
	}
	ents, err := os.ReadDir(dir)
	require.NoError(t, err, "read migrations dir %s", dir)

	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	require.NotEmpty(t, files, "no .sql files in %s", dir)
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = db.Exec(string(b))
		require.NoError(t, err, "exec %s", f)
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=help_directory",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/help_directory?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	require.NoError(t, pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHTTP_EndToEnd_Directory(t *testing.T) {
	db := startMySQL(t)
	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()
	nop := zerolog.Nop()

	_, err := repo.UpsertEntry(ctx, domain.AddictionType, "Alkohol", "alkohol")
	require.NoError(t, err)
	_, err = repo.UpsertEntry(ctx, domain.Voivodeship, "mazowieckie", "mazowieckie")
	require.NoError(t, err)

	f := domain.Facility{
		Name:               "Poradnia Terapii Uzależnień",
		Slug:               "poradnia-terapii-uzaleznien",
		AddressCity:        pstr("Warszawa"),
		Voivodeship:        pstr("mazowieckie"),
		SourceURL:          pstr("https://legacy.example/help/placowka/1"),
		AddictionTypesText: pstr("Alkohol"),
		Lat:                pfloat(52.23),
		Lon:                pfloat(21.01),
	}
	require.NoError(t, repo.InsertFacility(ctx, &f))

	rep, err := app.NewLinkageService(repo, repo, nil, nop).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Linked)

	res, err := db.Exec(`INSERT INTO users (username, email) VALUES ('ola', 'ola@example.pl')`)
	require.NoError(t, err)
	uid, err := res.LastInsertId()
	require.NoError(t, err)

	srv := server.New(nop, 5*time.Second)
	srv.MountHandlers(&server.Handlers{
		Q: app.NewQueryService(repo, nil, time.Minute),
		C: app.NewCommunityService(repo, nil, nop),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)

	t.Run("facility detail carries linked classifications", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/v1/facilities/" + f.Slug)
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var v domain.FacilityView
		require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
		assert.Equal(t, f.Name, v.Name)
		require.Len(t, v.Classifications[domain.AddictionType], 1)
		assert.Equal(t, "alkohol", v.Classifications[domain.AddictionType][0].Slug)
		require.NotNil(t, v.Coords)
		assert.InDelta(t, 52.23, v.Coords.Lat, 1e-6)
	})

	t.Run("category listing and search", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/v1/categories/rodzaj-uzaleznien/alkohol")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
		var l domain.CategoryListing
		require.NoError(t, json.NewDecoder(res.Body).Decode(&l))
		require.Len(t, l.Facilities, 1)
		assert.Equal(t, f.Slug, l.Facilities[0].Slug)

		res2, err := http.Get(ts.URL + "/v1/facilities?q=poradnia&rodzaj-uzaleznien=alkohol")
		require.NoError(t, err)
		defer res2.Body.Close()
		var page domain.FacilityPage
		require.NoError(t, json.NewDecoder(res2.Body).Decode(&page))
		require.Len(t, page.Items, 1)
	})

	t.Run("comment is stored but hidden until approved", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/facilities/"+f.Slug+"/comments",
			strings.NewReader(`{"content":"Bardzo pomocni terapeuci."}`))
		require.NoError(t, err)
		req.Header.Set(server.UserHeader, fmt.Sprint(uid))
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusCreated, res.StatusCode)

		res2, err := http.Get(ts.URL + "/v1/facilities/" + f.Slug)
		require.NoError(t, err)
		defer res2.Body.Close()
		var v domain.FacilityView
		require.NoError(t, json.NewDecoder(res2.Body).Decode(&v))
		assert.Empty(t, v.Comments)
	})
}
