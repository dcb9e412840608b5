package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"signdata/internal/config"
	"signdata/internal/testsupport"
)

const trainManifest = "video_id,signer,sentence,translation,annotation,instance\n" +
	"health1_signer1_rep1,signer1,s1,Καλημέρα,ΚΑΛΗΜΕΡΑ ΕΓΩ,1\n" +
	"health1_signer2_rep1,signer2,s2,Ευχαριστώ,ΕΥΧΑΡΙΣΤΩ,1\n"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	hits       *atomic.Int32
}

// setupCLITestEnv serves a one-archive-per-kind health corpus over HTTP and
// writes a config pointing at it.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SIGNDATA_CACHE_DIR", "")
	t.Setenv("SIGNDATA_CHECKSUMS", "")

	archives := map[string][]byte{
		"supplementary": testsupport.ZipBytes(t, map[string]string{"README.txt": "GSL"}),
		"GSL_split": testsupport.ZipBytes(t, map[string]string{
			"GSL_continuous/GSL-SD-train.csv": trainManifest,
		}),
		"health1": testsupport.ZipBytes(t, map[string]string{
			"health1/health1_signer1_rep1.mp4": "v1",
			"health1/health1_signer2_rep1.mp4": "v2",
		}),
		"health1_Depth": testsupport.ZipBytes(t, map[string]string{
			"health1_Depth/health1_signer1_rep1.mp4": "d1",
			"health1_Depth/health1_signer2_rep1.mp4": "d2",
		}),
	}
	hits := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".zip")
		body, ok := archives[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithURLTemplate(srv.URL+"/{name}.zip"),
		testsupport.WithScenarios(1, "health"),
	)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(home, "signdata.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, server: srv, hits: hits}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
