package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/jaxxstorm/ureport/internal/credential"
	"github.com/jaxxstorm/ureport/internal/dumpdir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func testFlags(t *testing.T, url string) ServerFlags {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ureport.yaml")
	if url != "" {
		writeFile(t, cfgPath, "URL: "+url+"\nContactEmail: admin@example.org\n")
	}
	return ServerFlags{Config: cfgPath, DumpDir: t.TempDir(), Output: "json"}
}

func newTestEnv(t *testing.T, flags ServerFlags) (*env, *bytes.Buffer) {
	t.Helper()
	resolver := credential.NewResolver(credential.Options{Sources: map[string]credential.Source{}, RHTSPaths: []string{}})
	e, err := setup(context.Background(), flags, zap.NewNop(), resolver)
	require.NoError(t, err)
	t.Cleanup(e.cfg.Destroy)
	stdout := &bytes.Buffer{}
	e.stdout = stdout
	e.lookupEnv = func(string) (string, bool) { return "", false }
	return e, stdout
}

func TestSetupRequiresURL(t *testing.T) {
	flags := testFlags(t, "")
	_, err := setup(context.Background(), flags, zap.NewNop(), credential.NewResolver(credential.Options{Sources: map[string]credential.Source{}}))
	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "You need to specify server URL", cfgErr.Error())
}

func TestSetupAppliesOverrides(t *testing.T) {
	flags := testFlags(t, "https://from-file.example.org")
	flags.URL = "https://from-flag.example.org"
	flags.Insecure = true
	flags.AuthItems = []string{"hostname", "machineid"}
	e, _ := newTestEnv(t, flags)
	assert.Equal(t, "https://from-flag.example.org", e.cfg.URL)
	assert.False(t, e.cfg.SSLVerify)
	assert.Equal(t, []string{"hostname", "machineid"}, e.cfg.Prefs.AuthItems)
}

func TestSubmitKnownProblemStopsEventRun(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/faf/reports/new/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"result": true, "bthash": "abc", "message": "known",
			"reported_to": [{"reporter": "Bugzilla", "type": "url", "value": "https://bz/show_bug.cgi?id=5"}]}`))
	}))
	defer srv.Close()

	flags := testFlags(t, srv.URL+"/faf")
	writeFile(t, filepath.Join(flags.DumpDir, dumpdir.FileMicroReport), `{"reason": "SIGSEGV"}`)
	e, stdout := newTestEnv(t, flags)
	e.lookupEnv = func(key string) (string, bool) {
		if key == workflowEnv {
			return "Fedora", true
		}
		return "", false
	}

	code := e.submit(context.Background(), SubmitCmd{ServerFlags: flags})
	assert.Equal(t, exitStopEvent, code)
	assert.Equal(t, "SIGSEGV", received["reason"])
	assert.Contains(t, stdout.String(), `"classification": "KNOWN"`)

	reportedTo, err := os.ReadFile(filepath.Join(flags.DumpDir, dumpdir.FileReportedTo))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"uReport: BTHASH=abc",
		"ABRT Server: URL=" + srv.URL + "/faf/reports/bthash/abc",
		"Bugzilla: URL=https://bz/show_bug.cgi?id=5 WORKFLOW=Fedora",
		"",
	}, "\n"), string(reportedTo))
}

func TestSubmitServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid report"}`))
	}))
	defer srv.Close()

	flags := testFlags(t, srv.URL)
	writeFile(t, filepath.Join(flags.DumpDir, dumpdir.FileMicroReport), `{"reason": "x"}`)
	e, stdout := newTestEnv(t, flags)

	assert.Equal(t, exitFailure, e.submit(context.Background(), SubmitCmd{ServerFlags: flags}))
	assert.Contains(t, stdout.String(), "Server responded with an error: 'invalid report'")
	_, err := os.Stat(filepath.Join(flags.DumpDir, dumpdir.FileReportedTo))
	assert.True(t, os.IsNotExist(err))
}

func TestSubmitWithoutReportFails(t *testing.T) {
	flags := testFlags(t, "https://faf.example.org")
	e, _ := newTestEnv(t, flags)
	assert.Equal(t, exitFailure, e.submit(context.Background(), SubmitCmd{ServerFlags: flags}))
}

func TestPlanConflicts(t *testing.T) {
	flags := testFlags(t, "https://faf.example.org")
	e, _ := newTestEnv(t, flags)

	cases := map[string]AttachCmd{
		"You need to pass either -a bthash or -A":                          {BTHash: "abc", BTHashRT: true, BugID: -1},
		"You need to pass either -b bug-id or -B":                          {BTHash: "abc", BugID: 1, BugIDRT: true},
		"You need to pass either -e bthash or -E":                          {BTHash: "abc", BugID: -1, Email: "a@b", EmailEnv: true},
		"You need to pass either -o comment or -O":                         {BTHash: "abc", BugID: -1, Comment: "x", CommentFile: true},
		"You need to specify bthash of the uReport to attach.":             {BugID: 3},
		"You need to specify bug ID, contact email, comment or all of them": {BTHash: "abc", BugID: -1},
		"This problem does not have an uReport assigned.":                  {BTHashRT: true, BugID: 3},
		"This problem has not been reported to Bugzilla.":                  {BTHash: "abc", BugIDRT: true, BugID: -1},
		"Cannot attach comment from 'comment' file":                        {BTHash: "abc", BugID: -1, CommentFile: true},
	}
	for want, cmd := range cases {
		_, err := e.plan(cmd)
		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr), want)
		assert.Equal(t, want, cfgErr.Error())
	}
}

func TestPlanFromProblemDirectory(t *testing.T) {
	t.Setenv("uReport_ContactEmail", "unused")
	require.NoError(t, os.Unsetenv("uReport_ContactEmail"))
	flags := testFlags(t, "https://faf.example.org")
	dd := flags.DumpDir
	writeFile(t, filepath.Join(dd, dumpdir.FileReportedTo), strings.Join([]string{
		"Bugzilla: URL=https://bz/show_bug.cgi?id=10",
		"uReport: BTHASH=feed",
		"Bugzilla: URL=https://bz/show_bug.cgi?id=42",
	}, "\n")+"\n")
	writeFile(t, filepath.Join(dd, dumpdir.FileComment), "it crashed on resume")
	e, _ := newTestEnv(t, flags)

	p, err := e.plan(AttachCmd{BTHashRT: true, BugIDRT: true, BugID: -1, EmailEnv: true, CommentFile: true})
	require.NoError(t, err)
	assert.Equal(t, attachPlan{BTHash: "feed", BugID: 42, Email: "admin@example.org", Comment: "it crashed on resume"}, p)
}

func TestAttachStopsAtFirstRejection(t *testing.T) {
	kinds := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		kinds = append(kinds, body["type"])
		w.WriteHeader(http.StatusAccepted)
		if body["type"] == "email" {
			_, _ = w.Write([]byte(`{"result": false}`))
			return
		}
		_, _ = w.Write([]byte(`{"result": true}`))
	}))
	defer srv.Close()

	flags := testFlags(t, srv.URL)
	e, stdout := newTestEnv(t, flags)

	code := e.attach(context.Background(), AttachCmd{BTHash: "abc", BugID: 7, Email: "a@example.org", Comment: "note"})
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, []string{"RHBZ", "email"}, kinds)
	assert.Contains(t, stdout.String(), `"classification": "ATTACH_REJECTED"`)
}

func TestAttachAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"result": true}`))
	}))
	defer srv.Close()

	flags := testFlags(t, srv.URL)
	e, _ := newTestEnv(t, flags)
	assert.Equal(t, exitOK, e.attach(context.Background(), AttachCmd{BTHash: "abc", BugID: -1, Comment: "note"}))
}
