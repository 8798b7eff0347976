package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zonetrends/internal/store"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET", "DASH_USER", "DASH_PW"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"strava":{"client_id":"123","client_secret":"s"}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"login": false, "accounts": false, "report": false, "serve": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %q command", name)
		}
	}
}

func TestAccountsCmd_ListAndRemove(t *testing.T) {
	cfgPath := writeConfig(t)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	out, err := execute(t, "accounts", "--config", cfgPath, "--db", dbPath)
	if err != nil {
		t.Fatalf("accounts error = %v", err)
	}
	if !strings.Contains(out, "No accounts linked") {
		t.Errorf("output = %q, want empty-list message", out)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.SaveAccount(&store.Account{Name: "alice", AthleteID: 77, AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(3 * time.Hour)}); err != nil {
		t.Fatalf("SaveAccount() error = %v", err)
	}
	db.Close()

	out, err = execute(t, "accounts", "--config", cfgPath, "--db", dbPath)
	if err != nil {
		t.Fatalf("accounts error = %v", err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "77") {
		t.Errorf("output = %q, want alice / 77", out)
	}

	out, err = execute(t, "accounts", "remove", "alice", "--config", cfgPath, "--db", dbPath)
	if err != nil {
		t.Fatalf("accounts remove error = %v", err)
	}
	if !strings.Contains(out, `Removed "alice"`) {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, "accounts", "remove", "alice", "--config", cfgPath, "--db", dbPath); err == nil {
		t.Error("removing a missing account succeeded")
	}
}

func TestReportCmd_RequiresAccount(t *testing.T) {
	cfgPath := writeConfig(t)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	_, err := execute(t, "report", "--config", cfgPath, "--db", dbPath)
	if err == nil || !strings.Contains(err.Error(), "--account") {
		t.Errorf("report error = %v, want --account hint", err)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	writeConfig(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"strava":{"client_id":"YOUR_CLIENT_ID","client_secret":"s"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "accounts", "--config", path, "--db", filepath.Join(t.TempDir(), "data.db"))
	if err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Errorf("accounts error = %v, want client_id validation error", err)
	}
}

func TestPrintAccounts(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printAccounts(&buf, []store.Account{
		{Name: "alice", AthleteID: 1, ExpiresAt: now.Add(2 * time.Hour)},
		{Name: "bob", AthleteID: 2, ExpiresAt: now.Add(-time.Minute)},
	}, now)

	out := buf.String()
	if !strings.Contains(out, "token expires 2 hours from now") {
		t.Errorf("output = %q, want alice expiry", out)
	}
	if !strings.Contains(out, "token refresh due") {
		t.Errorf("output = %q, want bob refresh due", out)
	}
}

func TestMissingConfigCreatesExample(t *testing.T) {
	writeConfig(t)
	path := filepath.Join(t.TempDir(), "fresh", "config.json")

	out, err := execute(t, "accounts", "--config", path, "--db", filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("accounts error = %v, want clean exit", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output = %q, want config path", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("example config not written: %v", err)
	}
}

func TestUnknownActivityTypeWarns(t *testing.T) {
	writeConfig(t)
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"strava":{"client_id":"1","client_secret":"s"},"window":{"activity_type":"Swim"}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "accounts", "--config", path, "--db", filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("accounts error = %v", err)
	}
	if !strings.Contains(out, "activity_type_literal") || !strings.Contains(out, "activity_type=Swim") {
		t.Errorf("output = %q, want literal activity type warning", out)
	}
}
