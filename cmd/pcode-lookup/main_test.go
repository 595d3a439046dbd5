package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const adminCSV = `Location,Admin Level,P-Code,Name,Parent P-Code
#country+code,#geo+admin_level,#adm+code,#adm+name,#adm+code+parent
AFG,1,AF01,Kabul,AFG
AFG,2,AF0101,Kabul,AF01
AFG,2,AF0102,Paghman,AF01
YEM,1,YE30,"Al Dhale'e",YEM
YEM,2,YE3001,Juban,YE30
`

const configYAML = `
admin_name_mappings:
  "AFG|Kabol": AF01
admin_name_replacements:
  "'": ""
  "/": " "
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLookupCommand(t *testing.T) {
	dir := t.TempDir()
	admin := writeFile(t, dir, "admin.csv", adminCSV)
	config := writeFile(t, dir, "config.yaml", configYAML)

	out, err := run(t, "--admin", admin, "--config", config, "lookup", "AFG", "Kabul", "Kabol", "AF0102", "Nowhere")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	want := "Kabul\tAF01\ttrue\nKabol\tAF01\ttrue\nAF0102\tAF0102\ttrue\nNowhere\t\ttrue\n"
	if out != want {
		t.Errorf("lookup output:\n%s\nwant:\n%s", out, want)
	}

	out, err = run(t, "--admin", admin, "--config", config, "lookup", "--parent", "AF01", "AFG", "Kabull")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if out != "Kabull\tAF0101\tfalse\n" {
		t.Errorf("fuzzy lookup output = %q", out)
	}

	out, err = run(t, "--admin", admin, "--config", config, "lookup", "YEM", "Al Dhale'e / الضالع")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if !strings.Contains(out, "\tYE30\tfalse") {
		t.Errorf("replacement lookup output = %q", out)
	}
}

func TestLookupUnknownCountry(t *testing.T) {
	admin := writeFile(t, t.TempDir(), "admin.csv", adminCSV)
	if _, err := run(t, "--admin", admin, "lookup", "ZZZ", "Kabul"); err == nil {
		t.Error("lookup in an unknown country should fail")
	}
}

func TestCountryFilter(t *testing.T) {
	admin := writeFile(t, t.TempDir(), "admin.csv", adminCSV)
	if _, err := run(t, "--admin", admin, "--countries", "YEM", "lookup", "AFG", "Kabul"); err == nil {
		t.Error("AFG should not be loaded when filtering on YEM")
	}
}

func TestConvertAndFormatsCommands(t *testing.T) {
	dir := t.TempDir()
	admin := writeFile(t, dir, "admin.csv", adminCSV)
	formats := writeFile(t, dir, "formats.csv", "ISO3,Admin 1,Admin 2\nYEM,2,2\n")

	out, err := run(t, "--admin", admin, "--formats", formats, "convert", "YEM", "YEM030", "YE301")
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if out != "YEM030\tYE30\nYE301\tYE3001\n" {
		t.Errorf("convert output = %q", out)
	}

	out, err = run(t, "--admin", admin, "formats")
	if err != nil {
		t.Fatalf("formats error: %v", err)
	}
	if out != "AFG\t2 2,2\nYEM\t2 2,2\n" {
		t.Errorf("formats output = %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	admin := writeFile(t, dir, "admin.csv", adminCSV)
	out, err := run(t, "--admin", admin, "check")
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if out != "5 units in 2 countries OK\n" {
		t.Errorf("check output = %q", out)
	}

	dup := writeFile(t, dir, "dup.csv", adminCSV+"AFG,2,AF0103,Paghman,AF01\n")
	if _, err := run(t, "--admin", dup, "check"); err == nil {
		t.Error("check should report duplicate sibling names")
	}
}

func TestRulesCommand(t *testing.T) {
	dir := t.TempDir()
	admin := writeFile(t, dir, "admin.csv", adminCSV)
	config := writeFile(t, dir, "config.yaml", configYAML)
	out, err := run(t, "--admin", admin, "--config", config, "rules")
	if err != nil {
		t.Fatalf("rules error: %v", err)
	}
	want := "Name mappings:\n" +
		"  AFG|Kabol: Kabul (AF01)\n" +
		"Name replacements:\n" +
		"  \"': \"\n" +
		"  \"/:  \"\n"
	if out != want {
		t.Errorf("rules output:\n%s\nwant:\n%s", out, want)
	}
}

func TestAdminURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, adminCSV)
	}))
	defer srv.Close()
	dataDir := t.TempDir()

	out, err := run(t, "--admin", srv.URL+"/global_pcodes.csv?dl=1", "--data-dir", dataDir, "lookup", "YEM", "Juban")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if out != "Juban\tYE3001\ttrue\n" {
		t.Errorf("lookup output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "global_pcodes.csv")); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
}

func TestMissingAdminFlag(t *testing.T) {
	if _, err := run(t, "check"); err == nil {
		t.Error("check without --admin should fail")
	}
}
