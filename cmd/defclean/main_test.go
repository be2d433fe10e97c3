package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/defclean"
)

// runCLI executes the command line in-process.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), "defclean", args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// kernelTree lays out <root>/arch/arm/configs/test_defconfig with FOO
// referenced on three source lines and BAR nowhere outside the defconfig.
func kernelTree(t *testing.T) (root, defconfig string) {
	t.Helper()
	root = t.TempDir()
	write(t, filepath.Join(root, "drivers", "foo.c"),
		"#ifdef CONFIG_FOO\nint foo_init(void);\n#endif\nstatic int use_FOO = 1;\n/* FOO */\n")
	defconfig = filepath.Join(root, "arch", "arm", "configs", "test_defconfig")
	write(t, defconfig, "CONFIG_FOO=y\n# CONFIG_BAR is not set\n")
	return root, defconfig
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func referenceOutput() string {
	return defclean.FormatUsage("FOO", 3) + "\n" + defclean.FormatUsage("BAR", 0) + "\n"
}

// decodeResult splits a JSON envelope and decodes its results into v.
func decodeResult(t *testing.T, stdout string, v any) string {
	t.Helper()
	var env struct {
		Command string          `json:"command"`
		Results json.RawMessage `json:"results"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	require.Empty(t, env.Error)
	require.NoError(t, json.Unmarshal(env.Results, v))
	return env.Command
}

// --- Usage and file errors ---

const usageMessage = "ERROR: Usage of the script is:\n defclean defconfig\n"

func TestUsage_WrongArity(t *testing.T) {
	t.Parallel()
	for _, args := range [][]string{nil, {"a_defconfig", "b_defconfig"}} {
		code, stdout, _ := runCLI(t, args...)
		assert.Equal(t, exitUsage, code, "args %v", args)
		assert.Equal(t, usageMessage, stdout, "args %v", args)
	}
}

func TestUsage_NoFileIO(t *testing.T) {
	t.Parallel()
	// The config file does not exist; arity is rejected before it is read.
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	code, stdout, stderr := runCLI(t, "--config", missing)
	assert.Equal(t, exitUsage, code)
	assert.Equal(t, usageMessage, stdout)
	assert.Empty(t, stderr)
}

func TestUsage_UnknownFlag(t *testing.T) {
	t.Parallel()
	code, stdout, _ := runCLI(t, "--bogus", "x_defconfig")
	assert.Equal(t, exitUsage, code)
	assert.Equal(t, usageMessage, stdout)
}

func TestMissingDefconfig(t *testing.T) {
	t.Parallel()
	code, stdout, _ := runCLI(t, filepath.Join(t.TempDir(), "missing_defconfig"))
	assert.Equal(t, exitUsage, code)
	assert.Equal(t, "ERROR: Some of the input files were missing, check again!\n", stdout)
}

func TestInvalidGzipDefconfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken_defconfig.gz")
	write(t, path, "not gzip at all")
	code, stdout, _ := runCLI(t, path)
	assert.Equal(t, exitUsage, code)
	assert.Equal(t, "ERROR: Some of the input files were missing, check again!\n", stdout)
}

// --- Scan ---

func TestScan_ReferenceOutput(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, stderr := runCLI(t, "--skip-dir", "configs", defconfig)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, referenceOutput(), stdout)
}

func TestScan_DefconfigInsideTreeCounts(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, _ := runCLI(t, defconfig)
	require.Equal(t, 0, code)
	want := defclean.FormatUsage("FOO", 4) + "\n" + defclean.FormatUsage("BAR", 1) + "\n"
	assert.Equal(t, want, stdout)
}

func TestScan_GzipMatchesPlain(t *testing.T) {
	t.Parallel()
	root, defconfig := kernelTree(t)
	data, err := os.ReadFile(defconfig)
	require.NoError(t, err)

	gzPath := filepath.Join(t.TempDir(), "test_defconfig.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(gzPath, buf.Bytes(), 0o644))

	_, plain, _ := runCLI(t, "--source-root", root, "--skip-dir", "configs", defconfig)
	code, gz, _ := runCLI(t, "--source-root", root, "--skip-dir", "configs", gzPath)
	require.Equal(t, 0, code)
	assert.Equal(t, plain, gz)
	assert.Equal(t, referenceOutput(), gz)
}

func TestScan_Jobs(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, _ := runCLI(t, "--skip-dir", "configs", "--jobs", "4", defconfig)
	require.Equal(t, 0, code)
	assert.Equal(t, referenceOutput(), stdout)
}

func TestScan_InvalidJobs(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, _, stderr := runCLI(t, "--jobs", "0", defconfig)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "jobs must be >= 1")
}

func TestScan_TokenMode(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, _ := runCLI(t, "--skip-dir", "configs", "--match", "token", defconfig)
	require.Equal(t, 0, code)
	// The comment and use_FOO are not FOO tokens.
	want := defclean.FormatUsage("FOO", 1) + "\n" + defclean.FormatUsage("BAR", 0) + "\n"
	assert.Equal(t, want, stdout)
}

func TestScan_JSON(t *testing.T) {
	t.Parallel()
	root, defconfig := kernelTree(t)
	code, stdout, _ := runCLI(t, "--format", "json", "--skip-dir", "configs", defconfig)
	require.Equal(t, 0, code)

	var rep CLIReport
	assert.Equal(t, "scan", decodeResult(t, stdout, &rep))
	assert.Equal(t, defconfig, rep.Defconfig)
	assert.Equal(t, root, rep.SourceRoot)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, CLIUsage{Ordinal: 0, Line: 1, Symbol: "FOO", Count: 3, Status: "active"}, rep.Results[0])
	assert.Equal(t, CLIUsage{Ordinal: 1, Line: 2, Symbol: "BAR", Count: 0, Status: "deprecated"}, rep.Results[1])
	assert.Equal(t, []string{"FOO"}, rep.Active)
	assert.Equal(t, []string{"BAR"}, rep.Deprecated)
	assert.Empty(t, rep.RunID)
}

func TestScan_InvalidFormat(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, stderr := runCLI(t, "--format", "xml", defconfig)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `invalid format "xml"`)
}

func TestScan_Summary(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, _ := runCLI(t, "--skip-dir", "configs", "--summary", defconfig)
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, referenceOutput()))
	footer := strings.TrimPrefix(stdout, referenceOutput())
	assert.Contains(t, footer, "2 symbols under")
	assert.Contains(t, footer, "deprecated:")
	assert.Contains(t, footer, "    BAR\n")
}

func TestScan_VerboseLogsToStderr(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, stdout, stderr := runCLI(t, "-v", "--skip-dir", "configs", defconfig)
	require.Equal(t, 0, code)
	assert.Equal(t, referenceOutput(), stdout)
	assert.Contains(t, stderr, "Scanned "+defconfig)
	assert.Contains(t, stderr, "(2 symbols, 1 active, 1 deprecated)")
}

func TestScan_Classifier(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	script := filepath.Join(t.TempDir(), "keep.risor")
	write(t, script, `
func classify() {
	if symbol == "BAR" {
		return "active"
	}
	if count == 0 {
		return "deprecated"
	}
	return "active"
}
classify()
`)
	code, stdout, stderr := runCLI(t, "--format", "json", "--skip-dir", "configs", "--classifier", script, defconfig)
	require.Equal(t, 0, code, stderr)

	var rep CLIReport
	decodeResult(t, stdout, &rep)
	assert.Equal(t, []string{"FOO", "BAR"}, rep.Active)
	assert.Empty(t, rep.Deprecated)
	assert.Equal(t, 0, rep.Results[1].Count)
}

func TestScan_BuiltinClassifier(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	// Without skipping configs/ BAR is only found on its own defconfig line.
	code, stdout, stderr := runCLI(t, "--format", "json", "--classifier", "builtin:intree", defconfig)
	require.Equal(t, 0, code, stderr)

	var rep CLIReport
	decodeResult(t, stdout, &rep)
	assert.Equal(t, 1, rep.Results[1].Count)
	assert.Equal(t, []string{"FOO"}, rep.Active)
	assert.Equal(t, []string{"BAR"}, rep.Deprecated)
}

func TestScan_MissingClassifier(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, _, stderr := runCLI(t, "--classifier", filepath.Join(t.TempDir(), "none.risor"), defconfig)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "loading script")
}

// --- Config file ---

func TestConfigFile_SuppliesDefaults(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	cfgPath := filepath.Join(t.TempDir(), "defclean.yaml")
	write(t, cfgPath, "format: json\nskip_dirs: [configs]\n")

	code, stdout, _ := runCLI(t, "--config", cfgPath, defconfig)
	require.Equal(t, 0, code)
	var rep CLIReport
	decodeResult(t, stdout, &rep)
	assert.Equal(t, 3, rep.Results[0].Count)
}

func TestConfigFile_FlagsOverride(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	cfgPath := filepath.Join(t.TempDir(), "defclean.yaml")
	write(t, cfgPath, "format: json\nskip_dirs: [configs]\n")

	code, stdout, _ := runCLI(t, "--config", cfgPath, "--format", "text", defconfig)
	require.Equal(t, 0, code)
	assert.Equal(t, referenceOutput(), stdout)
}

func TestConfigFile_Missing(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	code, _, stderr := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), defconfig)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "config file not found")
}

// --- Recorded runs ---

func TestDB_ScanHistoryReport(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	db := filepath.Join(t.TempDir(), "state", "runs.db")

	code, stdout, stderr := runCLI(t, "--db", db, "--skip-dir", "configs", defconfig)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, referenceOutput(), stdout)

	code, stdout, _ = runCLI(t, "--db", db, "--format", "json", "history")
	require.Equal(t, 0, code)
	var runs []CLIRun
	assert.Equal(t, "history", decodeResult(t, stdout, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, defconfig, runs[0].Defconfig)
	assert.Equal(t, "substring", runs[0].MatchMode)
	assert.Equal(t, 1, runs[0].Active)
	assert.Equal(t, 1, runs[0].Deprecated)
	assert.NotNil(t, runs[0].FinishedAt)

	// Latest run, text.
	code, stdout, _ = runCLI(t, "--db", db, "report")
	require.Equal(t, 0, code)
	assert.Equal(t, referenceOutput(), stdout)

	// Explicit run, filtered.
	code, stdout, _ = runCLI(t, "--db", db, "report", runs[0].ID, "--status", "deprecated")
	require.Equal(t, 0, code)
	assert.Equal(t, defclean.FormatUsage("BAR", 0)+"\n", stdout)

	code, stdout, _ = runCLI(t, "--db", db, "history")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "DEFCONFIG")
	assert.Contains(t, stdout, runs[0].ID)
}

func TestDB_ScanJSONIncludesRunID(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	code, stdout, _ := runCLI(t, "--db", db, "--format", "json", "--skip-dir", "configs", defconfig)
	require.Equal(t, 0, code)
	var rep CLIReport
	decodeResult(t, stdout, &rep)
	require.NotEmpty(t, rep.RunID)

	code, stdout, _ = runCLI(t, "--db", db, "--format", "json", "report", rep.RunID)
	require.Equal(t, 0, code)
	var stored CLIReport
	assert.Equal(t, "report", decodeResult(t, stdout, &stored))
	assert.Equal(t, rep.Results, stored.Results)
	assert.Equal(t, rep.Active, stored.Active)
	assert.Equal(t, rep.Deprecated, stored.Deprecated)
}

func TestDB_SymbolHistory(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	for range 2 {
		code, _, _ := runCLI(t, "--db", db, "--skip-dir", "configs", defconfig)
		require.Equal(t, 0, code)
	}

	code, stdout, _ := runCLI(t, "--db", db, "--format", "json", "history", "--symbol", "FOO")
	require.Equal(t, 0, code)
	var hist []CLISymbolUsage
	decodeResult(t, stdout, &hist)
	require.Len(t, hist, 2)
	for _, h := range hist {
		assert.Equal(t, 3, h.Count)
		assert.Equal(t, "active", h.Status)
		assert.Equal(t, 1, h.Line)
	}
}

func TestHistory_DeleteRun(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	code, stdout, _ := runCLI(t, "--db", db, "--format", "json", "--skip-dir", "configs", defconfig)
	require.Equal(t, 0, code)
	var rep CLIReport
	decodeResult(t, stdout, &rep)

	code, stdout, _ = runCLI(t, "--db", db, "history", "--delete", rep.RunID)
	require.Equal(t, 0, code)
	assert.Equal(t, "Deleted run "+rep.RunID+"\n", stdout)

	code, stdout, _ = runCLI(t, "--db", db, "--format", "json", "history")
	require.Equal(t, 0, code)
	var runs []CLIRun
	decodeResult(t, stdout, &runs)
	assert.Empty(t, runs)

	code, _, stderr := runCLI(t, "--db", db, "history", "--delete", rep.RunID)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no run")
}

func TestReport_UnknownRun(t *testing.T) {
	t.Parallel()
	_, defconfig := kernelTree(t)
	db := filepath.Join(t.TempDir(), "runs.db")
	code, _, _ := runCLI(t, "--db", db, defconfig)
	require.Equal(t, 0, code)

	code, _, stderr := runCLI(t, "--db", db, "report", "no-such-run")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "run not found: no-such-run")
}

func TestReport_InvalidStatus(t *testing.T) {
	t.Parallel()
	code, _, stderr := runCLI(t, "--db", "unused.db", "report", "--status", "maybe")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `invalid status "maybe"`)
}

func TestHistory_NoDatabase(t *testing.T) {
	t.Parallel()
	code, _, stderr := runCLI(t, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no database")

	code, _, stderr = runCLI(t, "--db", filepath.Join(t.TempDir(), "absent.db"), "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "database not found")
}

func TestHistory_JSONError(t *testing.T) {
	t.Parallel()
	code, stdout, _ := runCLI(t, "--format", "json", "history")
	assert.Equal(t, 1, code)
	var env CLIResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.Equal(t, "history", env.Command)
	assert.Contains(t, env.Error, "no database")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("text"))
	assert.NoError(t, validateFormat("json"))
	assert.Error(t, validateFormat("yaml"))
}
