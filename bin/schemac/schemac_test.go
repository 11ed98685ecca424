// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/tkdb34st/capnproto/internal/testutil"
)

func init() {
	color.NoColor = true
}

const mainSchema = `@0x8123456789abcdef;

using Lib = import "/lib.capnp";

struct Point @0x9000000000000010 {
  x @0 :Int32;
  y @1 :Int32 = -1;
}

const origin :Point = (x = 0, y = 0);
const limit :UInt32 = Lib.maxSize;
`

const libSchema = `@0x8000000000000001;

const maxSize :UInt32 = 4096;
`

func testFs(t *testing.T, extra map[string]string) afero.Fs {
	files := map[string]string{
		"main.capnp":     mainSchema,
		"/lib/lib.capnp": libSchema,
	}
	for path, content := range extra {
		files[path] = content
	}
	return testutil.NewFs(t, files)
}

func run(t *testing.T, fs afero.Fs, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rc := execute(context.Background(), fs, args, &stdout, &stderr)
	return rc, stdout.String(), stderr.String()
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	importFlags(flags)
	flags.StringP("format", "f", "", "")
	flags.String("plugin-path", "", "")
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(afero.NewMemMapFs(), "", testFlags())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "text", cfg.Format)
	testutil.ExpectFalse(t, cfg.NoStandardImport)
	testutil.ExpectSliceEq(t, standardImportPath, cfg.importPath())
}

func TestLoadConfigFile(t *testing.T) {
	fs := testutil.NewFs(t, map[string]string{
		"/etc/schemac.yaml": "import_path:\n  - /a\n  - /b\nno_standard_import: true\nformat: yaml\n",
	})
	cfg, err := loadConfig(fs, "/etc/schemac.yaml", testFlags())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "yaml", cfg.Format)
	testutil.ExpectSliceEq(t, []string{"/a", "/b"}, cfg.importPath())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(afero.NewMemMapFs(), "/etc/schemac.yaml", testFlags())
	testutil.ExpectError(t, err)
}

func TestLoadConfigPrecedence(t *testing.T) {
	fs := testutil.NewFs(t, map[string]string{
		"/etc/schemac.yaml": "format: yaml\nplugin_path: /from/file\n",
	})
	t.Setenv("SCHEMAC_FORMAT", "json")
	t.Setenv("SCHEMAC_PLUGIN_PATH", "/from/env")

	flags := testFlags()
	testutil.AssertNoError(t, flags.Parse([]string{"--plugin-path=/from/flag", "-I", "/x"}))

	cfg, err := loadConfig(fs, "/etc/schemac.yaml", flags)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "json", cfg.Format)
	testutil.ExpectEq(t, "/from/flag", cfg.PluginPath)
	testutil.ExpectSliceEq(t, []string{"/x", "/usr/local/include", "/usr/include"}, cfg.importPath())
}

func TestCompileText(t *testing.T) {
	t.Parallel()

	rc, stdout, stderr := run(t, testFs(t, nil),
		"compile", "-I", "/lib", "--no-standard-import", "main.capnp")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectEq(t, "", stderr)
	testutil.ExpectTrue(t, strings.HasPrefix(stdout, "file \"main.capnp\" {\n"))
	testutil.ExpectTrue(t, strings.Contains(stdout, "\t\tvalue = 4096\n"))
	testutil.ExpectTrue(t, strings.Contains(stdout, "\t\tvalue = (x = 0, y = 0)\n"))
}

func TestCompileJSON(t *testing.T) {
	t.Parallel()

	fs := testFs(t, nil)
	rc, _, stderr := run(t, fs,
		"compile", "-I", "/lib", "-f", "json", "-o", "/out/main.json", "main.capnp")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectEq(t, "", stderr)

	buf, err := afero.ReadFile(fs, "/out/main.json")
	testutil.AssertNoError(t, err)
	var req struct {
		Requested []string `json:"requested"`
		Files     []struct {
			DisplayName string `json:"displayName"`
		} `json:"files"`
	}
	testutil.AssertNoError(t, json.Unmarshal(buf, &req))
	testutil.ExpectSliceEq(t, []string{"0x8123456789abcdef"}, req.Requested)
	testutil.AssertEq(t, 2, len(req.Files))
	testutil.ExpectEq(t, "lib.capnp", req.Files[0].DisplayName)
	testutil.ExpectEq(t, "main.capnp", req.Files[1].DisplayName)
}

func TestCompileConfigFile(t *testing.T) {
	t.Parallel()

	fs := testFs(t, map[string]string{
		"/etc/schemac.yaml": "import_path: [/lib]\nformat: yaml\n",
	})
	rc, stdout, stderr := run(t, fs, "compile", "--config", "/etc/schemac.yaml", "main.capnp")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectEq(t, "", stderr)
	testutil.ExpectTrue(t, strings.HasPrefix(stdout, "requested:\n"))
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	rc, stdout, stderr := run(t, testFs(t, nil), "compile", "--no-standard-import", "main.capnp")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "", stdout)
	testutil.ExpectMatch(t, `^main.capnp:3:20: E6000: Import "/lib.capnp" not found`, stderr)
}

func TestCompileImportedErrors(t *testing.T) {
	t.Parallel()

	fs := testutil.NewFs(t, map[string]string{
		"main.capnp": "@0x8123456789abcdef;\nstruct Main { b @0 :import \"b.capnp\".B; }\n",
		"b.capnp":    "@0x9000000000000002;\nstruct B { x @0 :Nope; }\n",
	})
	rc, _, stderr := run(t, fs, "compile", "main.capnp")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t,
		"main.capnp:2:28: E3009: Failed to compile import \"b.capnp\"\n"+
			"b.capnp:2:18: E3004: Unresolved symbol 'Nope'\n",
		stderr,
	)
}

func TestCompileWarnings(t *testing.T) {
	t.Parallel()

	fs := testutil.NewFs(t, map[string]string{
		"w.capnp": "@0x8123456789abcdef;\nusing X = Text;\nstruct S { a @0 :Text; }\n",
	})
	rc, _, stderr := run(t, fs, "compile", "w.capnp")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectEq(t, "w.capnp:2:7: W4001: Alias 'X' is unused\n", stderr)
}

func TestCompileUsage(t *testing.T) {
	t.Parallel()

	rc, _, stderr := run(t, afero.NewMemMapFs(), "compile")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "usage: schemac compile [flags] FILE...\n", stderr)

	rc, _, stderr = run(t, testFs(t, nil), "compile", "-f", "xml", "main.capnp")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectMatch(t, `^Unsupported output format "xml"`, stderr)
}

func TestEval(t *testing.T) {
	t.Parallel()

	fs := testFs(t, nil)
	rc, stdout, stderr := run(t, fs, "eval", "-I", "/lib", "main.capnp", "limit")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectEq(t, "", stderr)
	testutil.ExpectEq(t, "4096\n", stdout)

	rc, stdout, _ = run(t, fs, "eval", "-I", "/lib", "main.capnp", "origin")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectEq(t, "(x = 0, y = 0)\n", stdout)
}

func TestEvalErrors(t *testing.T) {
	t.Parallel()

	fs := testFs(t, nil)
	rc, _, stderr := run(t, fs, "eval", "-I", "/lib", "main.capnp", "Point")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "main.capnp:Point is a struct, not a const\n", stderr)

	rc, _, stderr = run(t, fs, "eval", "-I", "/lib", "main.capnp", "Point.z")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "main.capnp:Point has no member named 'z'\n", stderr)

	rc, _, stderr = run(t, fs, "eval", "main.capnp")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "usage: schemac eval [flags] FILE NAME\n", stderr)
}

func TestID(t *testing.T) {
	t.Parallel()

	rc, stdout, _ := run(t, afero.NewMemMapFs(), "id")
	testutil.AssertEq(t, 0, rc)
	testutil.ExpectMatch(t, regexp.MustCompile(`^@0x[89a-f][0-9a-f]{15};\n$`), stdout)
}

func TestCodegenNoPlugin(t *testing.T) {
	t.Parallel()

	fs := testFs(t, nil)
	rc, _, stderr := run(t, fs, "codegen", "-o", "/out", "main.capnp")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "No plugin specified (set --plugin=)\n", stderr)

	rc, _, stderr = run(t, fs, "codegen", "--plugin", "go", "-o", "/out", "main.capnp")
	testutil.ExpectEq(t, 1, rc)
	testutil.ExpectEq(t, "No plugin path set, use --plugin-path= or $SCHEMAC_PLUGIN_PATH\n", stderr)
}

func TestLocatePlugin(t *testing.T) {
	t.Parallel()

	fs := testutil.NewFs(t, map[string]string{
		"/b/schemac-codegen-go.wasm": "",
		"/c/schemac-codegen-go.wasm": "",
	})
	testutil.AssertNoError(t, fs.MkdirAll("/a/schemac-codegen-go.wasm", 0o755))

	got, err := locatePlugin(fs, "/a::/b:/c", "go")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, filepath.Join("/b", "schemac-codegen-go.wasm"), got)

	_, err = locatePlugin(fs, "/a:/b", "rust")
	testutil.ExpectMatch(t, "^Codegen plugin schemac-codegen-rust.wasm not found", err.Error())
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	got, err := outputPath("/out", []string{"pkg", "schema.go"})
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, filepath.Join("/out", "pkg", "schema.go"), got)

	for _, parts := range [][]string{
		{},
		{""},
		{"pkg", ".."},
		{"/etc", "passwd"},
		{"a/b"},
	} {
		_, err := outputPath("/out", parts)
		testutil.ExpectError(t, err)
	}
}
