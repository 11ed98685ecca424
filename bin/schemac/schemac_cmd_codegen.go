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
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	wasm "github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/tkdb34st/capnproto/encoding/schemadesc"
)

type cmdCodegen struct {
	plugin string
	outDir string
}

func (*cmdCodegen) help() *commandHelp {
	return &commandHelp{
		usage:   "codegen [flags] FILE...",
		summary: "Compile schema files and pass them to a WebAssembly codegen plugin",
	}
}

func (cmd *cmdCodegen) flags(flags *pflag.FlagSet) {
	importFlags(flags)
	flags.StringVar(&cmd.plugin, "plugin", "", "Plugin name; loads schemac-codegen-NAME.wasm")
	flags.StringVarP(&cmd.outDir, "output", "o", "", "Directory for generated files")
	flags.String("plugin-path", "", "Colon-separated directories to search for plugins")
}

func (cmd *cmdCodegen) run(ctx context.Context, env *cmdEnv, argv []string) int {
	if len(argv) < 1 {
		return usageError(env.stderr, cmd.help())
	}
	if cmd.plugin == "" {
		fmt.Fprintln(env.stderr, "No plugin specified (set --plugin=)")
		return 1
	}
	if cmd.outDir == "" {
		fmt.Fprintln(env.stderr, "No output directory specified (set --output=)")
		return 1
	}

	pluginPath, err := locatePlugin(env.fs, env.cfg.PluginPath, cmd.plugin)
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}

	files, ok := env.parseFiles(env.newParser(), argv)
	if !ok {
		return 1
	}
	req, err := schemadesc.Describe(files...)
	if err != nil {
		printError(env.stderr, err)
		return 1
	}
	requestBuf, err := req.JSON()
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}

	pluginBin, err := afero.ReadFile(env.fs, pluginPath)
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}
	env.log.WithField("plugin", pluginPath).Debug("Running codegen plugin")

	response, err := runPlugin(ctx, pluginBin, requestBuf)
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}
	if response.Error != "" {
		errorColor.Fprintln(env.stderr, strings.TrimRight(response.Error, "\n"))
		return 1
	}
	if len(response.Files) == 0 {
		fmt.Fprintln(env.stderr, "Plugin did not generate any output files")
		return 1
	}

	if err := env.fs.MkdirAll(cmd.outDir, 0o755); err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}
	for _, outputFile := range response.Files {
		outPath, err := outputPath(cmd.outDir, outputFile.Path)
		if err != nil {
			fmt.Fprintln(env.stderr, err)
			return 1
		}
		if err := env.fs.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			fmt.Fprintln(env.stderr, err)
			return 1
		}
		if err := afero.WriteFile(env.fs, outPath, outputFile.Content, 0o644); err != nil {
			fmt.Fprintln(env.stderr, err)
			return 1
		}
		env.log.WithField("path", outPath).Debug("Wrote generated file")
	}
	return 0
}

// runPlugin passes the request to a plugin's schemac_codegen_generate
// export. The plugin stores a pointer to its response, a little-endian
// uint32 length followed by that many bytes of JSON.
func runPlugin(ctx context.Context, pluginBin, requestBuf []byte) (*schemadesc.Response, error) {
	runtimeConfig := wasm.NewRuntimeConfigInterpreter()
	runtimeConfig = runtimeConfig.WithMemoryLimitPages(16384)
	runtime := wasm.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(ctx)

	pluginExe, err := runtime.CompileModule(ctx, pluginBin)
	if err != nil {
		return nil, err
	}
	plugin, err := runtime.InstantiateModule(ctx, pluginExe, wasm.NewModuleConfig())
	if err != nil {
		return nil, err
	}
	mem := plugin.Memory()
	if mem == nil {
		return nil, fmt.Errorf("Plugin does not export its memory")
	}

	wasmAlloc, err := exportedFunction(plugin, "schemac_codegen_allocate")
	if err != nil {
		return nil, err
	}
	wasmGenerate, err := exportedFunction(plugin, "schemac_codegen_generate")
	if err != nil {
		return nil, err
	}

	results, err := wasmAlloc.Call(ctx, uint64(len(requestBuf)))
	if err != nil {
		return nil, err
	}
	requestPtr := uint32(results[0])
	if !mem.Write(requestPtr, requestBuf) {
		return nil, fmt.Errorf("Failed to write request to plugin memory")
	}

	results, err = wasmAlloc.Call(ctx, 4)
	if err != nil {
		return nil, err
	}
	responsePtrPtr := uint32(results[0])

	results, err = wasmGenerate.Call(ctx,
		uint64(requestPtr), uint64(len(requestBuf)), uint64(responsePtrPtr))
	if err != nil {
		return nil, err
	}
	rc := uint32(results[0])

	responsePtr, ok := mem.ReadUint32Le(responsePtrPtr)
	if !ok {
		return nil, fmt.Errorf("Failed to read response pointer")
	}
	responseLen, ok := mem.ReadUint32Le(responsePtr)
	if !ok {
		return nil, fmt.Errorf("Failed to read response message length")
	}
	responseBuf, ok := mem.Read(responsePtr+4, responseLen)
	if !ok {
		return nil, fmt.Errorf("Failed to read response message")
	}

	response, err := schemadesc.DecodeResponse(responseBuf)
	if err != nil {
		return nil, err
	}
	if rc != 0 && response.Error == "" {
		response.Error = fmt.Sprintf("Plugin failed with status %d", rc)
	}
	return response, nil
}

func exportedFunction(mod api.Module, name string) (api.Function, error) {
	fn := mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("Plugin does not export %s", name)
	}
	return fn, nil
}

func locatePlugin(fs afero.Fs, searchPath string, name string) (string, error) {
	if searchPath == "" {
		return "", fmt.Errorf("No plugin path set, use --plugin-path= or $SCHEMAC_PLUGIN_PATH")
	}
	basename := fmt.Sprintf("schemac-codegen-%s.wasm", name)
	for _, dir := range strings.Split(searchPath, ":") {
		if dir == "" {
			continue
		}
		pluginPath := filepath.Join(dir, basename)
		if info, err := fs.Stat(pluginPath); err == nil && !info.IsDir() {
			return pluginPath, nil
		}
	}
	return "", fmt.Errorf("Codegen plugin %s not found in plugin path", basename)
}

func outputPath(outDir string, parts []string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("Invalid output path %#v: empty", parts)
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("Invalid output path %#v: bad path component %q", parts, part)
		}
		if part[0] == '/' || filepath.IsAbs(part) {
			return "", fmt.Errorf("Invalid output path %#v: absolute path component %q", parts, part)
		}
		if strings.Contains(part, "/") {
			return "", fmt.Errorf("Invalid output path %#v: component %q contains '/'", parts, part)
		}
	}
	return filepath.Join(append([]string{outDir}, parts...)...), nil
}
