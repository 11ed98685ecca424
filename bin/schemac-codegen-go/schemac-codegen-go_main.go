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
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/tkdb34st/capnproto/encoding/schemadesc"
)

// Outside of WebAssembly, the plugin reads an encoded request from stdin
// and writes the generated files under the directory named by its only
// argument, or to stdout if there is none.
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	args := os.Args[1:]
	if len(args) > 1 {
		log.Fatalf("usage: %s [OUTPUT_DIR] < REQUEST", os.Args[0])
	}

	requestBuf, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal(err)
	}
	resp, rc := handleRequest(requestBuf)
	if rc != 0 {
		log.Fatal(resp.Error)
	}

	if len(args) == 0 {
		for _, file := range resp.Files {
			if _, err := os.Stdout.Write(file.Content); err != nil {
				log.Fatal(err)
			}
		}
		return
	}
	if err := writeFiles(afero.NewOsFs(), args[0], resp); err != nil {
		log.Fatal(err)
	}
}

func writeFiles(fs afero.Fs, outDir string, resp *schemadesc.Response) error {
	for _, file := range resp.Files {
		outPath := filepath.Join(append([]string{outDir}, file.Path...)...)
		if err := fs.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, outPath, file.Content, 0o644); err != nil {
			return err
		}
	}
	return nil
}
