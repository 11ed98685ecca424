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

package schemadesc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is the reply from a codegen plugin. Content is base64 in JSON.
type Response struct {
	Error string        `json:"error,omitempty"`
	Files []*OutputFile `json:"files,omitempty"`
}

type OutputFile struct {
	Path    []string `json:"path"`
	Content []byte   `json:"content"`
}

func (r *Response) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRequest is the plugin side of [Request.JSON]. Numeric values
// decode as [json.Number] so 64-bit integers keep their precision.
func DecodeRequest(buf []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid codegen request: %w", err)
	}
	return &req, nil
}

func DecodeResponse(buf []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(buf, &resp); err != nil {
		return nil, fmt.Errorf("invalid codegen response: %w", err)
	}
	return &resp, nil
}
