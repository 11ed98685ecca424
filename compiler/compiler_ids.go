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

package compiler

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/tkdb34st/capnproto/schema"
)

const idValidBit = uint64(1) << 63

// ChildID derives the ID of a declaration that has no explicit ID from its
// parent's ID and its name: the first 8 bytes of MD5(parentID ++ name),
// read little-endian, with the high bit set.
func ChildID(parent schema.ID, name string) schema.ID {
	h := md5.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(parent))
	h.Write(buf[:])
	h.Write([]byte(name))
	sum := h.Sum(nil)
	return schema.ID(binary.LittleEndian.Uint64(sum[:8]) | idValidBit)
}

// GenerateID returns a random ID suitable for a new file. It panics if the
// system random source fails.
func GenerateID() schema.ID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("reading random ID: %v", err))
	}
	return schema.ID(binary.LittleEndian.Uint64(buf[:]) | idValidBit)
}
