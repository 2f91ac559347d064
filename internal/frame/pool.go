// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import "sync"

// BufferPool recycles response buffers so polling loops do not allocate.
type BufferPool struct {
	small sync.Pool
	frame sync.Pool
}

// Size thresholds for buffer categories
const (
	SmallBufferSize = 16                           // headers, poll flags, echo
	FrameBufferSize = MaxDataLength + HeaderLength // largest response
)

var defaultPool = NewBufferPool()

// NewBufferPool creates an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small: sync.Pool{New: func() any {
			buf := make([]byte, SmallBufferSize)
			return &buf
		}},
		frame: sync.Pool{New: func() any {
			buf := make([]byte, FrameBufferSize)
			return &buf
		}},
	}
}

// GetBuffer returns a zeroed buffer of exactly size bytes. Oversized
// requests are allocated directly.
func (p *BufferPool) GetBuffer(size int) []byte {
	var pool *sync.Pool
	switch {
	case size <= SmallBufferSize:
		pool = &p.small
	case size <= FrameBufferSize:
		pool = &p.frame
	default:
		return make([]byte, size)
	}
	bufPtr, ok := pool.Get().(*[]byte)
	if !ok {
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

// PutBuffer clears buf and returns it to the pool. buf must not be used
// afterwards.
func (p *BufferPool) PutBuffer(buf []byte) {
	full := buf[:cap(buf)]
	clear(full)
	switch cap(buf) {
	case SmallBufferSize:
		p.small.Put(&full)
	case FrameBufferSize:
		p.frame.Put(&full)
	}
}

// GetBuffer acquires a buffer from the default pool.
func GetBuffer(size int) []byte {
	return defaultPool.GetBuffer(size)
}

// PutBuffer returns a buffer to the default pool.
func PutBuffer(buf []byte) {
	defaultPool.PutBuffer(buf)
}
