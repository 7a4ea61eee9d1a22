/*
 * Copyright 2022 RapidLoop, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache is a small in-process, TTL-expiring response cache, keyed by
// a hash of the endpoint URI and its bound argument values. It backs the
// optional per-endpoint "cache: <seconds>" preamble field.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	startOfValue = []byte{2}
	endOfValue   = []byte{3}
)

// Key returns a non-cryptographic 64-bit hash over uri and the bound
// argument values for one request, so identical requests share a cache
// slot. args elements are whatever codec.Bind produced: (*string)(nil) for
// a JSON null, string, bool, int64, float64, or json.RawMessage.
func Key(uri string, args []any) uint64 {
	d := xxhash.New()

	d.Write(startOfValue)
	d.Write([]byte(uri))
	d.Write(endOfValue)

	for _, a := range args {
		d.Write(startOfValue)
		switch v := a.(type) {
		case nil:
			// no bytes between start/end markers for nil
		case string:
			d.WriteString(v)
		case json.RawMessage:
			d.Write(v)
		default:
			_ = binary.Write(d, binary.BigEndian, v)
		}
		d.Write(endOfValue)
	}

	return d.Sum64()
}

type entry struct {
	value       []byte
	contentType string
	expires     time.Time
}

// Cache is a goroutine-safe map of hash key to cached response body, each
// with its own expiry.
type Cache struct {
	mu    sync.RWMutex
	items map[uint64]entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{items: make(map[uint64]entry)}
}

// Get returns the cached value for key if present and not yet expired.
func (c *Cache) Get(key uint64) (value []byte, contentType string, ok bool) {
	c.mu.RLock()
	e, found := c.items[key]
	c.mu.RUnlock()
	if !found || time.Now().After(e.expires) {
		return nil, "", false
	}
	return e.value, e.contentType, true
}

// Set stores value under key with the given time-to-live.
func (c *Cache) Set(key uint64, value []byte, contentType string, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry{value: value, contentType: contentType, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
}
