// Copyright 1999-2020 Alibaba Group Holding Ltd.
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

// Package cache provides a size-bounded, concurrency-safe LRU, used to
// cap the growth of compiled-pattern caches fed by arbitrary rule text.
package cache

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
)

// entry holds one key/value pair in the eviction list.
type entry struct {
	key   interface{}
	value interface{}
}

// LRU is a fixed-size, concurrency-safe least-recently-used cache.
type LRU struct {
	mu        sync.Mutex
	size      int
	evictList *list.List
	items     map[interface{}]*list.Element
}

// New constructs an LRU holding at most size entries.
func New(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache: size must be positive")
	}
	return &LRU{
		size:      size,
		evictList: list.New(),
		items:     make(map[interface{}]*list.Element, 64),
	}, nil
}

// GetOrCompute returns the cached value for key, computing and storing it
// via compute on a miss. Concurrent callers racing on the same absent key
// may both call compute; the loser's result is discarded.
func (c *LRU) GetOrCompute(key interface{}, compute func() interface{}) interface{} {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Add(key, v)
	return v
}

// Get looks up key, promoting it to most-recently-used on a hit.
func (c *LRU) Get(key interface{}) (value interface{}, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, found := c.items[key]; found {
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	return nil, false
}

// Add inserts or updates key's value, evicting the least-recently-used
// entry if the cache is over capacity.
func (c *LRU) Add(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry).value = value
		return
	}
	ent := c.evictList.PushFront(&entry{key, value})
	c.items[key] = ent
	if c.evictList.Len() > c.size {
		c.removeOldest()
	}
}

// Len returns the number of entries currently cached.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *LRU) removeOldest() {
	ent := c.evictList.Back()
	if ent == nil {
		return
	}
	c.evictList.Remove(ent)
	delete(c.items, ent.Value.(*entry).key)
}
