// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package parser

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/token"
)

// DefaultCacheSize is the number of parsed events kept by NewCache(0).
const DefaultCacheSize = 256

// Cache memoises parsed events by their token stream and options. Callers
// always receive a private clone, since indexing and the solver write into
// the tree.
type Cache struct {
	events *lru.ARCCache // key -> *ast.Event (never handed out)

	hits, misses uint64
}

// NewCache creates a parse cache holding up to size events.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	events, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &Cache{events: events}, nil
}

// ParseTokens parses toks, serving repeated inputs from the cache. Failed
// parses are not cached.
func (c *Cache) ParseTokens(toks []token.Token, opts ...Option) (*ast.Event, error) {
	cfg := newConfig(opts)
	key := cacheKey(toks, cfg)
	if cached, ok := c.events.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		log.Trace("Parse cache hit", "file", cfg.filename)
		return cached.(*ast.Event).Clone(), nil
	}
	atomic.AddUint64(&c.misses, 1)
	ev, err := parse(toks, cfg)
	if err != nil {
		return nil, err
	}
	c.events.Add(key, ev.Clone())
	return ev, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *Cache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// Len returns the number of cached events.
func (c *Cache) Len() int {
	return c.events.Len()
}

// cacheKey fingerprints everything that affects the parse result, positions
// included.
func cacheKey(toks []token.Token, cfg *config) string {
	var b strings.Builder
	b.WriteString(cfg.filename)
	if cfg.strict {
		b.WriteString("\x00strict")
	}
	var defs []string
	if cfg.definitions != nil {
		for _, name := range cfg.definitions.ToSlice() {
			defs = append(defs, name.(string))
		}
	}
	sort.Strings(defs)
	for _, name := range defs {
		b.WriteString("\x00d:" + name)
	}
	for _, tok := range toks {
		b.WriteByte('\x01')
		b.WriteString(tok.Literal)
		b.WriteByte('@')
		b.WriteString(tok.Pos.String())
		b.WriteByte('#')
		b.WriteString(tok.Type.String())
	}
	return b.String()
}
