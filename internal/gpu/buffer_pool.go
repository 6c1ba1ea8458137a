// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer pool limits.
const (
	// DefaultPoolBudgetMB is the default budget of the pooled sort buffers.
	DefaultPoolBudgetMB = 64

	// MinPoolBudgetMB is the smallest budget SetBudget accepts.
	MinPoolBudgetMB = 1

	// minPoolCapacity is the smallest buffer the pool creates.
	minPoolCapacity = 256
)

// PoolStats describes the buffers kept between sorts.
type PoolStats struct {
	// BudgetBytes is the pool budget in bytes.
	BudgetBytes uint64

	// UsedBytes is the capacity of the pooled buffers.
	UsedBytes uint64

	// BufferCount is the number of pooled buffers.
	BufferCount int

	// Hits counts requests served by a pooled buffer.
	Hits uint64

	// Misses counts requests that created a buffer.
	Misses uint64

	// Evictions counts buffers destroyed to fit the budget.
	Evictions uint64
}

// String returns a human-readable summary.
func (s PoolStats) String() string {
	return fmt.Sprintf("Pool[%d buffers, %d/%d KB, %d hits, %d misses, %d evictions]",
		s.BufferCount,
		s.UsedBytes/1024,
		s.BudgetBytes/1024,
		s.Hits,
		s.Misses,
		s.Evictions)
}

// poolEntry is one pooled buffer with its LRU position.
type poolEntry struct {
	label    string
	buffer   hal.Buffer
	capacity uint64
	usage    gputypes.BufferUsage
	element  *list.Element
}

// bufferPool keeps the sort buffers alive between frames. Buffers are keyed
// by label since every label names one role in the sort; a role whose size
// outgrows its buffer gets a new one with power-of-two capacity.
//
// bufferPool is safe for concurrent use, but a returned buffer stays valid
// only until the next trim or reset.
type bufferPool struct {
	mu sync.Mutex

	device hal.Device

	budgetBytes uint64
	usedBytes   uint64

	entries map[string]*poolEntry

	// front = most recently used
	lru *list.List

	hits, misses, evictions uint64
}

func newBufferPool(device hal.Device, budgetMB int) *bufferPool {
	if budgetMB < MinPoolBudgetMB {
		budgetMB = DefaultPoolBudgetMB
	}
	return &bufferPool{
		device:      device,
		budgetBytes: uint64(budgetMB) * 1024 * 1024, //nolint:gosec // bounded below
		entries:     make(map[string]*poolEntry),
		lru:         list.New(),
	}
}

// poolCapacity rounds size up to a power of two, at least minPoolCapacity.
func poolCapacity(size uint64) uint64 {
	c := uint64(minPoolCapacity)
	for c < size {
		c <<= 1
	}
	return c
}

// acquire returns a buffer of at least size bytes for label.
func (p *bufferPool) acquire(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[label]; ok {
		if e.usage == usage && e.capacity >= size {
			p.lru.MoveToFront(e.element)
			p.hits++
			return e.buffer, nil
		}
		p.removeLocked(e)
	}

	capacity := poolCapacity(size)
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  capacity,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu sort: create buffer %s: %w", label, err)
	}
	p.misses++

	e := &poolEntry{
		label:    label,
		buffer:   buf,
		capacity: capacity,
		usage:    usage,
	}
	e.element = p.lru.PushFront(e)
	p.entries[label] = e
	p.usedBytes += capacity
	return buf, nil
}

// trim destroys least recently used buffers until the pool fits its
// budget. It must not run while submitted work still uses the buffers.
func (p *bufferPool) trim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trimLocked()
}

func (p *bufferPool) trimLocked() {
	for p.usedBytes > p.budgetBytes && p.lru.Len() > 0 {
		e, ok := p.lru.Back().Value.(*poolEntry)
		if !ok {
			p.lru.Remove(p.lru.Back())
			continue
		}
		p.removeLocked(e)
		p.evictions++
	}
}

// removeLocked destroys e and drops it from the pool. Caller must hold mu.
func (p *bufferPool) removeLocked(e *poolEntry) {
	p.lru.Remove(e.element)
	delete(p.entries, e.label)
	p.usedBytes -= e.capacity
	p.device.DestroyBuffer(e.buffer)
}

// setBudget changes the budget and trims to it.
func (p *bufferPool) setBudget(megabytes int) {
	if megabytes < MinPoolBudgetMB {
		megabytes = MinPoolBudgetMB
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.budgetBytes = uint64(megabytes) * 1024 * 1024 //nolint:gosec // bounded below
	p.trimLocked()
}

// reset destroys every pooled buffer. The pool stays usable.
func (p *bufferPool) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		p.removeLocked(e)
	}
}

// stats returns a snapshot of the pool counters.
func (p *bufferPool) stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		BudgetBytes: p.budgetBytes,
		UsedBytes:   p.usedBytes,
		BufferCount: len(p.entries),
		Hits:        p.hits,
		Misses:      p.misses,
		Evictions:   p.evictions,
	}
}
