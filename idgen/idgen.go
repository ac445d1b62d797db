// Copyright (c) 2025 Kishore Bharat

// Package idgen derives deterministic sequences of client-order-id uuids
// from a seed string, so that a session's order ids are reproducible from
// its identity and an offset.
package idgen

import (
	"crypto/md5"
	"encoding/binary"

	"github.com/google/uuid"
)

type Generator struct {
	base uuid.UUID
	next uint64
}

func New(seed string, offset uint64) *Generator {
	return &Generator{
		base: uuid.UUID(md5.Sum([]byte(seed))),
		next: offset,
	}
}

// Offset returns the sequence position of the next id.
func (g *Generator) Offset() uint64 {
	return g.next
}

// NextID returns the next uuid in the sequence and advances the offset.
func (g *Generator) NextID() uuid.UUID {
	var buf [16 + 8]byte
	copy(buf[:16], g.base[:])
	binary.BigEndian.PutUint64(buf[16:], g.next)
	g.next++
	return uuid.UUID(md5.Sum(buf[:]))
}
