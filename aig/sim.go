//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package aig

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20"
)

// PRG implements a deterministic pseudo-random generator on top of
// the ChaCha20 key stream.
type PRG struct {
	cipher *chacha20.Cipher
	buf    [64]byte
	pos    int
}

// NewPRG creates a new generator for the seed.
func NewPRG(seed uint64) *PRG {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte
	binary.BigEndian.PutUint64(key[:], seed)

	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(fmt.Sprintf("chacha20: %s", err))
	}
	return &PRG{
		cipher: cipher,
		pos:    64,
	}
}

// Uint64 returns a random 64-bit value.
func (r *PRG) Uint64() uint64 {
	if r.pos+8 > len(r.buf) {
		for i := range r.buf {
			r.buf[i] = 0
		}
		r.cipher.XORKeyStream(r.buf[:], r.buf[:])
		r.pos = 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}

// Intn returns a random value in [0, n).
func (r *PRG) Intn(n int) int {
	if n <= 0 {
		panic("PRG.Intn: invalid argument")
	}
	return int(r.Uint64() % uint64(n))
}

// Simulate computes the values of all nodes for 64 parallel input
// patterns. The inputs slice holds one pattern word per primary input.
func (n *Network) Simulate(inputs []uint64) ([]uint64, error) {
	if len(inputs) != len(n.Inputs) {
		return nil, errors.Wrapf(ErrInputs, "got %d, expected %d",
			len(inputs), len(n.Inputs))
	}
	order, err := n.Order()
	if err != nil {
		return nil, err
	}
	values := make([]uint64, len(n.Nodes))
	for idx, id := range n.Inputs {
		values[id] = inputs[idx]
	}
	for _, id := range order {
		node := n.Nodes[id]
		switch node.Kind {
		case And:
			values[id] = refValue(values, node.Fanin0) &
				refValue(values, node.Fanin1)
		case Buf:
			values[id] = refValue(values, node.Fanin0)
		}
	}
	return values, nil
}

func refValue(values []uint64, r Ref) uint64 {
	v := values[r.ID()]
	if r.Compl() {
		return ^v
	}
	return v
}

// Value returns the simulated value of the reference r.
func Value(values []uint64, r Ref) uint64 {
	return refValue(values, r)
}

// Eval evaluates the primary outputs for the input assignment.
func (n *Network) Eval(inputs []bool) ([]bool, error) {
	words := make([]uint64, len(inputs))
	for i, v := range inputs {
		if v {
			words[i] = 1
		}
	}
	values, err := n.Simulate(words)
	if err != nil {
		return nil, err
	}
	result := make([]bool, len(n.Outputs))
	for i, o := range n.Outputs {
		result[i] = refValue(values, o.Ref)&1 != 0
	}
	return result, nil
}

// Random creates a random network with the specified number of
// inputs, AND nodes, and outputs. Networks with the same arguments
// are identical.
func Random(seed uint64, inputs, ands, outputs int) *Network {
	prg := NewPRG(seed)
	n := NewNetwork()

	var refs []Ref
	for i := 0; i < inputs; i++ {
		refs = append(refs, n.AddInput(fmt.Sprintf("i%d", i)))
	}
	for i := 0; i < ands; i++ {
		// Prefer recent nodes to get deeper logic.
		window := len(refs)
		if window > 16 {
			window = 16
		}
		a := refs[len(refs)-1-prg.Intn(window)]
		b := refs[prg.Intn(len(refs))]
		if prg.Intn(2) == 1 {
			a = a.Not()
		}
		if prg.Intn(2) == 1 {
			b = b.Not()
		}
		r := n.And(a, b)
		if r.ID() > 0 && n.Nodes[r.ID()].Kind == And &&
			r.ID() == len(n.Nodes)-1 {
			refs = append(refs, r)
		}
	}
	for i := 0; i < outputs && i < len(refs); i++ {
		r := refs[len(refs)-1-i]
		if prg.Intn(2) == 1 {
			r = r.Not()
		}
		n.AddOutput(fmt.Sprintf("o%d", i), r)
	}
	return n
}
