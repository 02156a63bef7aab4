package service

import (
	"context"
	"sync/atomic"
)

// LocalGeneration is an in-process generation counter, enough when a single
// console instance talks to the registry.
type LocalGeneration struct {
	n atomic.Uint64
}

func NewLocalGeneration() *LocalGeneration {
	return &LocalGeneration{}
}

func (g *LocalGeneration) Current(context.Context) (uint64, error) {
	return g.n.Load(), nil
}

func (g *LocalGeneration) Bump(context.Context) (uint64, error) {
	return g.n.Add(1), nil
}
