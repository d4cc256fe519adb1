// Package testutil provides testing utilities for vcardio.
//
// This package is intended for use in tests and benchmarks only.
// It generates deterministic contact fixtures: runs with the same
// seed produce the same cards.
//
// # Card Generation
//
//	rng := testutil.NewRNG(seed)
//	card := rng.Card()        // one random contact
//	cards := rng.Cards(1000)  // a deterministic batch
//
// # Serialized Streams
//
//	input, err := testutil.Stream(rng.Cards(1000))
package testutil
