// Package hash computes the 64-bit identifiers used by the minv blob format:
// forward-model reference ids and channel-set fingerprints.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// ModelID computes the reference id of a forward model from its channel
// names and source-space vertices. A persisted operator carries this id so a
// reader can tell which forward model it was built against.
func ModelID(names []string, vertices []uint32) uint64 {
	d := xxhash.New()
	for _, name := range names {
		_, _ = d.WriteString(name)
		_, _ = d.Write([]byte{0})
	}
	var buf [4]byte
	for _, v := range vertices {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		buf[3] = byte(v >> 24)
		_, _ = d.Write(buf[:])
	}

	return d.Sum64()
}

// ChannelSetID computes an order-sensitive fingerprint of a channel name
// list. Two operators built from the same channels in the same order produce
// the same id; any reordering changes it, since channel order is part of the
// operator contract.
func ChannelSetID(names []string) uint64 {
	d := xxhash.New()
	for _, name := range names {
		// The separator guards against ambiguous concatenations such as
		// ["ab","c"] vs ["a","bc"]. Channel names never contain NUL.
		_, _ = d.WriteString(name)
		_, _ = d.Write([]byte{0})
	}

	return d.Sum64()
}
