package signature

// This is a direct Go port of the simplified MurmurHash3 variant in
// original_source/common/HashUtil.cpp: a 128-bit MurmurHash3_x64_128 body
// with a single, zero-padded tail block (rather than MurmurHash3's general
// byte-at-a-time tail handling), keeping only the first 64-bit half of the
// result. The comment in the original explains the rationale: a 10^-6
// collision rate at 10^6 distinct signatures is acceptable, because
// colliding methods must also coincide on receiver class to cause a fault
// (spec §3 "Signature").

const (
	c1 = 0x87c37b91114253d5
	c2 = 0x4cf5ad432745937f
)

func rotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

func finalMix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// hashData implements hash_util::hashData. It processes the input in 16-byte
// blocks, then folds whatever remains (zero-padded to 16 bytes) as a single
// tail block, exactly like the C++ original.
func hashData(data []byte, seed uint64) uint64 {
	h1, h2 := seed, seed

	remaining := len(data)
	i := 0
	for remaining >= 16 {
		k1 := littleEndianUint64(data[i : i+8])
		k2 := littleEndianUint64(data[i+8 : i+16])
		i += 16
		remaining -= 16

		k1 *= c1
		k1 = rotl64(k1, 31)
		k1 *= c2
		h1 ^= k1

		h1 = rotl64(h1, 27)
		h1 += h2
		h1 = h1*5 + 0x52dce729

		k2 *= c2
		k2 = rotl64(k2, 33)
		k2 *= c1
		h2 ^= k2

		h2 = rotl64(h2, 31)
		h2 += h1
		h2 = h2*5 + 0x38495ab5
	}

	var tail [16]byte
	copy(tail[:], data[len(data)-remaining:])

	k1 := littleEndianUint64(tail[0:8])
	k2 := littleEndianUint64(tail[8:16])

	k2 *= c2
	k2 = rotl64(k2, 33)
	k2 *= c1
	h2 ^= k2

	k1 *= c1
	k1 = rotl64(k1, 31)
	k1 *= c2
	h1 ^= k1

	n := uint64(len(data))
	h1 ^= n
	h2 ^= n

	h1 += h2
	h2 += h1

	h1 = finalMix64(h1)
	h2 = finalMix64(h2)

	h1 += h2
	h2 += h1
	_ = h2 // matches the C++ comment: h2 is discarded, only h1 is returned

	return h1
}

func littleEndianUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func hashString(value string, seed uint64) uint64 {
	return hashData([]byte(value), seed)
}
