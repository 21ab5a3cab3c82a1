package tpm2

import (
	"crypto/hmac"
	"encoding/binary"
)

// KDFa implements the TPM 2.0 profile of the NIST SP 800-108 counter mode
// key derivation function, as defined in section 11.4.10.2 of the TPM 2.0
// Library Specification, Part 1.
//
// The contextU and contextV parameters are TPM2B buffers: a 2-byte
// big-endian size header followed by the payload. The header of each is
// stripped before the payloads are concatenated into the KDF context, so
// an object name can be passed exactly as it appears on the wire. A
// zero-length context contributes nothing.
//
// bits must be a positive multiple of 8 no larger than the HMAC output
// length of the selected algorithm, so derivation always completes in a
// single counter iteration. The label is used verbatim; the zero separator
// octet the construction requires is appended here, not by the caller.
func KDFa(algo DigestAlgorithm, key []byte, label string, contextU, contextV []byte, bits int) ([]byte, error) {

	if bits <= 0 || bits%8 != 0 || bits/8 > algo.Size() {
		return nil, ErrInvalidSize
	}

	u, err := stripSizePrefix(contextU)
	if err != nil {
		return nil, err
	}
	v, err := stripSizePrefix(contextV)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(algo.New, key)
	binary.Write(mac, binary.BigEndian, uint32(1))
	mac.Write([]byte(label))
	mac.Write([]byte{0})
	mac.Write(u)
	mac.Write(v)
	binary.Write(mac, binary.BigEndian, uint32(bits))

	return mac.Sum(nil)[:bits/8], nil
}

// Strips the 2-byte TPM2B size header from a context buffer. An empty
// buffer is an absent context; a 1-byte buffer can't carry a header.
func stripSizePrefix(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < 2 {
		return nil, ErrInvalidSize
	}
	return buf[2:], nil
}
