package tpm2

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"math"
)

// Encodes bytes to hexidecimal form
func Encode(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

// Decodes hexidecimal form to byte array
func Decode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// PackTPM2B wraps data in a TPM2B buffer: a 2-byte big-endian size header
// followed by the payload. Payloads larger than 65535 bytes don't fit the
// header and fail with ErrInvalidSize.
func PackTPM2B(data []byte) ([]byte, error) {
	if len(data) > math.MaxUint16 {
		return nil, ErrInvalidSize
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	return buf, nil
}

// UnpackTPM2B reads one TPM2B buffer from the front of buf, returning its
// payload and any trailing bytes. A header that declares more payload
// than buf carries fails with ErrInvalidSize.
func UnpackTPM2B(buf []byte) (content, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, ErrInvalidSize
	}
	size := int(binary.BigEndian.Uint16(buf))
	if len(buf)-2 < size {
		return nil, nil, ErrInvalidSize
	}
	return buf[2 : 2+size], buf[2+size:], nil
}

// Encodes a PCR bank slice to binary using the encoding/gob package
func EncodeBanks(banks []PCRBank) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := gob.NewEncoder(buf)
	if err := encoder.Encode(banks); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decodes a PCR bank slice from binary using the encoding/gob package
func DecodeBanks(encoded []byte) ([]PCRBank, error) {
	banks := make([]PCRBank, 0)
	buf := bytes.NewBuffer(encoded)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&banks); err != nil {
		return nil, err
	}
	return banks, nil
}
