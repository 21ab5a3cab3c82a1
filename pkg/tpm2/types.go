// Package tpm2 implements the software-side cryptographic building blocks
// used when working with TPM 2.0 devices without driving one: the TCG KDFa
// key derivation function, a software PCR extender for simulating and
// replaying measurement logs, and the TPM 2.0 Credential Protection
// protocol (TPM2_MakeCredential performed entirely in software, plus its
// ActivateCredential counterpart for recipients holding the private key).
package tpm2

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"strings"

	"github.com/google/go-tpm/tpm2"
)

var (
	ErrInvalidPCR                  = errors.New("tpm: invalid PCR index")
	ErrUnusedAlgo                  = errors.New("tpm: no PCR bank configured for algorithm")
	ErrInvalidSize                 = errors.New("tpm: invalid parameter size")
	ErrUnsupportedAlgo             = errors.New("tpm: unsupported algorithm")
	ErrCrypto                      = errors.New("tpm: cryptographic operation failed")
	ErrInvalidActivationCredential = errors.New("tpm: invalid activation credential")
)

// DigestAlgorithm identifies one of the digest algorithms registered for
// TPM 2.0 use. The zero value is invalid. Constant ordering defines the
// canonical bank order used for serialization.
type DigestAlgorithm uint8

const (
	SHA1 DigestAlgorithm = iota + 1
	SHA256
	SHA384
	SHA512
)

// DigestAlgorithms lists every registered algorithm in canonical order.
var DigestAlgorithms = []DigestAlgorithm{SHA1, SHA256, SHA384, SHA512}

func (algo DigestAlgorithm) String() string {
	switch algo {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	}
	return "unknown"
}

// Size returns the digest output length in bytes.
func (algo DigestAlgorithm) Size() int {
	switch algo {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	}
	return 0
}

// New returns a new incremental hash engine for the algorithm.
func (algo DigestAlgorithm) New() hash.Hash {
	switch algo {
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	}
	return nil
}

// Sum computes the one-shot digest of data.
func (algo DigestAlgorithm) Sum(data []byte) []byte {
	h := algo.New()
	h.Write(data)
	return h.Sum(nil)
}

// AlgID returns the TCG registered algorithm identifier.
func (algo DigestAlgorithm) AlgID() tpm2.TPMAlgID {
	switch algo {
	case SHA1:
		return tpm2.TPMAlgSHA1
	case SHA256:
		return tpm2.TPMAlgSHA256
	case SHA384:
		return tpm2.TPMAlgSHA384
	case SHA512:
		return tpm2.TPMAlgSHA512
	}
	return tpm2.TPMAlgNull
}

func (algo DigestAlgorithm) MarshalText() ([]byte, error) {
	return []byte(algo.String()), nil
}

func (algo *DigestAlgorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseDigestAlgorithm(string(text))
	if err != nil {
		return err
	}
	*algo = parsed
	return nil
}

// ParseDigestAlgorithm parses a case-insensitive algorithm name.
func ParseDigestAlgorithm(name string) (DigestAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "sha384":
		return SHA384, nil
	case "sha512":
		return SHA512, nil
	}
	return 0, ErrUnsupportedAlgo
}

// DigestAlgorithmFromID maps a TCG algorithm identifier to its registered
// digest algorithm. An unrecognized identifier is a normal outcome, not an
// error; ok reports whether the identifier is registered.
func DigestAlgorithmFromID(id tpm2.TPMAlgID) (algo DigestAlgorithm, ok bool) {
	switch id {
	case tpm2.TPMAlgSHA1:
		return SHA1, true
	case tpm2.TPMAlgSHA256:
		return SHA256, true
	case tpm2.TPMAlgSHA384:
		return SHA384, true
	case tpm2.TPMAlgSHA512:
		return SHA512, true
	}
	return 0, false
}

// Credential is the result of MakeCredential: a TPM2B_ID_OBJECT and a
// TPM2B_ENCRYPTED_SECRET, both carrying their 2-byte big-endian size
// prefix, ready to be written to the wire.
type Credential struct {
	IDObject        []byte
	EncryptedSecret []byte
}

// CredentialBlob returns the TPMS_ID_OBJECT contents without the outer
// size prefix, as consumed by TPM2_ActivateCredential.
func (c Credential) CredentialBlob() ([]byte, error) {
	blob, _, err := UnpackTPM2B(c.IDObject)
	return blob, err
}

// Secret returns the RSA-OAEP encrypted seed without the outer size
// prefix, as consumed by TPM2_ActivateCredential.
func (c Credential) Secret() ([]byte, error) {
	secret, _, err := UnpackTPM2B(c.EncryptedSecret)
	return secret, err
}

// PCR is a point-in-time snapshot of a single PCR slot.
type PCR struct {
	Index        uint32 `yaml:"index" json:"index"`
	Value        []byte `yaml:"value" json:"value"`
	EverExtended bool   `yaml:"ever-extended" json:"ever_extended"`
}

// PCRBank is a point-in-time snapshot of every slot in one bank.
type PCRBank struct {
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	PCRs      []PCR  `yaml:"pcrs" json:"pcrs"`
}
