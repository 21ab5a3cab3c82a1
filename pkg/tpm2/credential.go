package tpm2

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
)

// Labels for OAEP seed wrapping and KDFa key derivation, defined by the
// TPM 2.0 Library Specification, Part 1, section 24.
const (
	labelIdentity  = "IDENTITY"
	labelStorage   = "STORAGE"
	labelIntegrity = "INTEGRITY"
)

// MakeCredential performs the Credential Protection protocol
// (TPM2_MakeCredential computed in software): it seals credentialValue so
// that only the holder of the private half of encryptionPub, with an
// object whose name equals objectName loaded, can recover it.
//
// nameAlg selects the digest algorithm for the whole protocol: the seed
// length, the OAEP and MGF1 hashes, the KDFa derivations, and the
// integrity HMAC. objectName is the recipient object's name as a TPM2B
// buffer (2-byte size prefix followed by the name). Only RSA recipient
// keys are supported.
//
// The credential value is wrapped as a TPM2B and encrypted with AES-CFB
// under an all-zero IV; the AES key is the leading 16, 24 or 32 bytes of
// the KDFa STORAGE key, the largest AES key size the digest length can
// supply. The encrypted value and the recipient name are bound by an HMAC
// under the KDFa INTEGRITY key.
func MakeCredential(
	credentialValue []byte,
	nameAlg DigestAlgorithm,
	encryptionPub crypto.PublicKey,
	objectName []byte) (*Credential, error) {

	return makeCredential(rand.Reader, credentialValue, nameAlg, encryptionPub, objectName)
}

func makeCredential(
	rnd io.Reader,
	credentialValue []byte,
	nameAlg DigestAlgorithm,
	encryptionPub crypto.PublicKey,
	objectName []byte) (*Credential, error) {

	rsaPub, ok := encryptionPub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedAlgo
	}

	name, err := stripSizePrefix(objectName)
	if err != nil {
		return nil, err
	}

	seed, encryptedSeed, err := wrapSeed(rnd, nameAlg, rsaPub)
	if err != nil {
		return nil, err
	}

	symKey, err := KDFa(nameAlg, seed, labelStorage, objectName, nil, nameAlg.Size()*8)
	if err != nil {
		return nil, err
	}
	hmacKey, err := KDFa(nameAlg, seed, labelIntegrity, nil, nil, nameAlg.Size()*8)
	if err != nil {
		return nil, err
	}

	cv, err := PackTPM2B(credentialValue)
	if err != nil {
		return nil, err
	}
	encIdentity, err := credentialEncrypt(symKey, cv)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(nameAlg.New, hmacKey)
	mac.Write(encIdentity)
	mac.Write(name)
	integrityHMAC := mac.Sum(nil)

	// TPMS_ID_OBJECT: the integrity digest carries its own size header
	// inside the outer buffer.
	integrity2B, err := PackTPM2B(integrityHMAC)
	if err != nil {
		return nil, err
	}
	idObject, err := PackTPM2B(append(integrity2B, encIdentity...))
	if err != nil {
		return nil, err
	}
	encryptedSecret, err := PackTPM2B(encryptedSeed)
	if err != nil {
		return nil, err
	}

	return &Credential{
		IDObject:        idObject,
		EncryptedSecret: encryptedSecret,
	}, nil
}

// ActivateCredential recovers a credential value sealed by MakeCredential,
// performing in software what TPM2_ActivateCredential performs on-chip.
// The integrity tag is verified before the value is decrypted; a blob
// that fails verification, or one produced for a different object name,
// yields ErrInvalidActivationCredential.
func ActivateCredential(
	credential *Credential,
	nameAlg DigestAlgorithm,
	encryptionPriv crypto.PrivateKey,
	objectName []byte) ([]byte, error) {

	rsaPriv, ok := encryptionPriv.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedAlgo
	}

	name, err := stripSizePrefix(objectName)
	if err != nil {
		return nil, err
	}

	encryptedSeed, err := credential.Secret()
	if err != nil {
		return nil, err
	}
	label := append([]byte(labelIdentity), 0)
	seed, err := rsa.DecryptOAEP(nameAlg.New(), nil, rsaPriv, encryptedSeed, label)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	blob, err := credential.CredentialBlob()
	if err != nil {
		return nil, err
	}
	integrityHMAC, encIdentity, err := UnpackTPM2B(blob)
	if err != nil {
		return nil, err
	}

	hmacKey, err := KDFa(nameAlg, seed, labelIntegrity, nil, nil, nameAlg.Size()*8)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(nameAlg.New, hmacKey)
	mac.Write(encIdentity)
	mac.Write(name)
	if !hmac.Equal(integrityHMAC, mac.Sum(nil)) {
		return nil, ErrInvalidActivationCredential
	}

	symKey, err := KDFa(nameAlg, seed, labelStorage, objectName, nil, nameAlg.Size()*8)
	if err != nil {
		return nil, err
	}
	cv, err := credentialDecrypt(symKey, encIdentity)
	if err != nil {
		return nil, err
	}

	credentialValue, _, err := UnpackTPM2B(cv)
	if err != nil {
		return nil, ErrInvalidActivationCredential
	}
	return credentialValue, nil
}

// Generates the random protection seed and encrypts it to the recipient
// with RSA-OAEP. The seed length, the OAEP hash and the MGF1 hash all
// follow nameAlg; the label is "IDENTITY" with the terminating zero octet
// required by the TCG specification (Part 1, Annex B.10.4).
func wrapSeed(rnd io.Reader, nameAlg DigestAlgorithm, pub *rsa.PublicKey) (seed, encryptedSeed []byte, err error) {

	seed = make([]byte, nameAlg.Size())
	if _, err := io.ReadFull(rnd, seed); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	label := append([]byte(labelIdentity), 0)
	encryptedSeed, err = rsa.EncryptOAEP(nameAlg.New(), rnd, pub, seed, label)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return seed, encryptedSeed, nil
}

// The credential stream cipher: AES-CFB, all-zero IV.
func credentialEncrypt(symKey, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(symKey[:aesKeyLen(len(symKey))])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	out := make([]byte, len(plaintext))
	cipher.NewCFBEncrypter(block, make([]byte, aes.BlockSize)).XORKeyStream(out, plaintext)
	return out, nil
}

func credentialDecrypt(symKey, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(symKey[:aesKeyLen(len(symKey))])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCFBDecrypter(block, make([]byte, aes.BlockSize)).XORKeyStream(out, ciphertext)
	return out, nil
}

// Largest valid AES key size not exceeding the derived key length. Every
// registered digest produces at least 16 bytes.
func aesKeyLen(n int) int {
	switch {
	case n >= 32:
		return 32
	case n >= 24:
		return 24
	default:
		return 16
	}
}
