package tpm2

import (
	"testing"

	"github.com/google/go-tpm-tools/simulator"
	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/stretchr/testify/assert"
)

// Storage key template for credential activation tests: the reference
// RSA-2048 EK shape with password auth instead of the endorsement policy,
// and an AES-256-CFB symmetric block so the on-chip STORAGE key width
// matches the SHA-256 KDFa output.
var testStorageTemplate = tpm2.TPMTPublic{
	Type:    tpm2.TPMAlgRSA,
	NameAlg: tpm2.TPMAlgSHA256,
	ObjectAttributes: tpm2.TPMAObject{
		FixedTPM:            true,
		FixedParent:         true,
		SensitiveDataOrigin: true,
		UserWithAuth:        true,
		Restricted:          true,
		Decrypt:             true,
	},
	Parameters: tpm2.NewTPMUPublicParms(
		tpm2.TPMAlgRSA,
		&tpm2.TPMSRSAParms{
			Symmetric: tpm2.TPMTSymDefObject{
				Algorithm: tpm2.TPMAlgAES,
				KeyBits: tpm2.NewTPMUSymKeyBits(
					tpm2.TPMAlgAES,
					tpm2.TPMKeyBits(256),
				),
				Mode: tpm2.NewTPMUSymMode(
					tpm2.TPMAlgAES,
					tpm2.TPMAlgCFB,
				),
			},
			KeyBits: 2048,
		},
	),
	Unique: tpm2.NewTPMUPublicID(
		tpm2.TPMAlgRSA,
		&tpm2.TPM2BPublicKeyRSA{
			Buffer: make([]byte, 256),
		},
	),
}

// Restricted RSASSA signer standing in for an attestation key.
var testAKTemplate = tpm2.TPMTPublic{
	Type:    tpm2.TPMAlgRSA,
	NameAlg: tpm2.TPMAlgSHA256,
	ObjectAttributes: tpm2.TPMAObject{
		SignEncrypt:         true,
		Restricted:          true,
		FixedTPM:            true,
		FixedParent:         true,
		SensitiveDataOrigin: true,
		UserWithAuth:        true,
	},
	Parameters: tpm2.NewTPMUPublicParms(
		tpm2.TPMAlgRSA,
		&tpm2.TPMSRSAParms{
			Scheme: tpm2.TPMTRSAScheme{
				Scheme: tpm2.TPMAlgRSASSA,
				Details: tpm2.NewTPMUAsymScheme(
					tpm2.TPMAlgRSASSA,
					&tpm2.TPMSSigSchemeRSASSA{
						HashAlg: tpm2.TPMAlgSHA256,
					},
				),
			},
			KeyBits: 2048,
		},
	),
	Unique: tpm2.NewTPMUPublicID(
		tpm2.TPMAlgRSA,
		&tpm2.TPM2BPublicKeyRSA{
			Buffer: make([]byte, 256),
		},
	),
}

func openSimulator(t *testing.T) transport.TPM {
	t.Helper()
	sim, err := simulator.GetWithFixedSeedInsecure(1234567890)
	if err != nil {
		t.Fatalf("could not connect to TPM simulator: %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	return transport.FromReadWriter(sim)
}

func createPrimary(t *testing.T, thetpm transport.TPM, hierarchy tpm2.TPMHandle, template tpm2.TPMTPublic) *tpm2.CreatePrimaryResponse {
	t.Helper()
	rsp, err := tpm2.CreatePrimary{
		PrimaryHandle: hierarchy,
		InPublic:      tpm2.New2B(template),
	}.Execute(thetpm)
	if err != nil {
		t.Fatalf("could not create primary: %v", err)
	}
	t.Cleanup(func() {
		tpm2.FlushContext{FlushHandle: rsp.ObjectHandle}.Execute(thetpm)
	})
	return rsp
}

// The software extender must track a real PCR through the same sequence
// of extensions.
func TestSimulatorPCRExtend(t *testing.T) {

	thetpm := openSimulator(t)

	extender := NewPCRExtenderBuilder().
		AddDigestAlgorithm(SHA256).
		Build()

	// debug PCR, resettable, never touched by the simulator at startup
	pcrIndex := uint32(16)
	events := [][]byte{
		[]byte("bootloader"),
		[]byte("kernel"),
		[]byte("initrd"),
	}

	for _, event := range events {
		digest := SHA256.Sum(event)

		_, err := tpm2.PCRExtend{
			PCRHandle: tpm2.AuthHandle{
				Handle: tpm2.TPMHandle(pcrIndex),
				Auth:   tpm2.PasswordAuth(nil),
			},
			Digests: tpm2.TPMLDigestValues{
				Digests: []tpm2.TPMTHA{
					{
						HashAlg: tpm2.TPMAlgSHA256,
						Digest:  digest,
					},
				},
			},
		}.Execute(thetpm)
		assert.Nil(t, err)

		assert.Nil(t, extender.ExtendDigest(pcrIndex, SHA256, digest))
	}

	pcrReadRsp, err := tpm2.PCRRead{
		PCRSelectionIn: tpm2.TPMLPCRSelection{
			PCRSelections: []tpm2.TPMSPCRSelection{{
				Hash:      tpm2.TPMAlgSHA256,
				PCRSelect: tpm2.PCClientCompatible.PCRs(uint(pcrIndex)),
			}},
		},
	}.Execute(thetpm)
	assert.Nil(t, err)

	expected, err := extender.PCRAlgoValue(pcrIndex, SHA256)
	assert.Nil(t, err)
	assert.Equal(t, expected, pcrReadRsp.PCRValues.Digests[0].Buffer)
}

// A blob produced in software must activate on a real TPM.
func TestSimulatorActivateCredential(t *testing.T) {

	thetpm := openSimulator(t)

	ekRsp := createPrimary(t, thetpm, tpm2.TPMRHEndorsement, testStorageTemplate)
	akRsp := createPrimary(t, thetpm, tpm2.TPMRHEndorsement, testAKTemplate)

	outPub, err := ekRsp.OutPublic.Contents()
	assert.Nil(t, err)
	rsaDetail, err := outPub.Parameters.RSADetail()
	assert.Nil(t, err)
	rsaUnique, err := outPub.Unique.RSA()
	assert.Nil(t, err)
	ekPub, err := tpm2.RSAPub(rsaDetail, rsaUnique)
	assert.Nil(t, err)

	secret := []byte("challenge for the attestation key")
	objectName := tpm2.Marshal(akRsp.Name)

	credential, err := MakeCredential(secret, SHA256, ekPub, objectName)
	assert.Nil(t, err)

	credentialBlob, err := credential.CredentialBlob()
	assert.Nil(t, err)
	encryptedSecret, err := credential.Secret()
	assert.Nil(t, err)

	acRsp, err := tpm2.ActivateCredential{
		ActivateHandle: tpm2.NamedHandle{
			Handle: akRsp.ObjectHandle,
			Name:   akRsp.Name,
		},
		KeyHandle: tpm2.AuthHandle{
			Handle: ekRsp.ObjectHandle,
			Name:   ekRsp.Name,
			Auth:   tpm2.PasswordAuth(nil),
		},
		CredentialBlob: tpm2.TPM2BIDObject{
			Buffer: credentialBlob,
		},
		Secret: tpm2.TPM2BEncryptedSecret{
			Buffer: encryptedSecret,
		},
	}.Execute(thetpm)
	assert.Nil(t, err)
	if acRsp != nil {
		assert.Equal(t, secret, acRsp.CertInfo.Buffer)
	}
}
