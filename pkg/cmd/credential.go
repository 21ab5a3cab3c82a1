package cmd

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/serializer"
	"github.com/jeremyhahn/go-tpm-crypto/pkg/tpm2"
)

var (
	credPublicKeyFile  string
	credPrivateKeyFile string
	credObjectName     string
	credSecret         string
	credIDObject       string
	credEncSecret      string
	credFormat         string

	ErrInvalidPEM = errors.New("tpm-crypto: invalid PEM encoded key")
)

// Wire form of a protected credential, hex encoded for transport in
// enrollment requests and responses.
type credentialOutput struct {
	IDObject        string `yaml:"id-object" json:"id_object"`
	EncryptedSecret string `yaml:"encrypted-secret" json:"encrypted_secret"`
}

func init() {

	credentialMakeCmd.PersistentFlags().StringVar(&credPublicKeyFile, "public", "", "PEM encoded RSA public key of the recipient (EK)")
	credentialMakeCmd.PersistentFlags().StringVar(&credObjectName, "name", "", "Hex encoded TPM2B name of the recipient object (AK)")
	credentialMakeCmd.PersistentFlags().StringVar(&credSecret, "secret", "", "The credential value to protect")
	credentialMakeCmd.PersistentFlags().StringVar(&credFormat, "format", "json", "Output serializer: json or yaml")

	credentialActivateCmd.PersistentFlags().StringVar(&credPrivateKeyFile, "key", "", "PEM encoded PKCS #8 RSA private key of the recipient (EK)")
	credentialActivateCmd.PersistentFlags().StringVar(&credObjectName, "name", "", "Hex encoded TPM2B name of the recipient object (AK)")
	credentialActivateCmd.PersistentFlags().StringVar(&credIDObject, "id-object", "", "Hex encoded TPM2B_ID_OBJECT")
	credentialActivateCmd.PersistentFlags().StringVar(&credEncSecret, "encrypted-secret", "", "Hex encoded TPM2B_ENCRYPTED_SECRET")

	credentialCmd.AddCommand(credentialMakeCmd)
	credentialCmd.AddCommand(credentialActivateCmd)
	rootCmd.AddCommand(credentialCmd)
}

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "TPM 2.0 Credential Protection",
	Long: `Seals and recovers activation credentials using the TPM 2.0 Credential
Protection protocol. A credential sealed with make can be activated by
TPM2_ActivateCredential on the TPM holding the recipient key, or by the
activate command when the recipient private key is available in software.`,
}

var credentialMakeCmd = &cobra.Command{
	Use:   "make",
	Short: "Seals a credential to a recipient key and object name",
	Run: func(cmd *cobra.Command, args []string) {

		nameAlg, err := App.NameAlg()
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		publicKey, err := readPublicKey(App.FS, credPublicKeyFile)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		objectName, err := tpm2.Decode(credObjectName)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}

		credential, err := tpm2.MakeCredential(
			[]byte(credSecret), nameAlg, publicKey, objectName)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}

		format, err := serializer.Parse(credFormat)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		encoded, err := serializer.Serialize(credentialOutput{
			IDObject:        tpm2.Encode(credential.IDObject),
			EncryptedSecret: tpm2.Encode(credential.EncryptedSecret),
		}, format)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		fmt.Println(string(encoded))
	},
}

var credentialActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Recovers a sealed credential using the recipient private key",
	Run: func(cmd *cobra.Command, args []string) {

		nameAlg, err := App.NameAlg()
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		privateKey, err := readPrivateKey(App.FS, credPrivateKeyFile)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		objectName, err := tpm2.Decode(credObjectName)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		idObject, err := tpm2.Decode(credIDObject)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		encryptedSecret, err := tpm2.Decode(credEncSecret)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}

		credential := &tpm2.Credential{
			IDObject:        idObject,
			EncryptedSecret: encryptedSecret,
		}
		secret, err := tpm2.ActivateCredential(
			credential, nameAlg, privateKey, objectName)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		fmt.Println(string(secret))
	},
}

func readPublicKey(fs afero.Fs, path string) (interface{}, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	return x509.ParsePKIXPublicKey(block.Bytes)
}

func readPrivateKey(fs afero.Fs, path string) (interface{}, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	return x509.ParsePKCS8PrivateKey(block.Bytes)
}
