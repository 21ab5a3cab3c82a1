package cmd

import (
	"fmt"
	"log"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/app"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	App        *app.App
	InitParams *app.AppInitParams
)

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "TPM 2.0 credential protection and software PCR banks",
	Long: `Software implementations of the TPM 2.0 cryptographic building blocks:
the KDFa key derivation function, software PCR banks for simulating and
replaying measurement logs, and the Credential Protection protocol used
to enroll attestation keys (TPM2_MakeCredential / TPM2_ActivateCredential)
without requiring TPM hardware.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
	},
	Run: func(cmd *cobra.Command, args []string) {
	},
	TraverseChildren: true,
}

func init() {

	cobra.OnInitialize(func() {
		App = app.NewApp().Init(InitParams)
	})

	InitParams = &app.AppInitParams{}

	rootCmd.PersistentFlags().BoolVarP(&InitParams.Debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&InitParams.ConfigDir, "config-dir", "", fmt.Sprintf("/etc/%s", app.Name), "Configuration file directory")
	rootCmd.PersistentFlags().StringVarP(&InitParams.LogDir, "log-dir", "", "", "Logging directory")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
	return nil
}
