package cmd

import (
	"fmt"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the software version",
	Long:  `Displays software build and version details`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Name:\t\t%s\n", app.Name)
		fmt.Printf("Version:\t%s\n", app.Version)
		fmt.Printf("Git Hash:\t%s\n", app.GitHash)
		fmt.Printf("Build Date:\t%s\n", app.BuildDate)
	},
}
