package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/serializer"
	"github.com/jeremyhahn/go-tpm-crypto/pkg/tpm2"
)

var (
	pcrIndex  uint32
	pcrBank   string
	pcrDigest bool
	pcrFormat string
)

func init() {

	pcrCmd.PersistentFlags().Uint32Var(&pcrIndex, "index", 16, "PCR index to extend")
	pcrCmd.PersistentFlags().StringVar(&pcrBank, "bank", "", "Extend a single bank instead of all configured banks")
	pcrCmd.PersistentFlags().BoolVar(&pcrDigest, "digest", false, "Treat arguments as hex encoded digests instead of raw measurements")
	pcrCmd.PersistentFlags().StringVar(&pcrFormat, "format", "json", "Output serializer: json or yaml")

	rootCmd.AddCommand(pcrCmd)
}

var pcrCmd = &cobra.Command{
	Use:   "pcr [measurements]",
	Short: "Extends measurements into software PCR banks",
	Long: `Extends the provided measurements into the software PCR banks defined
in the platform configuration file and prints the resulting bank state.

Raw measurements are hashed by each bank's algorithm before extension, so
every bank records the same logical event. With --digest, arguments are
hex encoded digests extended into the single bank selected by --bank.`,
	Run: func(cmd *cobra.Command, args []string) {

		extender, err := App.Extender()
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}

		for _, arg := range args {
			if pcrDigest {
				err = extendDigest(extender, arg)
			} else {
				err = extender.Extend(pcrIndex, []byte(arg))
			}
			if err != nil {
				color.New(color.FgRed).Println(err)
				return
			}
		}

		format, err := serializer.Parse(pcrFormat)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		encoded, err := serializer.Serialize(extender.Banks(), format)
		if err != nil {
			color.New(color.FgRed).Println(err)
			return
		}
		fmt.Println(string(encoded))
	},
}

func extendDigest(extender *tpm2.PCRExtender, arg string) error {
	algo, err := tpm2.ParseDigestAlgorithm(pcrBank)
	if err != nil {
		return err
	}
	digest, err := tpm2.Decode(arg)
	if err != nil {
		return err
	}
	return extender.ExtendDigest(pcrIndex, algo, digest)
}
