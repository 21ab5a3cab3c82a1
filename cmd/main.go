package main

import (
	"log"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
