// Package main provides a one-shot utility for token key generation.
//
// It emits the asymmetric keypair used to sign and verify player tokens.
package main

import (
	"os"

	"github.com/louisbranch/emberforge/internal/platform/config"
	"github.com/louisbranch/emberforge/internal/tools/tokenkey"
)

func main() {
	if err := tokenkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate token key: %v", err)
	}
}
