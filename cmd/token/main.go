// Package main provides a CLI for minting player bearer tokens.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/emberforge/internal/platform/config"
	"github.com/louisbranch/emberforge/internal/platform/requestctx"
	"github.com/louisbranch/emberforge/internal/tools/token"
)

var (
	player = flag.String("player", "", "The player id the token identifies")
	role   = flag.String("role", requestctx.RolePlayer, "The token role (player or operator)")
)

func main() {
	flag.Parse()
	if err := token.Run(os.Stdout, *player, *role); err != nil {
		config.Exitf("mint token: %v", err)
	}
}
