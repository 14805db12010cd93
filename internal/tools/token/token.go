// Package token mints signed player tokens using the signer configured in
// the environment.
package token

import (
	"errors"
	"fmt"
	"io"

	"github.com/louisbranch/emberforge/internal/auth"
)

// Run mints a token for playerID with the given role and writes it out.
func Run(out io.Writer, playerID, role string) error {
	if out == nil {
		return errors.New("output is required")
	}
	signer, err := auth.LoadSignerFromEnv(nil)
	if err != nil {
		return err
	}
	minted, err := signer.Mint(playerID, role)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	_, err = fmt.Fprintln(out, minted)
	return err
}
