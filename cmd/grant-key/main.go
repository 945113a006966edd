// Package main provides a one-shot utility for caller grant key generation.
//
// The private key goes to whoever mints grants (relayctl, a gateway); the
// relay only needs the public key.
package main

import (
	"os"

	"github.com/louisbranch/connect-relay/internal/platform/config"
	"github.com/louisbranch/connect-relay/internal/tools/grantkey"
)

func main() {
	if err := grantkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate caller grant key: %v", err)
	}
}
