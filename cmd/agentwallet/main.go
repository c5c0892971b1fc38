// Command agentwallet manages encrypted Solana wallets and serves one of
// them to an agent over HTTP.
package main

import (
	"os"
)

// @title						Agent Wallet API
// @version					1.0
// @description				Solana wallet for autonomous agents with permission levels and spending limits
// @host						localhost:8080
// @BasePath					/
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
