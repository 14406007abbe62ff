// klineprobe is a diagnostic tool for exercising a K-line adapter attached to
// a host serial port: it sends echo-verified bytes and drives the bit-bang
// wake-up primitives, reporting what the wire reflects back.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
