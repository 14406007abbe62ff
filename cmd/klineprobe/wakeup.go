package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	wakeupLow  time.Duration
	wakeupHigh time.Duration
)

var wakeupCmd = &cobra.Command{
	Use:   "wakeup",
	Short: "Drive a bit-bang wake-up pulse on the K-line",
	Long: `Wakeup switches the pins to bit-bang routing, pulls the K-line low and
then high for the given durations, and restores UART routing. This is the shape of
the ISO 14230 fast-init pulse (25 ms low, 25 ms high by default).

The line level is sampled after each edge; on a healthy wire-ORed bus the
sample follows the driven level.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		transport, port, err := openTransport(log)
		if err != nil {
			return err
		}
		defer port.Close()

		transport.SetBitBang(true)

		transport.SetBit(0)
		time.Sleep(wakeupLow)
		fmt.Printf("low for %v, sampled=%d\n", wakeupLow, transport.GetBit())

		transport.SetBit(1)
		time.Sleep(wakeupHigh)
		fmt.Printf("high for %v, sampled=%d\n", wakeupHigh, transport.GetBit())

		transport.SetBitBang(false)

		return nil
	},
}

func init() {
	wakeupCmd.Flags().DurationVar(&wakeupLow, "low", 25*time.Millisecond, "duration of the low pulse")
	wakeupCmd.Flags().DurationVar(&wakeupHigh, "high", 25*time.Millisecond, "duration of the high level before restoring UART routing")

	rootCmd.AddCommand(wakeupCmd)
}
