package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <hex byte>...",
	Short: "Send bytes on the K-line and verify their echoes",
	Long: `Send transmits each byte on the K-line and waits for the wire echo.

Bytes are given in hexadecimal, with or without an 0x prefix:

  klineprobe send C1 33 F1 81
  klineprobe send 0x3E --device /dev/ttyUSB1

A missing or differing echo means bus contention, a wiring fault, or an
unpowered bus. The exit status is non-zero if any echo fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := make([]byte, 0, len(args))
		for _, arg := range args {
			v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 8)
			if err != nil {
				return fmt.Errorf("invalid hex byte %q: %w", arg, err)
			}
			data = append(data, byte(v))
		}

		log := newLogger()

		transport, port, err := openTransport(log)
		if err != nil {
			return err
		}
		defer port.Close()

		failures := 0
		for _, b := range data {
			transport.Send(b)
			if transport.GetEcho(b) {
				fmt.Printf("0x%02X  echo ok\n", b)
			} else {
				fmt.Printf("0x%02X  NO ECHO\n", b)
				failures++
			}
		}

		m := transport.Metrics()
		fmt.Printf("sent=%d match=%d mismatch=%d timeout=%d\n",
			m.SendCount.Load(),
			m.EchoMatchCount.Load(),
			m.EchoMismatchCount.Load(),
			m.EchoTimeoutCount.Load(),
		)

		if failures > 0 {
			return fmt.Errorf("%d of %d bytes failed echo verification", failures, len(data))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
