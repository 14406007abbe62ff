package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DragonWar/allpro/ecuuart"
	"github.com/DragonWar/allpro/hal/hostserial"
	"github.com/DragonWar/allpro/logger"
)

var rootCmd = &cobra.Command{
	Use:   "klineprobe",
	Short: "Probe an automotive K-line through a serial adapter",
	Long: `klineprobe exercises the AllPro K-line transport against a USB K-line
adapter on a host serial port.

Every byte written to the K-line is echoed back by the bus transceiver;
klineprobe uses that to verify each transmission and to judge bus health.

Settings can be given as flags, KLINEPROBE_* environment variables, or a
$HOME/.klineprobe.yaml config file.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("device", "/dev/ttyUSB0", "serial device of the K-line adapter")
	pf.Uint32("baud", 10400, "UART baud rate (ISO 14230 uses 10400)")
	pf.Duration("echo-timeout", ecuuart.DefaultEchoTimeout, "echo verification window")
	pf.Bool("verbose", false, "enable debug logging")

	_ = viper.BindPFlag("device", pf.Lookup("device"))
	_ = viper.BindPFlag("baud", pf.Lookup("baud"))
	_ = viper.BindPFlag("echo-timeout", pf.Lookup("echo-timeout"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))

	viper.SetEnvPrefix("KLINEPROBE")
	viper.AutomaticEnv()
}

func initConfig() {
	viper.SetConfigName(".klineprobe")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")

	// Config file is optional.
	_ = viper.ReadInConfig()
}

// newLogger builds the CLI logger honoring --verbose.
func newLogger() logger.Logger {
	level := logger.InfoLevel
	if viper.GetBool("verbose") {
		level = logger.DebugLevel
	}

	return logger.NewSlog(level, false)
}

// openTransport opens the configured serial device and returns a transport
// that has been configured and initialized at the configured baud rate.
// The caller must Close the returned port.
func openTransport(log logger.Logger) (*ecuuart.Transport, *hostserial.Port, error) {
	cfg, err := ecuuart.NewConfig(
		ecuuart.WithEchoTimeout(viper.GetDuration("echo-timeout")),
		ecuuart.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	port, err := hostserial.Open(viper.GetString("device"), hostserial.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	transport, err := ecuuart.New(port.Hardware(), cfg)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}

	transport.Configure()

	if err := transport.Init(viper.GetUint32("baud")); err != nil {
		_ = port.Close()
		return nil, nil, fmt.Errorf("initializing UART: %w", err)
	}

	return transport, port, nil
}
