package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

const unauthorizedMessage = "Unauthorized. Run: 'yamcs login' to login to Yamcs"

// cli holds the global flags and shared state of one invocation.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	instance string
	address  string
	verbose  bool
	logFile  string

	logger    zerolog.Logger
	logCloser io.Closer
}

func run(ctx context.Context, args []string) int {
	c := &cli{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	cmd := c.newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	c.closeLog()
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintln(c.errOut, errorMessage(err))
	return 1
}

func errorMessage(err error) string {
	if errors.Is(err, model.ErrUnauthorized) {
		return unauthorizedMessage
	}
	return err.Error()
}

func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yamcs",
		Short:         "Command line client for Yamcs",
		Long:          "Command line client for Yamcs.\n\nRun 'yamcs COMMAND --help' for more information on a command.",
		Version:       utils.PACKAGE_VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setupLogger()
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.instance, "instance", "", "The Yamcs instance to use. Overrides the core/instance property")
	flags.StringVar(&c.address, "address", "", "The Yamcs address (host:port). Overrides the core/address property")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&c.logFile, "log-file", "", "Write logs to a rotated file instead of stderr")

	root.AddCommand(
		c.newConfigCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newInstancesCmd(),
		c.newProcessorsCmd(),
		c.newLinksCmd(),
		c.newParametersCmd(),
		c.newContainersCmd(),
		c.newCommandsCmd(),
		c.newAlarmsCmd(),
		c.newStorageCmd(),
		c.newBridgeCmd(),
	)
	return root
}

func (c *cli) setupLogger() error {
	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	if c.logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   c.logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		c.logCloser = lj
		c.logger = zerolog.New(lj).Level(level).With().Timestamp().Logger()
		return nil
	}
	console := zerolog.ConsoleWriter{Out: c.errOut, TimeFormat: time.RFC3339}
	c.logger = zerolog.New(console).Level(level).With().Timestamp().Logger()
	return nil
}

func (c *cli) closeLog() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}
