package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yamcs/yamcs-client-go/pkg/bridge"
)

// bridgeConfig is the layout of a bridge configuration file.
type bridgeConfig struct {
	Processor     string `yaml:"processor,omitempty"`
	bridge.Config `yaml:",inline"`
	Sink          bridge.SinkConfig `yaml:"sink"`
}

func loadBridgeConfig(path string) (*bridgeConfig, error) {
	cfg := &bridgeConfig{}
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("invalid bridge config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *cli) newBridgeCmd() *cobra.Command {
	var (
		configFile string
		processor  string
		parameters []string
		alarms     bool
		format     string
		sinkKind   string
		interval   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Forward parameter and alarm updates to a message broker",
		Long: "Forward parameter and alarm updates to a message broker.\n\n" +
			"Brokers are configured in a YAML file given with --config. Flags override\n" +
			"the file. Without a sink, updates are printed to stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBridgeConfig(configFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("processor") || cfg.Processor == "" {
				cfg.Processor = processor
			}
			if flags.Changed("parameter") {
				cfg.Parameters = parameters
			}
			if flags.Changed("alarms") {
				cfg.Alarms = alarms
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if flags.Changed("sink") {
				cfg.Sink.Kind = sinkKind
			}
			if flags.Changed("interval") {
				cfg.Interval = interval
			}
			return c.runBridge(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Bridge configuration file")
	cmd.Flags().StringVar(&processor, "processor", defaultProcessor, "The processor to use")
	cmd.Flags().StringArrayVarP(&parameters, "parameter", "p", nil, "Parameter to forward (repeatable)")
	cmd.Flags().BoolVar(&alarms, "alarms", false, "Forward alarm updates")
	cmd.Flags().StringVar(&format, "format", bridge.FormatJSON, "Message format: json or otlp-json")
	cmd.Flags().StringVar(&sinkKind, "sink", bridge.SinkDisplay, "Sink: display, mqtt, amqp or eventhub")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Batching interval")
	return cmd
}

func (c *cli) runBridge(ctx context.Context, cfg *bridgeConfig) error {
	yc, instance, err := c.newInstanceClient(ctx)
	if err != nil {
		return err
	}
	defer yc.Close(context.Background())

	sink, err := bridge.NewSink(cfg.Sink, c.out, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close sink")
		}
	}()

	runner, err := bridge.NewRunner(yc.GetProcessor(instance, cfg.Processor), sink, cfg.Config, c.logger)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
