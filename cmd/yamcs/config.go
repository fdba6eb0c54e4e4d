package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yamcs/yamcs-client-go/api/yamcs"
	"github.com/yamcs/yamcs-client-go/model"
)

const (
	configDirName  = "yamcs-cli"
	configFileName = "config.yaml"
)

var coreProperties = []string{"address", "instance", "tls", "insecure"}

// Config is the persisted state of the CLI.
type Config struct {
	Core CoreConfig         `yaml:"core"`
	Auth *model.Credentials `yaml:"auth,omitempty"`

	path string
}

// CoreConfig holds the user-editable properties.
type CoreConfig struct {
	Address  string `yaml:"address,omitempty"`
	Instance string `yaml:"instance,omitempty"`
	TLS      bool   `yaml:"tls,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

func configPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot locate config directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// loadConfig reads the config file. A missing file is an empty config.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg := &Config{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(cfg.path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(cfg.path, b, 0o600)
}

func (cfg *Config) get(property string) (string, bool) {
	switch property {
	case "address":
		return cfg.Core.Address, cfg.Core.Address != ""
	case "instance":
		return cfg.Core.Instance, cfg.Core.Instance != ""
	case "tls":
		return strconv.FormatBool(cfg.Core.TLS), cfg.Core.TLS
	case "insecure":
		return strconv.FormatBool(cfg.Core.Insecure), cfg.Core.Insecure
	}
	return "", false
}

func (cfg *Config) set(property, value string) error {
	switch property {
	case "address":
		cfg.Core.Address = value
	case "instance":
		cfg.Core.Instance = value
	case "tls", "insecure":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", property, value)
		}
		if property == "tls" {
			cfg.Core.TLS = b
		} else {
			cfg.Core.Insecure = b
		}
	default:
		return fmt.Errorf("unknown property %q", property)
	}
	return nil
}

func (cfg *Config) unset(property string) error {
	switch property {
	case "address":
		cfg.Core.Address = ""
	case "instance":
		cfg.Core.Instance = ""
	case "tls":
		cfg.Core.TLS = false
	case "insecure":
		cfg.Core.Insecure = false
	default:
		return fmt.Errorf("unknown property %q", property)
	}
	return nil
}

// resolvedAddress applies --address over the config.
func (c *cli) resolvedAddress(cfg *Config) string {
	if c.address != "" {
		return c.address
	}
	return cfg.Core.Address
}

// resolvedInstance applies --instance over the config.
func (c *cli) resolvedInstance(cfg *Config) (string, error) {
	if c.instance != "" {
		return c.instance, nil
	}
	if cfg.Core.Instance != "" {
		return cfg.Core.Instance, nil
	}
	return "", errors.New("no instance specified: use --instance or 'yamcs config set instance NAME'")
}

func (c *cli) clientOptions(cfg *Config) []yamcs.Option {
	opts := []yamcs.Option{
		yamcs.WithTLS(cfg.Core.TLS),
		yamcs.WithLogger(c.logger),
	}
	if address := c.resolvedAddress(cfg); address != "" {
		opts = append(opts, yamcs.WithAddress(address))
	}
	if cfg.Core.Insecure {
		opts = append(opts, yamcs.WithTLSConfig(&tls.Config{InsecureSkipVerify: true})) //nolint:gosec
	}
	return opts
}

// newClient connects with the stored tokens, if any. Refreshed tokens are
// written back to the config file.
func (c *cli) newClient(ctx context.Context) (*yamcs.YamcsClient, *Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := c.clientOptions(cfg)
	if cfg.Auth != nil && cfg.Auth.AccessToken != "" {
		opts = append(opts,
			yamcs.WithCredentials(*cfg.Auth),
			yamcs.WithOnTokenUpdate(func(creds model.Credentials) {
				cfg.Auth = &creds
				if err := cfg.save(); err != nil {
					c.logger.Warn().Err(err).Msg("failed to store refreshed tokens")
				}
			}),
		)
	}
	yc, err := yamcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	return yc, cfg, nil
}

func (c *cli) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Yamcs client properties",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List client properties",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, "[core]")
				for _, p := range coreProperties {
					if v, ok := cfg.get(p); ok {
						fmt.Fprintf(c.out, "%s = %s\n", p, v)
					}
				}
				if cfg.Auth != nil {
					fmt.Fprintln(c.out, "[auth]")
					if cfg.Auth.Username != "" {
						fmt.Fprintf(c.out, "username = %s\n", cfg.Auth.Username)
					}
					if !cfg.Auth.Expiry.IsZero() {
						fmt.Fprintf(c.out, "expiry = %s\n", cfg.Auth.Expiry.Format("2006-01-02T15:04:05Z07:00"))
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get PROPERTY",
			Short: "Get value of client property",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if v, ok := cfg.get(args[0]); ok {
					fmt.Fprintln(c.out, v)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set PROPERTY VALUE",
			Short: "Set client property",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := cfg.set(args[0], args[1]); err != nil {
					return err
				}
				return cfg.save()
			},
		},
		&cobra.Command{
			Use:   "unset PROPERTY",
			Short: "Unset client property",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := cfg.unset(args[0]); err != nil {
					return err
				}
				return cfg.save()
			},
		},
	)
	return cmd
}

// newInstanceClient is newClient for commands that operate on an instance.
func (c *cli) newInstanceClient(ctx context.Context) (*yamcs.YamcsClient, string, error) {
	yc, cfg, err := c.newClient(ctx)
	if err != nil {
		return nil, "", err
	}
	instance, err := c.resolvedInstance(cfg)
	if err != nil {
		yc.Close(ctx)
		return nil, "", err
	}
	return yc, instance, nil
}
