package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yamcs/yamcs-client-go/api/mdb"
	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

const defaultProcessor = "realtime"

// parseValue guesses the type of a value given on the command line.
func parseValue(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func formatValue(pv *model.ParameterValue) string {
	if pv == nil {
		return "-"
	}
	if pv.EngValue != nil {
		return pv.EngValue.String()
	}
	if pv.RawValue != nil {
		return pv.RawValue.String()
	}
	return "-"
}

func formatTime(pv *model.ParameterValue) string {
	if t := pv.GenerationTime(); t != nil {
		return utils.ToISOString(*t)
	}
	return ""
}

func listOptions(search, system string) []mdb.ListOption {
	var opts []mdb.ListOption
	if search != "" {
		opts = append(opts, mdb.WithSearch(search))
	}
	if system != "" {
		opts = append(opts, mdb.WithSpaceSystem(system))
	}
	return opts
}

func (c *cli) newParametersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parameters",
		Short: "Read and write parameters",
	}

	var search, system string
	list := &cobra.Command{
		Use:   "list",
		Short: "List parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			parameters, err := yc.GetMDB(instance).ListParameters(cmd.Context(), listOptions(search, system)...)
			if err != nil {
				return err
			}
			rows := [][]string{{"NAME", "DATA SOURCE"}}
			for _, p := range parameters {
				rows = append(rows, []string{p.QualifiedName, p.DataSource})
			}
			return printTable(c.out, rows)
		},
	}
	list.Flags().StringVarP(&search, "search", "q", "", "Only list parameters matching this text")
	list.Flags().StringVar(&system, "system", "", "Only list parameters of this space system")

	describe := &cobra.Command{
		Use:   "describe NAME",
		Short: "Describe a parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())
			parameter, err := yc.GetMDB(instance).GetParameter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(c.out, parameter)
		},
	}

	var processorName string
	var fromCache bool
	get := &cobra.Command{
		Use:   "get NAME...",
		Short: "Get the current value of parameters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			pc := yc.GetProcessor(instance, processorName)
			values, err := pc.GetParameterValues(cmd.Context(), args, processor.WithFromCache(fromCache))
			if err != nil {
				return err
			}
			rows := [][]string{{"NAME", "VALUE", "GENERATION TIME"}}
			for i, pv := range values {
				t := ""
				if pv != nil {
					t = formatTime(pv)
				}
				rows = append(rows, []string{args[i], formatValue(pv), t})
			}
			return printTable(c.out, rows)
		},
	}
	get.Flags().BoolVar(&fromCache, "from-cache", true, "Read from the processor cache instead of waiting for a new value")

	set := &cobra.Command{
		Use:   "set NAME VALUE [NAME VALUE]...",
		Short: "Set the value of software parameters",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected NAME VALUE pairs, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			pc := yc.GetProcessor(instance, processorName)
			if len(args) == 2 {
				return pc.SetParameterValue(cmd.Context(), args[0], parseValue(args[1]))
			}
			values := make(map[string]interface{}, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				values[args[i]] = parseValue(args[i+1])
			}
			return pc.SetParameterValues(cmd.Context(), values)
		},
	}

	subscribe := &cobra.Command{
		Use:   "subscribe NAME...",
		Short: "Print parameter updates until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			pc := yc.GetProcessor(instance, processorName)
			sub, err := pc.CreateParameterSubscription(cmd.Context(), args, func(data *model.ParameterData) {
				for i := range data.Parameter {
					pv := &data.Parameter[i]
					fmt.Fprintf(c.out, "%s %s %s\n", formatTime(pv), pv.Name(), formatValue(pv))
				}
			})
			if err != nil {
				return err
			}
			return waitSubscription(cmd.Context(), sub.Subscription)
		},
	}

	for _, sub := range []*cobra.Command{get, set, subscribe} {
		sub.Flags().StringVar(&processorName, "processor", defaultProcessor, "The processor to use")
	}
	cmd.AddCommand(list, describe, get, set, subscribe)
	return cmd
}

// waitSubscription blocks until ctx is done or the subscription ends.
func waitSubscription(ctx context.Context, sub *processor.Subscription) error {
	select {
	case <-ctx.Done():
		sub.Cancel()
		<-sub.Done()
		return nil
	case <-sub.Done():
		return sub.Err()
	}
}

func (c *cli) newContainersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "containers",
		Short: "Read containers",
	}
	var search, system string
	list := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			containers, err := yc.GetMDB(instance).ListContainers(cmd.Context(), listOptions(search, system)...)
			if err != nil {
				return err
			}
			rows := [][]string{{"NAME", "DESCRIPTION"}}
			for _, ct := range containers {
				rows = append(rows, []string{ct.QualifiedName, strings.TrimSpace(ct.Description())})
			}
			return printTable(c.out, rows)
		},
	}
	list.Flags().StringVarP(&search, "search", "q", "", "Only list containers matching this text")
	list.Flags().StringVar(&system, "system", "", "Only list containers of this space system")

	cmd.AddCommand(list, &cobra.Command{
		Use:   "describe NAME",
		Short: "Describe a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())
			container, err := yc.GetMDB(instance).GetContainer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(c.out, container)
		},
	})
	return cmd
}
