package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

func alarmRow(a *model.Alarm) []string {
	seq := ""
	if n, ok := a.SequenceNumber(); ok {
		seq = strconv.Itoa(int(n))
	}
	value := ""
	if a.CurrentValue != nil {
		value = formatValue(a.CurrentValue)
	}
	return []string{a.Name(), seq, a.Type, value, strconv.FormatBool(a.IsAcknowledged())}
}

func (c *cli) newAlarmsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alarms",
		Short: "Read and acknowledge alarms",
	}
	var processorName string

	list := &cobra.Command{
		Use:   "list",
		Short: "List active alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			alarms, err := yc.GetProcessor(instance, processorName).ListAlarms(cmd.Context(), time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			rows := [][]string{{"PARAMETER", "SEQ", "TYPE", "VALUE", "ACKNOWLEDGED"}}
			for i := range alarms {
				rows = append(rows, alarmRow(&alarms[i]))
			}
			return printTable(c.out, rows)
		},
	}

	var comment string
	acknowledge := &cobra.Command{
		Use:   "acknowledge PARAMETER",
		Short: "Acknowledge the active alarm of a parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			pc := yc.GetProcessor(instance, processorName)
			alarms, err := pc.ListAlarms(cmd.Context(), time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			for i := range alarms {
				if alarms[i].Name() == args[0] {
					return pc.AcknowledgeAlarm(cmd.Context(), &alarms[i], comment)
				}
			}
			return fmt.Errorf("no active alarm for %s: %w", args[0], model.ErrNotFound)
		},
	}
	acknowledge.Flags().StringVar(&comment, "comment", "", "Acknowledge message")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print alarm updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			sub, err := yc.GetProcessor(instance, processorName).CreateAlarmSubscription(cmd.Context(), func(e *model.AlarmEvent) {
				fmt.Fprintf(c.out, "%s %s %s\n", utils.ToISOString(time.Now()), e.EventType(), e.Name())
			})
			if err != nil {
				return err
			}
			return waitSubscription(cmd.Context(), sub.Subscription)
		},
	}

	for _, sub := range []*cobra.Command{list, acknowledge, watch} {
		sub.Flags().StringVar(&processorName, "processor", defaultProcessor, "The processor to use")
	}
	cmd.AddCommand(list, acknowledge, watch)
	return cmd
}
