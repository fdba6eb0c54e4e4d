package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/model"
)

const defaultWaitTimeout = 2 * time.Minute

// parseAssignments turns name=value arguments into command arguments.
func parseAssignments(assignments []string) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(assignments))
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q: expected NAME=VALUE", a)
		}
		args[name] = parseValue(value)
	}
	return args, nil
}

func (c *cli) newCommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Read and issue commands",
	}

	var search, system string
	list := &cobra.Command{
		Use:   "list",
		Short: "List commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			commands, err := yc.GetMDB(instance).ListCommands(cmd.Context(), listOptions(search, system)...)
			if err != nil {
				return err
			}
			rows := [][]string{{"NAME", "DESCRIPTION"}}
			for _, cmdInfo := range commands {
				if cmdInfo.Abstract {
					continue
				}
				rows = append(rows, []string{cmdInfo.QualifiedName, cmdInfo.ShortDesc})
			}
			return printTable(c.out, rows)
		},
	}
	list.Flags().StringVarP(&search, "search", "q", "", "Only list commands matching this text")
	list.Flags().StringVar(&system, "system", "", "Only list commands of this space system")

	var (
		processorName string
		assignments   []string
		dryRun        bool
		comment       string
		wait          bool
		timeout       time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue NAME",
		Short: "Issue a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdArgs, err := parseAssignments(assignments)
			if err != nil {
				return err
			}
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			opts := []processor.CommandOption{processor.WithDryRun(dryRun)}
			if comment != "" {
				opts = append(opts, processor.WithComment(comment))
			}
			pc := yc.GetProcessor(instance, processorName)
			if wait && !dryRun {
				return c.issueAndWait(cmd.Context(), pc, args[0], cmdArgs, opts, timeout)
			}
			issued, err := pc.IssueCommand(cmd.Context(), args[0], cmdArgs, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, issued)
			return nil
		},
	}
	issue.Flags().StringVar(&processorName, "processor", defaultProcessor, "The processor to use")
	issue.Flags().StringArrayVarP(&assignments, "arg", "a", nil, "Command argument as NAME=VALUE (repeatable)")
	issue.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the command without issuing it")
	issue.Flags().StringVar(&comment, "comment", "", "Comment attached to the command")
	issue.Flags().BoolVar(&wait, "wait", false, "Wait for the command to complete")
	issue.Flags().DurationVar(&timeout, "timeout", defaultWaitTimeout, "How long --wait waits for completion (0 waits forever)")

	cmd.AddCommand(list, issue)
	return cmd
}

// issueAndWait subscribes to the command history of the processor before
// issuing, so that a command completing quickly is not missed, and returns
// once the issued command completes.
func (c *cli) issueAndWait(ctx context.Context, pc *processor.ProcessorClient, name string, args map[string]interface{}, opts []processor.CommandOption, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		target string
	)
	completed := make(chan *model.CommandHistory, 1)
	notify := func(rec *model.CommandHistory) {
		if !rec.IsComplete() {
			return
		}
		select {
		case completed <- rec:
		default:
		}
	}
	sub, err := pc.CreateCommandHistorySubscription(ctx, nil, func(rec *model.CommandHistory) {
		mu.Lock()
		match := target != "" && rec.ID().Key() == target
		mu.Unlock()
		if !match {
			return
		}
		fmt.Fprintln(c.out, rec)
		notify(rec)
	})
	if err != nil {
		return err
	}
	defer func() {
		sub.Cancel()
		<-sub.Done()
	}()

	issued, err := pc.IssueCommand(ctx, name, args, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, issued)
	mu.Lock()
	target = issued.ID().Key()
	mu.Unlock()
	// Updates received before the command id was known are only cached.
	if rec, ok := sub.GetCommandHistory(issued); ok {
		notify(rec)
	}

	select {
	case rec := <-completed:
		if !rec.IsFailed() {
			return nil
		}
		if msg := rec.FailureMessage(); msg != "" {
			return errors.New(msg)
		}
		return errors.New("command failed")
	case <-sub.Done():
		if err := sub.Err(); err != nil {
			return err
		}
		return errors.New("command history ended before the command completed")
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("command did not complete within %s", timeout)
		}
		return ctx.Err()
	}
}
