package main

import (
	"context"
	"fmt"
	"time"

	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/api/yamcs"
	"github.com/yamcs/yamcs-client-go/model"
)

func issueCommand(ctx context.Context, pc *processor.ProcessorClient) {
	issued, err := pc.IssueCommand(ctx, "/YSS/SIMULATOR/SWITCH_VOLTAGE_OFF", map[string]interface{}{
		"voltage_num": 1,
	})
	if err != nil {
		fmt.Println("Error in issuing command: ", err)
		return
	}
	fmt.Println("Issued", issued)

	// Named by alias.
	issued, err = pc.IssueCommand(ctx, "MDB:OPS Name/SWITCH_VOLTAGE_ON", map[string]interface{}{
		"voltage_num": 1,
	})
	if err != nil {
		fmt.Println("Error in issuing command: ", err)
		return
	}
	fmt.Println("Issued", issued)
}

// monitorCommand follows the history of one command until it completes.
func monitorCommand(ctx context.Context, pc *processor.ProcessorClient) {
	issued, err := pc.IssueCommand(ctx, "/YSS/SIMULATOR/SWITCH_VOLTAGE_OFF", map[string]interface{}{
		"voltage_num": 1,
	})
	if err != nil {
		fmt.Println("Error in issuing command: ", err)
		return
	}

	completed := make(chan *model.CommandHistory, 1)
	sub, err := issued.CreateCommandHistorySubscription(ctx, func(rec *model.CommandHistory) {
		fmt.Println(rec)
		if rec.IsComplete() {
			select {
			case completed <- rec:
			default:
			}
		}
	})
	if err != nil {
		fmt.Println("Error in subscribing to command history: ", err)
		return
	}
	defer sub.Cancel()

	select {
	case rec := <-completed:
		if rec.IsFailed() {
			fmt.Println("Command failed:", rec.FailureMessage())
		} else {
			fmt.Println("Command completed")
		}
	case <-time.After(10 * time.Second):
		fmt.Println("Command did not complete in time")
	}
}

// monitorAcknowledgment waits for the acknowledgment of the ground stations.
func monitorAcknowledgment(ctx context.Context, pc *processor.ProcessorClient) {
	issued, err := pc.IssueCommand(ctx, "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON", map[string]interface{}{
		"voltage_num": 1,
	})
	if err != nil {
		fmt.Println("Error in issuing command: ", err)
		return
	}

	acked := make(chan *model.CommandHistoryEvent, 1)
	sub, err := issued.CreateCommandHistorySubscription(ctx, func(rec *model.CommandHistory) {
		if ack := rec.AcknowledgeEvent(); ack != nil {
			select {
			case acked <- ack:
			default:
			}
		}
	})
	if err != nil {
		fmt.Println("Error in subscribing to command history: ", err)
		return
	}
	defer sub.Cancel()

	select {
	case ack := <-acked:
		fmt.Println("Acknowledgment:", ack)
	case <-time.After(10 * time.Second):
		fmt.Println("Command was not acknowledged in time")
	}
}

func main() {
	ctx := context.Background()
	client, err := yamcs.NewClient(ctx, yamcs.WithAddress("localhost:8090"))
	if err != nil {
		fmt.Println("Error in initializing client: ", err)
		return
	}
	defer client.Close(ctx)
	pc := client.GetProcessor("simulator", "realtime")

	fmt.Println("Issue command")
	issueCommand(ctx, pc)

	fmt.Println("\nMonitor command completion")
	monitorCommand(ctx, pc)

	fmt.Println("\nMonitor acknowledgment")
	monitorAcknowledgment(ctx, pc)
}
