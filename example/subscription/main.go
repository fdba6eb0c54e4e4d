package main

import (
	"context"
	"fmt"
	"time"

	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/api/yamcs"
	"github.com/yamcs/yamcs-client-go/model"
)

// pollValues prints the latest cached values every few seconds.
func pollValues(ctx context.Context, pc *processor.ProcessorClient) {
	sub, err := pc.CreateParameterSubscription(ctx, []string{"/YSS/SIMULATOR/BatteryVoltage1"}, nil)
	if err != nil {
		fmt.Println("Error in creating subscription: ", err)
		return
	}
	defer sub.Cancel()

	time.Sleep(5 * time.Second)
	fmt.Println("Latest value:")
	if pval, ok := sub.GetValue("/YSS/SIMULATOR/BatteryVoltage1"); ok {
		fmt.Println(pval.Name(), pval.EngValue)
	}

	time.Sleep(5 * time.Second)
	fmt.Println("Latest value:")
	if pval, ok := sub.GetValue("/YSS/SIMULATOR/BatteryVoltage1"); ok {
		fmt.Println(pval.Name(), pval.EngValue)
	}
}

// receiveCallbacks prints every delivery as it arrives.
func receiveCallbacks(ctx context.Context, pc *processor.ProcessorClient) {
	printData := func(data *model.ParameterData) {
		for _, pval := range data.Parameter {
			fmt.Println(pval.Name(), pval.EngValue)
		}
	}
	sub, err := pc.CreateParameterSubscription(ctx, []string{"/YSS/SIMULATOR/BatteryVoltage1"}, printData)
	if err != nil {
		fmt.Println("Error in creating subscription: ", err)
		return
	}
	defer sub.Cancel()
	time.Sleep(5 * time.Second)
}

// manageSubscription changes the parameters of a running subscription.
func manageSubscription(ctx context.Context, pc *processor.ProcessorClient) {
	sub, err := pc.CreateParameterSubscription(ctx, []string{"/YSS/SIMULATOR/BatteryVoltage1"}, nil)
	if err != nil {
		fmt.Println("Error in creating subscription: ", err)
		return
	}
	defer sub.Cancel()

	time.Sleep(5 * time.Second)
	fmt.Println("Adding extra items to the existing subscription...")
	if err := sub.Add([]string{
		"/YSS/SIMULATOR/Alpha",
		"/YSS/SIMULATOR/BatteryVoltage2",
		"MDB:OPS Name/SIMULATOR_PrimBusVoltage1",
	}); err != nil {
		fmt.Println("Error in adding parameters: ", err)
		return
	}

	time.Sleep(5 * time.Second)
	fmt.Println("Shrinking subscription...")
	if err := sub.Remove([]string{"/YSS/SIMULATOR/Alpha"}); err != nil {
		fmt.Println("Error in removing parameters: ", err)
		return
	}

	fmt.Println("Cancelling the subscription...")
	sub.Cancel()
	fmt.Println("Last values from cache:")
	for name, pval := range sub.ValueCache() {
		fmt.Println(name, pval.EngValue)
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

	fmt.Println("\nPoll value cache")
	pollValues(ctx, pc)

	fmt.Println("\nReceive callbacks")
	receiveCallbacks(ctx, pc)

	fmt.Println("\nModify the subscription")
	manageSubscription(ctx, pc)
}
