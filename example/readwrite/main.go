package main

import (
	"context"
	"fmt"

	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/api/yamcs"
)

func getValue1(ctx context.Context, pc *processor.ProcessorClient) {
	pval, err := pc.GetParameterValue(ctx, "/YSS/SIMULATOR/BatteryVoltage1")
	if err != nil {
		fmt.Println("Error in getting parameter value: ", err)
		return
	}
	if pval == nil {
		fmt.Println("No value for BatteryVoltage1")
		return
	}
	fmt.Println(pval.Name(), pval.EngValue)
}

func getValues(ctx context.Context, pc *processor.ProcessorClient) {
	pvals, err := pc.GetParameterValues(ctx, []string{
		"/YSS/SIMULATOR/BatteryVoltage1",
		"/YSS/SIMULATOR/BatteryVoltage2",
	})
	if err != nil {
		fmt.Println("Error in getting parameter values: ", err)
		return
	}
	fmt.Println("battery1", pvals[0])
	fmt.Println("battery2", pvals[1])
}

func setValue(ctx context.Context, pc *processor.ProcessorClient) {
	if err := pc.SetParameterValue(ctx, "/YSS/SIMULATOR/AllowCriticalTC1", true); err != nil {
		fmt.Println("Error in setting parameter value: ", err)
	}
}

func setValues(ctx context.Context, pc *processor.ProcessorClient) {
	err := pc.SetParameterValues(ctx, map[string]interface{}{
		"/YSS/SIMULATOR/AllowCriticalTC1": false,
		"/YSS/SIMULATOR/AllowCriticalTC2": false,
	})
	if err != nil {
		fmt.Println("Error in setting parameter values: ", err)
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

	fmt.Println("Fetch single value:")
	getValue1(ctx, pc)

	fmt.Println("\nFetch multiple values:")
	getValues(ctx, pc)

	fmt.Println("\nSet single value:")
	setValue(ctx, pc)

	fmt.Println("\nSet multiple values:")
	setValues(ctx, pc)
}
