package main

import (
	"context"
	"fmt"
	"time"

	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/api/yamcs"
	"github.com/yamcs/yamcs-client-go/model"
)

func receiveCallbacks(ctx context.Context, pc *processor.ProcessorClient) {
	sub, err := pc.CreateAlarmSubscription(ctx, func(event *model.AlarmEvent) {
		fmt.Println("Alarm update:", event)
	})
	if err != nil {
		fmt.Println("Error in subscribing to alarms: ", err)
		return
	}
	defer sub.Cancel()
	time.Sleep(10 * time.Second)
}

// acknowledgeAll acknowledges every active alarm that is not yet acknowledged.
func acknowledgeAll(ctx context.Context, pc *processor.ProcessorClient) {
	alarms, err := pc.ListAlarms(ctx, time.Time{}, time.Time{})
	if err != nil {
		fmt.Println("Error in listing alarms: ", err)
		return
	}
	for i := range alarms {
		alarm := &alarms[i]
		if alarm.IsAcknowledged() {
			continue
		}
		if err := pc.AcknowledgeAlarm(ctx, alarm, "go SDK for the win"); err != nil {
			fmt.Println("Error in acknowledging alarm: ", err)
		}
	}
}

// changeAlarmRanges overrides the default alarm ranges of a parameter.
func changeAlarmRanges(ctx context.Context, pc *processor.ProcessorClient) {
	ranges := model.RangeSet{
		Watch:    model.NewRange(-10, 10),
		Critical: model.NewRange(-40, 40),
	}
	if err := pc.SetDefaultAlarmRanges(ctx, "/YSS/SIMULATOR/BatteryVoltage1", ranges); err != nil {
		fmt.Println("Error in setting alarm ranges: ", err)
		return
	}
	time.Sleep(5 * time.Second)
	if err := pc.ResetAlarmRanges(ctx, "/YSS/SIMULATOR/BatteryVoltage1"); err != nil {
		fmt.Println("Error in resetting alarm ranges: ", err)
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

	fmt.Println("Receive alarm updates")
	receiveCallbacks(ctx, pc)

	fmt.Println("\nAcknowledge active alarms")
	acknowledgeAll(ctx, pc)

	fmt.Println("\nChange alarm ranges")
	changeAlarmRanges(ctx, pc)
}
