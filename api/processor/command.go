package processor

import (
	"context"

	"github.com/yamcs/yamcs-client-go/model"
)

// IssuedCommand is a command issued through a ProcessorClient.
type IssuedCommand struct {
	model.IssuedCommand
	client *ProcessorClient
}

// CreateCommandHistorySubscription subscribes to history updates of this
// command only.
func (ic *IssuedCommand) CreateCommandHistorySubscription(ctx context.Context, onData func(*model.CommandHistory)) (*CommandHistorySubscription, error) {
	return ic.client.CreateCommandHistorySubscription(ctx, []*IssuedCommand{ic}, onData)
}
