package events

import (
	"context"
	"fmt"
	"strings"
)

// CompositePublisher fans an event out to multiple publishers and
// collects their errors.
type CompositePublisher struct {
	publishers []Publisher
}

// NewCompositePublisher creates a CompositePublisher. It returns the
// concrete type so AddPublisher can be called during wiring.
func NewCompositePublisher(publishers ...Publisher) *CompositePublisher {
	return &CompositePublisher{publishers: publishers}
}

// AddPublisher appends a publisher to the fan-out list.
func (cp *CompositePublisher) AddPublisher(p Publisher) {
	if p != nil {
		cp.publishers = append(cp.publishers, p)
	}
}

func (cp *CompositePublisher) PublishMessageCreated(ctx context.Context, evt MessageCreated) error {
	if len(cp.publishers) == 0 {
		return fmt.Errorf("no publishers configured in CompositePublisher")
	}

	var allErrors []string
	for _, p := range cp.publishers {
		if err := p.PublishMessageCreated(ctx, evt); err != nil {
			allErrors = append(allErrors, err.Error())
		}
	}
	if len(allErrors) > 0 {
		return fmt.Errorf("composite publish failed: [ %s ]", strings.Join(allErrors, "; "))
	}
	return nil
}
