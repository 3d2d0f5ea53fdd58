package broker

import (
	"fmt"
	"sort"
)

// Logical event names shared by every service. Routing agreement across
// services is structural: everyone publishes and consumes through this
// table, never through ad-hoc exchange/key strings.
const (
	EventCandidateApproved   = "candidate.approved"
	EventCandidateRejected   = "candidate.rejected"
	EventTestListRequest     = "test.list.request"
	EventTestListResponse    = "test.list.response"
	EventAssignmentCompleted = "assignment.completed"
)

type Binding struct {
	Exchange   string
	RoutingKey string
	Queue      string
}

var topology = map[string]Binding{
	EventCandidateApproved:   {Exchange: "user.events", RoutingKey: "user.candidate.approved", Queue: "candidate.approved"},
	EventCandidateRejected:   {Exchange: "user.events", RoutingKey: "user.candidate.rejected", Queue: "candidate.rejected"},
	EventTestListRequest:     {Exchange: "test.events", RoutingKey: "test.list.request", Queue: "test.list.request"},
	EventTestListResponse:    {Exchange: "test.events", RoutingKey: "test.list.response", Queue: "test.list.response"},
	EventAssignmentCompleted: {Exchange: "test.assignment.events", RoutingKey: "test.assignment.completed", Queue: "test.assignment.completed"},
}

func LookupBinding(event string) (Binding, error) {
	b, ok := topology[event]
	if !ok {
		return Binding{}, fmt.Errorf("unknown logical event %q", event)
	}
	return b, nil
}

func QueueFor(event string) (string, error) {
	b, err := LookupBinding(event)
	if err != nil {
		return "", err
	}
	return b.Queue, nil
}

// ValidateEvents is called at service boot so that a misspelled event
// name fails the process before any publish is attempted.
func ValidateEvents(events ...string) error {
	for _, event := range events {
		if _, ok := topology[event]; !ok {
			return fmt.Errorf("unknown logical event %q", event)
		}
	}
	return nil
}

func Exchanges() []string {
	seen := make(map[string]struct{})
	var exchanges []string
	for _, b := range topology {
		if _, ok := seen[b.Exchange]; ok {
			continue
		}
		seen[b.Exchange] = struct{}{}
		exchanges = append(exchanges, b.Exchange)
	}
	sort.Strings(exchanges)
	return exchanges
}

func Bindings() []Binding {
	bindings := make([]Binding, 0, len(topology))
	for _, b := range topology {
		bindings = append(bindings, b)
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].Queue < bindings[j].Queue })
	return bindings
}
