package testutils

import (
	"sort"
	"sync"

	"bossrush/internal/events"
)

// PublishedEvent is one captured publication
type PublishedEvent struct {
	PartyCode string // empty for SendTo
	ExceptID  string // set for BroadcastExcept
	TargetID  string // set for SendTo
	// GroupMembers is the broadcast group of PartyCode at publish time,
	// sorted, for asserting that group membership never lags party state
	GroupMembers []string
	Event        events.Event
}

// RecordingPublisher implements events.Publisher and captures everything
// published through it for assertions
type RecordingPublisher struct {
	mu      sync.Mutex
	records []PublishedEvent
	groups  map[string]map[string]struct{}
}

// NewRecordingPublisher creates an empty recorder
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{
		groups: make(map[string]map[string]struct{}),
	}
}

// JoinGroup records a connection entering a party's broadcast group
func (p *RecordingPublisher) JoinGroup(code, connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	group, ok := p.groups[code]
	if !ok {
		group = make(map[string]struct{})
		p.groups[code] = group
	}
	group[connectionID] = struct{}{}
}

// LeaveGroup records a connection leaving a party's broadcast group
func (p *RecordingPublisher) LeaveGroup(code, connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.groups[code], connectionID)
	if len(p.groups[code]) == 0 {
		delete(p.groups, code)
	}
}

// InGroup reports whether a connection is currently in a party's group
func (p *RecordingPublisher) InGroup(code, connectionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.groups[code][connectionID]
	return ok
}

// Broadcast records a party-wide publication
func (p *RecordingPublisher) Broadcast(code string, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, PublishedEvent{
		PartyCode:    code,
		GroupMembers: p.groupSnapshot(code),
		Event:        event,
	})
}

// BroadcastExcept records a publication excluding one connection
func (p *RecordingPublisher) BroadcastExcept(code, exceptID string, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, PublishedEvent{
		PartyCode:    code,
		ExceptID:     exceptID,
		GroupMembers: p.groupSnapshot(code),
		Event:        event,
	})
}

// SendTo records a single-connection publication
func (p *RecordingPublisher) SendTo(connectionID string, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, PublishedEvent{TargetID: connectionID, Event: event})
}

// Events returns a copy of everything recorded so far
func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.records...)
}

// ByType returns recorded publications matching the event type
func (p *RecordingPublisher) ByType(t events.Type) []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []PublishedEvent
	for _, rec := range p.records {
		if rec.Event.EventType() == t {
			out = append(out, rec)
		}
	}
	return out
}

// Reset clears recorded events; group membership persists, as it would on a
// live hub
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = nil
}

func (p *RecordingPublisher) groupSnapshot(code string) []string {
	members := make([]string, 0, len(p.groups[code]))
	for id := range p.groups[code] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}
