// Package usersink records CRUD activity through a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-crudkit/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Sink turns activity events into go-users activity records.
type Sink struct {
	Users usertypes.ActivitySink
	// Channel fills records whose event carries none.
	Channel string
}

func (s Sink) Record(ctx context.Context, event activity.Event) error {
	if s.Users == nil {
		return nil
	}
	event = activity.Normalize(event)
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.Users.Log(ctx, toRecord(event, s.Channel))
}

func toRecord(event activity.Event, fallback string) usertypes.ActivityRecord {
	channel := event.Channel
	if channel == "" {
		channel = strings.TrimSpace(fallback)
	}
	data := make(map[string]any, len(event.Metadata)+3)
	for k, v := range event.Metadata {
		data[k] = v
	}
	if event.Instance != "" {
		data["instance"] = event.Instance
	}
	if len(event.Changed) > 0 {
		data["changed_fields"] = event.Changed
	}
	if strings.HasPrefix(string(event.Verb), "entity.") {
		data["resource"] = event.Resource
	}
	if len(data) == 0 {
		data = nil
	}
	return usertypes.ActivityRecord{
		ActorID:    parseUUID(event.Actor.ID),
		UserID:     parseUUID(event.Actor.UserID),
		TenantID:   parseUUID(event.Actor.TenantID),
		Verb:       string(event.Verb),
		ObjectType: event.Resource,
		ObjectID:   event.EntityID,
		Channel:    channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

// parseUUID maps anything that is not a UUID to uuid.Nil.
func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(input)
	if err != nil {
		return uuid.Nil
	}
	return id
}
