package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-crudkit/pkg/activity"
	"github.com/goliatone/go-crudkit/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type users struct {
	records []usertypes.ActivityRecord
	err     error
}

func (u *users) Log(_ context.Context, record usertypes.ActivityRecord) error {
	u.records = append(u.records, record)
	return u.err
}

func TestSinkMapsEntityEvent(t *testing.T) {
	log := &users{}
	sink := usersink.Sink{Users: log}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actor := activity.Actor{ID: uuid.New().String(), UserID: uuid.New().String(), TenantID: uuid.New().String()}
	event := activity.EntityUpdated("people", "7", []string{"name"}).
		WithInstance("people-admin").
		WithActor(actor).
		WithMeta("source", "form")
	event.Channel = "crudkit"
	event.OccurredAt = now

	if err := sink.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(log.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(log.records))
	}
	record := log.records[0]
	if record.ActorID.String() != actor.ID || record.UserID.String() != actor.UserID || record.TenantID.String() != actor.TenantID {
		t.Fatalf("unexpected identities: %+v", record)
	}
	if record.Verb != string(activity.VerbEntityUpdated) || record.ObjectType != "people" || record.ObjectID != "7" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "crudkit" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	if record.Data["instance"] != "people-admin" || record.Data["resource"] != "people" || record.Data["source"] != "form" {
		t.Fatalf("unexpected record data %v", record.Data)
	}
	fields, ok := record.Data["changed_fields"].([]string)
	if !ok || len(fields) != 1 || fields[0] != "name" {
		t.Fatalf("expected changed fields, got %v", record.Data["changed_fields"])
	}
}

func TestSinkStoreEventUsesFallbackChannel(t *testing.T) {
	log := &users{}
	sink := usersink.Sink{Users: log, Channel: "admin"}

	if err := sink.Record(context.Background(), activity.StoreSaved("views", "people-admin")); err != nil {
		t.Fatalf("record: %v", err)
	}
	record := log.records[0]
	if record.Channel != "admin" {
		t.Fatalf("expected fallback channel, got %q", record.Channel)
	}
	if _, ok := record.Data["resource"]; ok {
		t.Fatalf("store events carry no resource, got %v", record.Data)
	}
	if record.ActorID != uuid.Nil || record.OccurredAt.IsZero() {
		t.Fatalf("expected nil actor and a stamped time, got %+v", record)
	}
}

func TestSinkSkipsIncompleteEvents(t *testing.T) {
	log := &users{}
	sink := usersink.Sink{Users: log}

	_ = sink.Record(context.Background(), activity.Event{})
	_ = sink.Record(context.Background(), activity.EntityCreated("people", " "))

	if len(log.records) != 0 {
		t.Fatalf("expected no records, got %d", len(log.records))
	}
}

func TestSinkReturnsUsersError(t *testing.T) {
	boom := errors.New("down")
	sink := usersink.Sink{Users: &users{err: boom}}
	if err := sink.Record(context.Background(), activity.EntityCreated("people", "1")); !errors.Is(err, boom) {
		t.Fatalf("expected users error, got %v", err)
	}
	if err := (usersink.Sink{}).Record(context.Background(), activity.EntityCreated("people", "1")); err != nil {
		t.Fatalf("sink without users must be a no-op, got %v", err)
	}
}

func TestSinkThroughEmitter(t *testing.T) {
	log := &users{}
	emitter := activity.NewEmitter(activity.Config{Enabled: true, Channel: "admin-ui"}, usersink.Sink{Users: log})
	if err := emitter.Emit(context.Background(), activity.DeleteRequested("people", "9")); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(log.records) != 1 || log.records[0].Channel != "admin-ui" {
		t.Fatalf("expected emitter channel on record, got %+v", log.records)
	}
}
