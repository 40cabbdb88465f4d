package redisnotify

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	charmLog "github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = rc.Close()
	})
	return m, rc
}

func TestPublisherPublishesJSON(t *testing.T) {
	_, rc := newTestClient(t)
	ctx := context.Background()
	sub := rc.Subscribe(ctx, "chan")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub, err := NewPublisher(rc, "chan")
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	notice := app.ChangeNotice{Origin: "a", TaskID: "t1", Operation: domain.ChangeOperationMove}
	if err := pub.Publish(ctx, notice); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got app.ChangeNotice
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got != notice {
			t.Fatalf("unexpected notice %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published notice")
	}
}

func TestNewPublisherRequiresClient(t *testing.T) {
	if _, err := NewPublisher(nil, ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestSubscribeSkipsOwnOrigin(t *testing.T) {
	_, rc := newTestClient(t)
	received := make(chan app.ChangeNotice, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Subscribe(ctx, charmLog.New(io.Discard), rc, "chan", "self", func(n app.ChangeNotice) {
			received <- n
		})
		close(done)
	}()
	// wait for subscription to start
	time.Sleep(50 * time.Millisecond)

	pub, _ := NewPublisher(rc, "chan")
	_ = pub.Publish(context.Background(), app.ChangeNotice{Origin: "self", TaskID: "mine", Operation: domain.ChangeOperationUpdate})
	_ = rc.Publish(context.Background(), "chan", "not json").Err()
	_ = pub.Publish(context.Background(), app.ChangeNotice{Origin: "other", TaskID: "theirs", Operation: domain.ChangeOperationMove})

	select {
	case n := <-received:
		if n.TaskID != "theirs" {
			t.Fatalf("expected only the foreign notice, got %#v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notice")
	}
	select {
	case n := <-received:
		t.Fatalf("unexpected extra notice %#v", n)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not exit")
	}
}

func TestSubscribeFeedsServiceRemoteChanges(t *testing.T) {
	_, rc := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := app.NewService(nopRepo{}, nil, time.Now, app.ServiceConfig{Origin: "proc-a"})
	snapshots := make(chan int, 4)
	unsubscribe, err := svc.SubscribeTasks(ctx, func(tasks []domain.Task) {
		snapshots <- len(tasks)
	})
	if err != nil {
		t.Fatalf("SubscribeTasks() error = %v", err)
	}
	defer unsubscribe()
	<-snapshots

	go Subscribe(ctx, charmLog.New(io.Discard), rc, "", svc.Origin(), svc.HandleRemoteChange)
	time.Sleep(50 * time.Millisecond)

	pub, _ := NewPublisher(rc, "")
	_ = pub.Publish(context.Background(), app.ChangeNotice{Origin: "proc-b", Operation: domain.ChangeOperationCreate})
	select {
	case <-snapshots:
	case <-time.After(time.Second):
		t.Fatal("expected reload after remote notice")
	}
}

type nopRepo struct{}

func (nopRepo) CreateTask(context.Context, domain.Task) error { return nil }
func (nopRepo) UpdateTask(context.Context, domain.Task) error { return nil }
func (nopRepo) GetTask(context.Context, string) (domain.Task, error) {
	return domain.Task{}, app.ErrNotFound
}
func (nopRepo) ListTasks(context.Context) ([]domain.Task, error)        { return nil, nil }
func (nopRepo) DeleteTask(context.Context, string) error                { return nil }
func (nopRepo) CreateContact(context.Context, domain.Contact) error     { return nil }
func (nopRepo) UpdateContact(context.Context, domain.Contact) error     { return nil }
func (nopRepo) GetContact(context.Context, string) (domain.Contact, error) {
	return domain.Contact{}, app.ErrNotFound
}
func (nopRepo) ListContacts(context.Context) ([]domain.Contact, error) { return nil, nil }
func (nopRepo) DeleteContact(context.Context, string) error            { return nil }
func (nopRepo) ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error) {
	return nil, nil
}
