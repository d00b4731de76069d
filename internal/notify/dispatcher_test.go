package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
)

type recPublisher struct {
	got []Message
	err error
}

func (p *recPublisher) Publish(_ context.Context, m Message) error {
	p.got = append(p.got, m)
	return p.err
}

type recRepo struct{ inserted []Message }

func (r *recRepo) Insert(_ context.Context, m *Message) error {
	r.inserted = append(r.inserted, *m)
	return nil
}
func (r *recRepo) ListForOrder(context.Context, string) ([]Message, error) { return nil, nil }
func (r *recRepo) ListForDriver(context.Context, string, int) ([]Message, error) {
	return nil, nil
}

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func TestDispatcher_StoresDriverMessagesOnly(t *testing.T) {
	pub := &recPublisher{}
	repo := &recRepo{}
	d := NewDispatcher(pub, repo)

	d.Send(context.Background(), Message{Audience: AudienceDriver, Kind: KindDriverAssigned, DriverID: "d1", Text: "new order"})
	d.Send(context.Background(), Message{Audience: AudienceOrder, Kind: KindStatusChanged, OrderID: "o1", Text: "accepted"})

	if len(pub.got) != 2 {
		t.Fatalf("published=%d, want 2", len(pub.got))
	}
	if len(repo.inserted) != 1 || repo.inserted[0].DriverID != "d1" {
		t.Fatalf("inserted=%+v", repo.inserted)
	}
	if pub.got[0].ID == "" || pub.got[0].CreatedAt.IsZero() {
		t.Fatal("id and timestamp must be filled")
	}
}

func TestDispatcher_SwallowsPublishErrors(t *testing.T) {
	d := NewDispatcher(&recPublisher{err: errors.New("broker down")}, nil)
	d.Send(context.Background(), Message{Audience: AudienceOrder, Kind: KindNote})
}
