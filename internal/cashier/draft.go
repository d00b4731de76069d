package cashier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/MikeMC777/backoffice-resto/internal/order"
)

// DraftVersion is bumped when the Draft layout changes; older drafts are
// discarded on load.
const DraftVersion = 1

var (
	ErrNoDraft         = errors.New("no saved draft")
	ErrUnknownDecision = errors.New("decision must be resume or discard")
	ErrDraftPending    = errors.New("a saved draft must be resumed or discarded first")
)

// Draft is a counter order in progress, saved per terminal so it can be
// offered back after a reload.
type Draft struct {
	Version       int        `json:"version"`
	TerminalID    string     `json:"terminal_id"`
	CustomerID    *string    `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Type          order.Type `json:"order_type"`
	Address       string     `json:"address,omitempty"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
	Cart          Cart       `json:"cart"`
	SavedAt       time.Time  `json:"saved_at"`
}

type Decision string

const (
	DecisionResume  Decision = "resume"
	DecisionDiscard Decision = "discard"
)

type DraftStore interface {
	Save(ctx context.Context, d *Draft) error
	Load(ctx context.Context, terminalID string) (*Draft, error)
	Delete(ctx context.Context, terminalID string) error
}

// Drafts applies the resume-or-discard rule on top of a DraftStore. A saved
// draft is never silently overwritten by a new one: it has to be resumed or
// discarded first.
type Drafts struct {
	store DraftStore
	now   func() time.Time
}

func NewDrafts(store DraftStore) *Drafts {
	return &Drafts{store: store, now: time.Now}
}

// Pending returns the saved draft of a terminal, if any.
func (d *Drafts) Pending(ctx context.Context, terminalID string) (*Draft, error) {
	return d.store.Load(ctx, terminalID)
}

// Save stores the draft. When replace is false and another draft with a
// different SavedAt is already stored, ErrDraftPending is returned.
func (d *Drafts) Save(ctx context.Context, draft *Draft, replace bool) error {
	if !replace {
		existing, err := d.store.Load(ctx, draft.TerminalID)
		switch {
		case errors.Is(err, ErrNoDraft):
		case err != nil:
			return err
		case !existing.SavedAt.Equal(draft.SavedAt):
			return ErrDraftPending
		}
	}
	draft.Version = DraftVersion
	draft.SavedAt = d.now().UTC()
	return d.store.Save(ctx, draft)
}

// Resolve applies the user's decision: resume returns the draft and keeps
// it, discard deletes it and returns nil.
func (d *Drafts) Resolve(ctx context.Context, terminalID string, decision Decision) (*Draft, error) {
	switch decision {
	case DecisionResume:
		return d.store.Load(ctx, terminalID)
	case DecisionDiscard:
		return nil, d.store.Delete(ctx, terminalID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecision, decision)
	}
}

// BadgerDraftStore keeps drafts in an embedded badger database.
type BadgerDraftStore struct {
	db *badger.DB
}

const draftKeyPrefix = "draft:"

// OpenBadgerDraftStore opens the database at path; an empty path keeps it in
// memory.
func OpenBadgerDraftStore(path string) (*BadgerDraftStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}
	return &BadgerDraftStore{db: db}, nil
}

func (s *BadgerDraftStore) Close() error { return s.db.Close() }

func (s *BadgerDraftStore) Save(_ context.Context, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(draftKeyPrefix+d.TerminalID), data)
	})
}

func (s *BadgerDraftStore) Load(_ context.Context, terminalID string) (*Draft, error) {
	var d Draft
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(draftKeyPrefix + terminalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoDraft
		}
		if err != nil {
			return fmt.Errorf("get draft: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		})
	})
	if err != nil {
		return nil, err
	}
	if d.Version != DraftVersion {
		return nil, ErrNoDraft
	}
	return &d, nil
}

func (s *BadgerDraftStore) Delete(_ context.Context, terminalID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(draftKeyPrefix + terminalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
