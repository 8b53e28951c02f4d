package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// tx stages the mutations of one operation. Market-owned state is changed
// in place and every change records an undo step; collaborator effects
// record a compensation. Either commit succeeds or everything recorded is
// undone in reverse order.
type tx struct {
	m    *Market
	ctx  context.Context
	undo []func()
	cs   Changeset

	// Enough to build the inverse of cs.
	prev    map[domain.ListingType]uint64
	removed []domain.Listing
}

func (m *Market) begin(ctx context.Context) *tx {
	return &tx{
		m:   m,
		ctx: ctx,
		cs: Changeset{
			Counters: make(map[domain.ListingType]uint64),
		},
		prev: make(map[domain.ListingType]uint64),
	}
}

// allocate issues the next id for t.
func (t *tx) allocate(typ domain.ListingType) (uint64, error) {
	prev := t.m.seq.Last(typ)
	id, err := t.m.seq.Next(typ)
	if err != nil {
		return 0, err
	}
	t.undo = append(t.undo, func() { t.m.seq.Restore(typ, prev) })
	if _, ok := t.prev[typ]; !ok {
		t.prev[typ] = prev
	}
	t.cs.Counters[typ] = id
	return id, nil
}

func (t *tx) insert(l domain.Listing) error {
	s := t.m.store(l.Type)
	if err := s.Insert(l); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { _, _ = s.Remove(l.ID) })
	t.cs.Inserted = append(t.cs.Inserted, l)
	return nil
}

func (t *tx) remove(typ domain.ListingType, id uint64) (domain.Listing, error) {
	s := t.m.store(typ)
	l, err := s.Remove(id)
	if err != nil {
		return domain.Listing{}, err
	}
	t.undo = append(t.undo, func() { _ = s.Insert(l) })
	t.cs.Removed = append(t.cs.Removed, ListingRef{Type: typ, ID: id})
	t.removed = append(t.removed, l)
	return l, nil
}

// compensate registers the inverse of a collaborator call that already
// took effect.
func (t *tx) compensate(name string, fn func(ctx context.Context) error) {
	t.undo = append(t.undo, func() {
		ctx := context.WithoutCancel(t.ctx)
		if err := fn(ctx); err != nil {
			t.m.logger.Error("compensation failed",
				slog.String("step", name),
				slog.String("error", err.Error()),
			)
		}
	})
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// inverse returns the changeset that undoes cs once it has been committed.
func (t *tx) inverse() Changeset {
	inv := Changeset{
		Counters: make(map[domain.ListingType]uint64, len(t.prev)),
		Inserted: append([]domain.Listing(nil), t.removed...),
	}
	for typ, last := range t.prev {
		inv.Counters[typ] = last
	}
	for _, l := range t.cs.Inserted {
		inv.Removed = append(inv.Removed, ListingRef{Type: l.Type, ID: l.ID})
	}
	for _, e := range t.cs.Sells {
		inv.VoidedSells = append(inv.VoidedSells, e.ID)
	}
	for _, e := range t.cs.Buys {
		inv.VoidedBuys = append(inv.VoidedBuys, e.ID)
	}
	return inv
}

// commit hands the changeset to the durable store, if one is configured.
// On failure everything is rolled back.
func (t *tx) commit() error {
	if t.m.committer == nil || t.cs.Empty() {
		return nil
	}
	if err := t.m.committer.Commit(t.ctx, t.cs); err != nil {
		t.rollback()
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// commitThen commits and then runs step, which must be the operation's last
// effect. If step fails the committed changeset is reversed and everything
// is rolled back.
func (t *tx) commitThen(name string, step func() error) error {
	if err := t.commit(); err != nil {
		return err
	}
	if err := step(); err != nil {
		t.revert(name)
		return err
	}
	return nil
}

// revert undoes an already committed changeset.
func (t *tx) revert(name string) {
	if t.m.committer != nil && !t.cs.Empty() {
		ctx := context.WithoutCancel(t.ctx)
		if err := t.m.committer.Commit(ctx, t.inverse()); err != nil {
			t.m.logger.Error("reversal commit failed",
				slog.String("step", name),
				slog.String("error", err.Error()),
			)
		}
	}
	t.rollback()
}
