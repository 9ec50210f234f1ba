// Package ledgertest 提供所有 Ledger 實作共用的合約測試。
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
)

// Run 對 newLedger 建立的實作執行合約測試；每個子測試使用新的 Ledger。
func Run(t *testing.T, newLedger func(t *testing.T) ledger.Ledger) {
	t.Helper()
	ctx := context.Background()

	t.Run("create_get", func(t *testing.T) {
		l := newLedger(t)
		snap := ledger.Snapshot{ID: "s1", Level: 1, SpinsRemaining: 5, IsActive: true}
		if err := l.CreateSession(ctx, snap); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := l.GetSession(ctx, "s1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ID != "s1" || got.Level != 1 || got.SpinsRemaining != 5 || !got.IsActive {
			t.Fatalf("unexpected snapshot %+v", got)
		}
		if got.UpdatedAt.IsZero() {
			t.Fatalf("updated_at not stamped")
		}
		if err := l.CreateSession(ctx, snap); !errors.Is(err, ledger.ErrExists) {
			t.Fatalf("expected ErrExists, got %v", err)
		}
		if _, err := l.GetSession(ctx, "missing"); !errs.Is(err, errs.NotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("items", func(t *testing.T) {
		l := newLedger(t)
		mustCreate(t, l, "s1")
		if err := l.GrantItem(ctx, "s1", "holy_water", 2); err != nil {
			t.Fatalf("grant: %v", err)
		}
		if err := l.GrantItem(ctx, "s1", "holy_water", 1); err != nil {
			t.Fatalf("grant again: %v", err)
		}
		if err := l.GrantItem(ctx, "s1", "cherry_charm", 1); err != nil {
			t.Fatalf("grant: %v", err)
		}
		if err := l.ConsumeItem(ctx, "s1", "holy_water", 1); err != nil {
			t.Fatalf("consume: %v", err)
		}
		hs, err := l.GetOwnedItems(ctx, "s1")
		if err != nil {
			t.Fatalf("owned: %v", err)
		}
		if len(hs) != 2 || hs[0].ItemID != "cherry_charm" || hs[1].ItemID != "holy_water" || hs[1].Quantity != 2 {
			t.Fatalf("unexpected holdings %+v", hs)
		}
		if err := l.ConsumeItem(ctx, "s1", "cherry_charm", 2); !errors.Is(err, ledger.ErrInsufficient) {
			t.Fatalf("expected ErrInsufficient, got %v", err)
		}
		if err := l.ConsumeItem(ctx, "s1", "cherry_charm", 1); err != nil {
			t.Fatalf("consume last: %v", err)
		}
		hs, _ = l.GetOwnedItems(ctx, "s1")
		if len(hs) != 1 {
			t.Fatalf("zero quantity items should be omitted, got %+v", hs)
		}
		if err := l.GrantItem(ctx, "s1", "x", 0); !errs.Is(err, errs.MalformedInput) {
			t.Fatalf("expected MalformedInput, got %v", err)
		}
		if err := l.GrantItem(ctx, "missing", "x", 1); !errs.Is(err, errs.NotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
		if _, err := l.GetOwnedItems(ctx, "missing"); !errs.Is(err, errs.NotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("checkpoint_end", func(t *testing.T) {
		l := newLedger(t)
		mustCreate(t, l, "s1")
		cp := ledger.Snapshot{ID: "s1", Score: 40, TotalScore: 40, Level: 3, SpinsRemaining: 2, IsActive: true}
		if err := l.Checkpoint(ctx, cp); err != nil {
			t.Fatalf("checkpoint: %v", err)
		}
		if err := l.EndSession(ctx, "s1", 40, 3); err != nil {
			t.Fatalf("end: %v", err)
		}
		got, _ := l.GetSession(ctx, "s1")
		if got.IsActive || got.Score != 40 || got.Level != 3 || got.TotalScore != 40 {
			t.Fatalf("unexpected ended snapshot %+v", got)
		}
		if err := l.EndSession(ctx, "s1", 40, 3); err != nil {
			t.Fatalf("repeated end with same values must succeed: %v", err)
		}
		if err := l.EndSession(ctx, "s1", 41, 3); !errors.Is(err, ledger.ErrEnded) {
			t.Fatalf("expected ErrEnded, got %v", err)
		}
		if err := l.Checkpoint(ctx, cp); !errors.Is(err, ledger.ErrEnded) {
			t.Fatalf("expected ErrEnded on checkpoint, got %v", err)
		}
		if err := l.EndSession(ctx, "missing", 0, 1); !errs.Is(err, errs.NotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		l := newLedger(t)
		mustCreate(t, l, "s1")
		if err := l.GrantItem(ctx, "s1", "holy_water", 2); err != nil {
			t.Fatalf("grant: %v", err)
		}
		if err := l.DeleteSession(ctx, "s1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := l.GetSession(ctx, "s1"); !errs.Is(err, errs.NotFound) {
			t.Fatalf("expected NotFound after delete, got %v", err)
		}
		if _, err := l.GetOwnedItems(ctx, "s1"); !errs.Is(err, errs.NotFound) {
			t.Fatalf("holdings should go with the session, got %v", err)
		}
		if err := l.DeleteSession(ctx, "s1"); !errs.Is(err, errs.NotFound) {
			t.Fatalf("expected NotFound on second delete, got %v", err)
		}
		// 同 id 可重新建立，且不帶舊的道具
		mustCreate(t, l, "s1")
		if hs, err := l.GetOwnedItems(ctx, "s1"); err != nil || len(hs) != 0 {
			t.Fatalf("recreated session inherited holdings: %+v %v", hs, err)
		}
	})

	t.Run("canceled_context", func(t *testing.T) {
		l := newLedger(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := l.GetSession(cctx, "s1"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func mustCreate(t *testing.T, l ledger.Ledger, id string) {
	t.Helper()
	if err := l.CreateSession(context.Background(), ledger.Snapshot{ID: id, Level: 1, SpinsRemaining: 5, IsActive: true}); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}
