package tsengine

import (
	"context"
	"testing"
	"time"
)

func TestWriterAppendRejectsArityMismatch(t *testing.T) {
	db := openTestDB(t)
	wtx, err := db.BeginWrite(context.Background())
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	defer wtx.Rollback()

	wr := newWriter(wtx, 2)
	err = wr.Append("pair", time.Now().UTC(), []float64{1.0})
	if kind, ok := KindOf(err); !ok || kind != KindInvalidArgument {
		t.Fatalf("Append err = %v, want InvalidArgument", err)
	}
}

func TestWriterDisposeWithoutCommitDiscardsAppends(t *testing.T) {
	db := openTestDB(t)
	t0 := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	wtx, err := db.BeginWrite(context.Background())
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	wr := newWriter(wtx, 1)
	if err := wr.Append("aapl", t0, []float64{1.0}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := wr.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	rtx, err := db.BeginRead(context.Background())
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer rtx.Rollback()
	tree, err := rtx.Tree(seriesTreeName(1))
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if tree != nil {
		t.Error("series tree exists after disposed writer, want no trace of uncommitted append")
	}
}

func TestWriterDeleteNotImplemented(t *testing.T) {
	db := openTestDB(t)
	wtx, _ := db.BeginWrite(context.Background())
	defer wtx.Rollback()
	wr := newWriter(wtx, 1)

	if kind, ok := KindOf(wr.Delete("aapl", time.Now())); !ok || kind != KindNotImplemented {
		t.Error("Delete should be NotImplemented")
	}
	if kind, ok := KindOf(wr.DeleteRange("aapl", time.Now(), time.Now())); !ok || kind != KindNotImplemented {
		t.Error("DeleteRange should be NotImplemented")
	}
}

func TestWriterAppendAfterCommitFails(t *testing.T) {
	db := openTestDB(t)
	wtx, _ := db.BeginWrite(context.Background())
	wr := newWriter(wtx, 1)
	if err := wr.Append("aapl", time.Now().UTC(), []float64{1.0}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := wr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := wr.Append("aapl", time.Now().UTC(), []float64{1.0}); err != ErrClosed {
		t.Errorf("Append after commit = %v, want ErrClosed", err)
	}
}
