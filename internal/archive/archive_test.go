package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

var eos = domain.Symbol{Code: "EOS", Precision: 4}

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []Record
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestWriter_AppendsSellAndBuy(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "trades")
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	ctx := context.Background()

	sell := domain.SellLog{
		ID: "s1", Seller: "alice", Buyer: "bob", At: at,
		Type: domain.ListingTypeItem, ListingID: 7,
		Asset: domain.Asset{Code: 101, DNA: 42, Level: 3, Exp: 9},
		Price: domain.Price{Amount: 10000, Symbol: eos}, TaxRate: 5,
	}
	buy := domain.BuyLog{
		ID: "b1", Buyer: "bob", Seller: "alice", At: at,
		Type: domain.ListingTypeItem, ListingID: 7,
		Asset: sell.Asset, Price: sell.Price,
	}
	if err := w.AppendSellLog(ctx, sell); err != nil {
		t.Fatal(err)
	}
	if err := w.AppendBuyLog(ctx, buy); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	recs := readRecords(t, filepath.Join(dir, "trades-2024-05-01-12.jsonl.zst"))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Kind != KindSell || recs[0].Account != "alice" || recs[0].TaxRate != 5 || recs[0].Price != "1.0000 EOS" {
		t.Errorf("unexpected sell record: %+v", recs[0])
	}
	if recs[1].Kind != KindBuy || recs[1].Account != "bob" || recs[1].Party != "alice" || recs[1].Type != "item" {
		t.Errorf("unexpected buy record: %+v", recs[1])
	}
}

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "trades")
	at := time.Date(2024, 5, 1, 12, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	if err := w.Append(Record{Kind: KindSell, ID: "a"}); err != nil {
		t.Fatal(err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Append(Record{Kind: KindSell, ID: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "trades-*.jsonl.zst"))
	sort.Strings(matches)
	if len(matches) != 2 {
		t.Fatalf("got files %v, want 2", matches)
	}
	if got := readRecords(t, matches[1]); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected records in second hour: %+v", got)
	}
}

func TestWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for _, id := range []string{"first", "second"} {
		w := NewWriter(dir, "trades")
		w.now = func() time.Time { return at }
		if err := w.Append(Record{Kind: KindBuy, ID: id}); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	recs := readRecords(t, filepath.Join(dir, "trades-2024-05-01-08.jsonl.zst"))
	if len(recs) != 2 || recs[0].ID != "first" || recs[1].ID != "second" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}
