// Package archive keeps an append-only, zstd-compressed JSONL copy of every
// settled trade, rotated hourly.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// Record kinds.
const (
	KindSell = "sell"
	KindBuy  = "buy"
)

// Record is one archived line.
type Record struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Party     string    `json:"party"`
	At        time.Time `json:"at"`
	Type      string    `json:"type"`
	ListingID uint64    `json:"listing_id"`
	Code      uint16    `json:"code"`
	DNA       uint64    `json:"dna,omitempty"`
	Level     uint32    `json:"level,omitempty"`
	Exp       uint32    `json:"exp,omitempty"`
	Price     string    `json:"price"`
	TaxRate   int       `json:"tax_rate,omitempty"`
}

// Writer appends records to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst. Each
// record is flushed to the file before Append returns.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a Writer. Files are created lazily on first append.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
	}
}

// AppendSellLog archives a sell-side entry.
func (w *Writer) AppendSellLog(_ context.Context, e domain.SellLog) error {
	return w.Append(Record{
		Kind:      KindSell,
		ID:        e.ID,
		Account:   e.Seller,
		Party:     e.Buyer,
		At:        e.At.UTC(),
		Type:      e.Type.String(),
		ListingID: e.ListingID,
		Code:      e.Asset.Code,
		DNA:       e.Asset.DNA,
		Level:     e.Asset.Level,
		Exp:       e.Asset.Exp,
		Price:     e.Price.String(),
		TaxRate:   e.TaxRate,
	})
}

// AppendBuyLog archives a buy-side entry.
func (w *Writer) AppendBuyLog(_ context.Context, e domain.BuyLog) error {
	return w.Append(Record{
		Kind:      KindBuy,
		ID:        e.ID,
		Account:   e.Buyer,
		Party:     e.Seller,
		At:        e.At.UTC(),
		Type:      e.Type.String(),
		ListingID: e.ListingID,
		Code:      e.Asset.Code,
		DNA:       e.Asset.DNA,
		Level:     e.Asset.Level,
		Exp:       e.Asset.Exp,
		Price:     e.Price.String(),
	})
}

// Append writes one record.
func (w *Writer) Append(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return fmt.Errorf("archive: rotate: %w", err)
		}
	}

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("archive: encode: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("archive: write: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("archive: write: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("archive: flush: %w", err)
	}
	if err := w.enc.Flush(); err != nil {
		return fmt.Errorf("archive: flush: %w", err)
	}
	return nil
}

// Close finishes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}
