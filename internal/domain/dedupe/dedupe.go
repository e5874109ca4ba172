// Package dedupe drops rows whose vendor, date and amount were already seen in the run.
package dedupe

import (
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

// Fingerprint hashes the content of a row: lowercased trimmed vendor, date and amount.
// Two photographs of the same transaction share a fingerprint.
func Fingerprint(row normalize.Row) string {
	return FingerprintOf(
		row.Field(extract.FieldVendor).Value,
		row.Field(extract.FieldDate).Value,
		row.Field(extract.FieldAmount).Value,
	)
}

func FingerprintOf(vendor, date, amount string) string {
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	date = strings.TrimSpace(date)
	amount = canonicalAmount(amount)

	sum := blake2b.Sum256([]byte(vendor + "|" + date + "|" + amount))
	return hex.EncodeToString(sum[:])
}

func canonicalAmount(amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		amount = "0"
	}
	d, err := money.Parse(amount)
	if err != nil {
		return amount
	}
	return money.Format(d)
}

// Deduplicator remembers fingerprints for the lifetime of a run. It is safe for concurrent use.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// IsDuplicate reports whether the row was seen before and remembers it if not.
func (d *Deduplicator) IsDuplicate(row normalize.Row) bool {
	return d.seenBefore(Fingerprint(row))
}

func (d *Deduplicator) seenBefore(fp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[fp]; ok {
		return true
	}
	d.seen[fp] = struct{}{}
	return false
}

// Filter keeps the first occurrence of each fingerprint, in input order.
func (d *Deduplicator) Filter(rows []normalize.Row) (kept, dropped []normalize.Row) {
	for _, row := range rows {
		if d.IsDuplicate(row) {
			dropped = append(dropped, row)
			continue
		}
		kept = append(kept, row)
	}
	return kept, dropped
}

// Len returns the number of distinct fingerprints seen.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
