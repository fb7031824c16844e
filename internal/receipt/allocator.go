package receipt

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"daan-backend/internal/metrics"
	"daan-backend/internal/timeutil"
)

// UsedNumberSource re-derives the set of numeric suffixes already issued
// for a year. Implemented by the repository layer with a scan over every
// payment record (both entry kinds) and every advance deposit.
type UsedNumberSource interface {
	UsedReceiptNumbers(ctx context.Context, prefix string, year int) (map[int]bool, error)
}

// Allocator issues receipt numbers of the form PREFIX-YYYY-NNNNN. It is
// stateless: every call rescans current data, so a number committed by a
// completed write is never issued twice as long as the store gives
// read-after-write consistency.
type Allocator struct {
	Prefix string
	Source UsedNumberSource
}

func NewAllocator(prefix string, source UsedNumberSource) *Allocator {
	return &Allocator{Prefix: prefix, Source: source}
}

// Allocate returns the next free receipt number for the stream, for the
// year of the payment date (IST calendar year).
//
// If the scan fails, payments must not block on numbering: a
// time-derived pseudo-unique suffix is issued instead. That path can
// theoretically collide, so it is logged loudly and counted for
// operational alerting.
func (a *Allocator) Allocate(ctx context.Context, stream Stream, date time.Time) (string, error) {
	year := timeutil.ToIST(date).Year()

	used, err := a.Source.UsedReceiptNumbers(ctx, a.Prefix, year)
	if err != nil {
		metrics.ReceiptFallbackTotal.Inc()
		log.Printf("[Receipt] ALERT: used-number scan failed, issuing time-derived fallback: %v", err)
		return a.fallback(year), nil
	}

	n := NextNumber(stream, used)
	return Format(a.Prefix, year, n), nil
}

// fallback derives a suffix from the wall clock. Nanosecond remainder
// keeps two same-instant calls apart in practice but not by guarantee.
func (a *Allocator) fallback(year int) string {
	n := int(time.Now().UnixNano() % 90000)
	return fmt.Sprintf("%s-%d-T%05d", a.Prefix, year, n)
}

// Format renders the public receipt number contract. Consumers treat the
// string as opaque and stable once issued.
func Format(prefix string, year, n int) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}

// Parse splits a receipt number into year and numeric suffix. Fallback
// numbers (T-prefixed suffix) and foreign strings return ok=false; the
// scan simply skips them.
func Parse(prefix, receiptNo string) (year, n int, ok bool) {
	rest, found := strings.CutPrefix(receiptNo, prefix+"-")
	if !found {
		return 0, 0, false
	}
	parts := strings.SplitN(rest, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	n, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return year, n, true
}
