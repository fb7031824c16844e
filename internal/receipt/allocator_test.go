package receipt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	used map[int]bool
	err  error
	year int
}

func (f *fakeSource) UsedReceiptNumbers(ctx context.Context, prefix string, year int) (map[int]bool, error) {
	f.year = year
	if f.err != nil {
		return nil, f.err
	}
	return f.used, nil
}

func TestAllocateFirstNumbers(t *testing.T) {
	src := &fakeSource{used: map[int]bool{}}
	a := NewAllocator("SSJ", src)
	date := time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC)

	no, err := a.Allocate(context.Background(), StreamBoli, date)
	require.NoError(t, err)
	assert.Equal(t, "SSJ-2026-00001", no)

	no, err = a.Allocate(context.Background(), StreamOutstanding, date)
	require.NoError(t, err)
	assert.Equal(t, "SSJ-2026-00201", no)
}

func TestAllocateUsesPaymentYear(t *testing.T) {
	src := &fakeSource{used: map[int]bool{}}
	a := NewAllocator("SSJ", src)

	// 31 Dec 2025 23:00 UTC is already 1 Jan 2026 in IST; the receipt
	// year follows the IST calendar.
	date := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	no, err := a.Allocate(context.Background(), StreamBoli, date)
	require.NoError(t, err)
	assert.Equal(t, "SSJ-2026-00001", no)
	assert.Equal(t, 2026, src.year)
}

func TestAllocateSkipsIssuedNumbers(t *testing.T) {
	src := &fakeSource{used: map[int]bool{1: true, 2: true, 201: true}}
	a := NewAllocator("SSJ", src)
	date := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)

	no, err := a.Allocate(context.Background(), StreamBoli, date)
	require.NoError(t, err)
	assert.Equal(t, "SSJ-2026-00003", no)

	no, err = a.Allocate(context.Background(), StreamOutstanding, date)
	require.NoError(t, err)
	assert.Equal(t, "SSJ-2026-00202", no)
}

func TestAllocateFallbackOnScanFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("store unreachable")}
	a := NewAllocator("SSJ", src)
	date := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)

	no, err := a.Allocate(context.Background(), StreamBoli, date)
	require.NoError(t, err, "scan failure must not block the payment")
	assert.True(t, strings.HasPrefix(no, "SSJ-2026-T"), "fallback numbers are T-marked: %s", no)

	// Fallback numbers must not parse as block-allocated suffixes.
	_, _, ok := Parse("SSJ", no)
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	year, n, ok := Parse("SSJ", "SSJ-2026-00042")
	require.True(t, ok)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 42, n)

	_, _, ok = Parse("SSJ", "OTHER-2026-00042")
	assert.False(t, ok)

	_, _, ok = Parse("SSJ", "SSJ-2026")
	assert.False(t, ok)
}
