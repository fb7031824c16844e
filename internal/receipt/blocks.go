package receipt

// Stream identifies which block table a receipt number is drawn from.
// Both streams share one visible sequence space per year; the space is
// partitioned so the two can never issue the same number.
type Stream string

const (
	StreamBoli        Stream = "boli"
	StreamOutstanding Stream = "outstanding"
)

// Block partition with a fixed 300-wide period:
//
//	boli:        [1,200], [301,500], [601,800], [901,1100], ...
//	outstanding: [201,300], [501,600], [801,900], [1101,1200], ...
//
// Hand-authored tables in the ledger's early years followed exactly this
// pattern; the iterator extends it indefinitely so the allocator never
// runs out of numbers.
const blockPeriod = 300

type blockRange struct {
	From int
	To   int
}

// blockIterator yields a stream's block ranges in ascending order,
// without end.
type blockIterator struct {
	stream Stream
	k      int
}

func blocksFor(stream Stream) *blockIterator {
	return &blockIterator{stream: stream}
}

func (it *blockIterator) next() blockRange {
	base := it.k * blockPeriod
	it.k++
	if it.stream == StreamOutstanding {
		return blockRange{From: base + 201, To: base + 300}
	}
	return blockRange{From: base + 1, To: base + 200}
}

// NextNumber returns the lowest integer in the stream's block table that
// is not in the used set. The used set must contain every numeric suffix
// already issued this year, across both streams; numbers are never
// reused even after deletion.
func NextNumber(stream Stream, used map[int]bool) int {
	it := blocksFor(stream)
	for {
		b := it.next()
		for n := b.From; n <= b.To; n++ {
			if !used[n] {
				return n
			}
		}
	}
}

// Owns reports whether n falls inside one of the stream's blocks.
func Owns(stream Stream, n int) bool {
	if n < 1 {
		return false
	}
	pos := (n - 1) % blockPeriod // 0-based offset within the period
	if stream == StreamOutstanding {
		return pos >= 200
	}
	return pos < 200
}
