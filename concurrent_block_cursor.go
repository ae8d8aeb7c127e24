package odbcbulk

// ConcurrentBlockCursor overlaps a fetch for the next batch with the
// caller's processing of the current one: a dedicated worker goroutine
// owns the statement handle and issues SQLFetch, handing completed
// batches to the caller over a bounded channel and receiving recycled
// buffers back over a second one. Both channels have capacity one, so
// at most one batch is ever in flight beyond what the caller holds.
type ConcurrentBlockCursor[T RowSetBuffer] struct {
	fetched  chan fetchResult[T]
	recycled chan T
	done     chan struct{}
	stmt     SQLHSTMT
}

type fetchResult[T RowSetBuffer] struct {
	buf T
	err error
	ok  bool
}

// NewConcurrentBlockCursor starts the worker goroutine for bc, handing
// it ownership of bc's buffer and statement. bc must not be used after
// this call; drive the returned cursor instead.
func NewConcurrentBlockCursor[T RowSetBuffer](bc *BlockCursor[T]) *ConcurrentBlockCursor[T] {
	cc := &ConcurrentBlockCursor[T]{
		fetched:  make(chan fetchResult[T], 1),
		recycled: make(chan T, 1),
		done:     make(chan struct{}),
		stmt:     bc.stmt,
	}
	go cc.run(bc)
	return cc
}

// run is the worker loop: fetch into whichever buffer is current, hand
// it to the caller, then block for either a recycled buffer to fetch
// into next or cancellation via the recycled channel being closed.
func (cc *ConcurrentBlockCursor[T]) run(bc *BlockCursor[T]) {
	defer close(cc.fetched)
	current := bc
	for {
		buf, ok, err := current.Fetch()
		select {
		case cc.fetched <- fetchResult[T]{buf: buf, err: err, ok: ok}:
		case <-cc.done:
			return
		}
		if err != nil || !ok {
			return
		}
		select {
		case next, open := <-cc.recycled:
			if !open {
				return
			}
			if err := next.BindAll(cc.stmt); err != nil {
				select {
				case cc.fetched <- fetchResult[T]{err: err}:
				case <-cc.done:
				}
				return
			}
			current = &BlockCursor[T]{stmt: cc.stmt, buffer: next, ownsHandle: current.ownsHandle}
		case <-cc.done:
			return
		}
	}
}

// Fetch blocks for the worker's next completed batch.
func (cc *ConcurrentBlockCursor[T]) Fetch() (T, bool, error) {
	r, open := <-cc.fetched
	if !open {
		var zero T
		return zero, false, nil
	}
	return r.buf, r.ok, r.err
}

// Fill hands a recycled buffer back to the worker for the next fetch.
// Non-blocking: the recycled channel holds one buffer, so if it still
// holds a buffer the worker has not taken yet, buf is silently dropped —
// the caller is expected to call Fill at most once per Fetch.
func (cc *ConcurrentBlockCursor[T]) Fill(buf T) {
	select {
	case cc.recycled <- buf:
	default:
	}
}

// FetchInto is the common pair of Fetch followed by Fill: it retrieves
// the next batch into *buf and, on success, immediately hands the
// previous contents of *buf back to the worker for reuse. Returns false
// at end-of-data or on error (err is discarded here; callers needing
// the error should use Fetch/Fill directly).
func (cc *ConcurrentBlockCursor[T]) FetchInto(buf *T) bool {
	prev := *buf
	next, ok, err := cc.Fetch()
	if err != nil || !ok {
		return false
	}
	*buf = next
	cc.Fill(prev)
	return true
}

// IntoCursor shuts the pipeline down, joins the worker, and returns the
// underlying Cursor so the caller can resume single-row or a
// differently-shaped block access. Safe to call at any point; draining
// any in-flight fetch result first.
func (cc *ConcurrentBlockCursor[T]) IntoCursor() *Cursor {
	close(cc.done)
	for range cc.fetched {
	}
	return &Cursor{stmt: cc.stmt, state: cursorOpen}
}
