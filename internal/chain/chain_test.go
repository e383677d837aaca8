package chain

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/internal/inventory"
	"github.com/Klingon-tech/stockchain/internal/storage"
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/tx"
)

func testEngine(t *testing.T, difficulty int) *consensus.PoW {
	t.Helper()
	pow, err := consensus.NewPoW(difficulty)
	if err != nil {
		t.Fatalf("NewPoW: %v", err)
	}
	return pow
}

func fixedClock() Option {
	return WithClock(func() time.Time { return time.Unix(1700000000, 0) })
}

func newTestChain(t *testing.T, store Store) *Chain {
	t.Helper()
	c, err := New(store, testEngine(t, 1), fixedClock())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func mustTx(t *testing.T, id string, change int64) tx.Transaction {
	t.Helper()
	tr, err := tx.New(id, change)
	if err != nil {
		t.Fatalf("tx.New(%q, %d): %v", id, change, err)
	}
	return tr
}

func mine(t *testing.T, c *Chain, txs ...tx.Transaction) *block.Block {
	t.Helper()
	for _, tr := range txs {
		if err := c.Enqueue(tr); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	blk, err := c.MinePending()
	if err != nil {
		t.Fatalf("MinePending: %v", err)
	}
	if blk == nil {
		t.Fatal("MinePending returned no block")
	}
	return blk
}

// failingStore loads nothing and fails every save after the first failAfter.
type failingStore struct {
	saves     int
	failAfter int
	loadErr   error
}

func (f *failingStore) Load() ([]*block.Block, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, ErrNoChain
}

func (f *failingStore) Save([]*block.Block) error {
	f.saves++
	if f.saves > f.failAfter {
		return errors.New("disk full")
	}
	return nil
}

func TestNew_Genesis(t *testing.T) {
	c := newTestChain(t, nil)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	g, err := c.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if g.Index != 0 || !g.PrevHash.IsZero() || len(g.Transactions) != 0 {
		t.Errorf("unexpected genesis: %+v", g)
	}
	if !consensus.MeetsDifficulty(g.Hash, 1) {
		t.Error("genesis should be sealed at the chain difficulty")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("fresh chain invalid: %v", err)
	}
}

func TestNew_NilEngine(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New with nil engine should fail")
	}
}

func TestChain_Enqueue_Invalid(t *testing.T) {
	c := newTestChain(t, nil)
	err := c.Enqueue(tx.Transaction{ItemID: "", Change: 5})
	if !errors.Is(err, tx.ErrInvalidTransaction) {
		t.Fatalf("Enqueue = %v, want ErrInvalidTransaction", err)
	}
	if len(c.Pending()) != 0 {
		t.Error("invalid tx should not be queued")
	}
}

func TestChain_MinePending_Empty(t *testing.T) {
	c := newTestChain(t, nil)
	blk, err := c.MinePending()
	if blk != nil || err != nil {
		t.Fatalf("MinePending on empty queue = %v, %v; want nil, nil", blk, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestChain_MinePending(t *testing.T) {
	c := newTestChain(t, nil)
	genesis, _ := c.Latest()

	blk := mine(t, c, mustTx(t, "A", 10), mustTx(t, "A", -3))

	if blk.Index != 1 {
		t.Errorf("Index = %d, want 1", blk.Index)
	}
	if blk.PrevHash != genesis.Hash {
		t.Error("new block should link to genesis")
	}
	if len(blk.Transactions) != 2 || blk.Transactions[0].Change != 10 || blk.Transactions[1].Change != -3 {
		t.Errorf("transactions = %v, want FIFO [A+10 A-3]", blk.Transactions)
	}
	if len(c.Pending()) != 0 {
		t.Error("pending should be cleared after mining")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("chain invalid after mine: %v", err)
	}
}

func TestChain_MinePending_BlockCap(t *testing.T) {
	c, _ := New(nil, testEngine(t, 0))
	for i := 0; i < 1005; i++ {
		if err := c.Enqueue(mustTx(t, "A", 1)); err != nil {
			t.Fatal(err)
		}
	}
	blk, err := c.MinePending()
	if err != nil {
		t.Fatal(err)
	}
	if len(blk.Transactions) != 1000 {
		t.Errorf("block txs = %d, want 1000", len(blk.Transactions))
	}
	if len(c.Pending()) != 5 {
		t.Errorf("pending = %d, want 5", len(c.Pending()))
	}
}

func TestChain_ZeroDifficulty(t *testing.T) {
	c, err := New(nil, testEngine(t, 0))
	if err != nil {
		t.Fatal(err)
	}
	mine(t, c, mustTx(t, "A", 1))
	mine(t, c, mustTx(t, "B", 2))
	for _, blk := range c.Blocks() {
		if blk.Nonce != 0 {
			t.Errorf("block %d nonce = %d, want 0", blk.Index, blk.Nonce)
		}
	}
}

func TestChain_TamperDetected(t *testing.T) {
	c := newTestChain(t, nil)
	mine(t, c, mustTx(t, "A", 10))
	mine(t, c, mustTx(t, "B", 5))

	blk, _ := c.BlockByIndex(1)
	blk.Transactions[0].Change = 1000

	err := c.Validate()
	var ve *consensus.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Validate = %v, want *ValidationError", err)
	}
	if ve.Index != 1 || ve.Check != consensus.CheckHash {
		t.Errorf("got block %d check %s, want block 1 hash", ve.Index, ve.Check)
	}
}

func TestChain_BlockLookup(t *testing.T) {
	c := newTestChain(t, nil)
	blk := mine(t, c, mustTx(t, "A", 1))

	got, err := c.BlockByHash(blk.Hash)
	if err != nil || got != blk {
		t.Fatalf("BlockByHash = %v, %v", got, err)
	}
	if _, err := c.BlockByIndex(5); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("BlockByIndex(5) = %v, want ErrBlockNotFound", err)
	}
	other := *blk
	other.Hash[0] ^= 0xff
	if _, err := c.BlockByHash(other.Hash); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("BlockByHash(unknown) = %v, want ErrBlockNotFound", err)
	}
}

func TestChain_Blocks_IsCopy(t *testing.T) {
	c := newTestChain(t, nil)
	blocks := c.Blocks()
	blocks[0] = nil
	if g, _ := c.Latest(); g == nil {
		t.Error("modifying Blocks() result should not affect the chain")
	}
}

func TestChain_PersistenceFailure(t *testing.T) {
	store := &failingStore{failAfter: 1}
	c, err := New(store, testEngine(t, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Enqueue(mustTx(t, "A", 3))
	blk, err := c.MinePending()
	if blk == nil {
		t.Fatal("block should be returned even when the save fails")
	}
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("MinePending err = %v, want ErrPersistence", err)
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "save" {
		t.Errorf("want *PersistenceError{Op: save}, got %v", err)
	}
	if c.Len() != 2 || len(c.Pending()) != 0 {
		t.Error("in-memory chain should keep the block")
	}
}

func TestNew_InitialSaveFailure(t *testing.T) {
	_, err := New(&failingStore{failAfter: 0}, testEngine(t, 0))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("New = %v, want ErrPersistence", err)
	}
}

func TestNew_LoadFailureFallsBack(t *testing.T) {
	store := &failingStore{failAfter: 10, loadErr: errors.New("io error")}
	c, err := New(store, testEngine(t, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want fresh genesis", c.Len())
	}
	if !errors.Is(c.LoadErr(), ErrPersistence) {
		t.Errorf("LoadErr = %v, want ErrPersistence", c.LoadErr())
	}
	if store.saves != 0 {
		t.Error("store should not be overwritten before the next mine")
	}
}

func TestNew_InvalidPersistedChain(t *testing.T) {
	db := storage.NewMemory()
	store := NewBlockStore(db)

	c := newTestChain(t, store)
	mine(t, c, mustTx(t, "A", 10))
	mine(t, c, mustTx(t, "B", 5))

	// Tamper with the persisted copy.
	blocks, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	blocks[2].Transactions[0].Change = 500
	if err := store.Save(blocks); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := newTestChain(t, store)
	if reopened.Len() != 1 {
		t.Fatalf("Len = %d, want fresh genesis", reopened.Len())
	}
	if !errors.Is(reopened.LoadErr(), consensus.ErrValidation) {
		t.Fatalf("LoadErr = %v, want ErrValidation", reopened.LoadErr())
	}

	// The rejected data is still on disk.
	if h, _ := store.Height(); h != 2 {
		t.Errorf("stored height = %d, want 2 until the next mine", h)
	}

	mine(t, reopened, mustTx(t, "C", 1))
	if h, _ := store.Height(); h != 1 {
		t.Errorf("stored height after mine = %d, want 1", h)
	}
}

func TestChain_EnqueueDuringSeal(t *testing.T) {
	engine := &gatedEngine{PoW: testEngine(t, 0), entered: make(chan struct{}), release: make(chan struct{})}
	c, err := New(nil, engine)
	if err != nil {
		t.Fatal(err)
	}
	engine.armed = true

	c.Enqueue(mustTx(t, "A", 1))

	var wg sync.WaitGroup
	wg.Add(1)
	var blk *block.Block
	go func() {
		defer wg.Done()
		blk, _ = c.MinePending()
	}()

	// Readers run alongside the seal and the append.
	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		projector := inventory.NewProjector(c.Validator())
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := c.Validate(); err != nil {
				t.Errorf("Validate during mine: %v", err)
				return
			}
			inv, err := projector.Project(c.Blocks())
			if err != nil {
				t.Errorf("Project during mine: %v", err)
				return
			}
			if q := inv.Quantity("A"); q != 0 && q != 1 {
				t.Errorf("A = %d mid-mine, want 0 or 1", q)
				return
			}
		}
	}()

	<-engine.entered
	c.Enqueue(mustTx(t, "B", 2))
	if c.Len() != 1 {
		t.Error("block visible before seal finished")
	}
	close(engine.release)
	wg.Wait()
	close(stop)
	readers.Wait()

	if len(blk.Transactions) != 1 || blk.Transactions[0].ItemID != "A" {
		t.Errorf("sealed txs = %v, want [A+1]", blk.Transactions)
	}
	pending := c.Pending()
	if len(pending) != 1 || pending[0].ItemID != "B" {
		t.Errorf("pending = %v, want [B+2]", pending)
	}
}

// gatedEngine pauses inside Seal until released, once armed.
type gatedEngine struct {
	*consensus.PoW
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEngine) Seal(content block.Content, start uint64) *block.Block {
	if g.armed {
		close(g.entered)
		<-g.release
		g.armed = false
	}
	return g.PoW.Seal(content, start)
}
