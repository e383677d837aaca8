package block

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/Klingon-tech/stockchain/pkg/crypto"
	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

func testContent() Content {
	return Content{
		Index:     1,
		Timestamp: 1700000000,
		PrevHash:  types.Hash{0xaa},
		Transactions: []tx.Transaction{
			{ItemID: "A", Change: 10},
			{ItemID: "B", Change: 5},
		},
	}
}

func TestContent_Bytes_Layout(t *testing.T) {
	c := testContent()
	got := c.Bytes(42)

	var want []byte
	want = binary.LittleEndian.AppendUint64(want, 1)
	want = binary.LittleEndian.AppendUint64(want, 1700000000)
	want = append(want, c.PrevHash[:]...)
	want = binary.LittleEndian.AppendUint32(want, 2)
	for _, adj := range c.Transactions {
		want = adj.AppendBytes(want)
	}
	want = binary.LittleEndian.AppendUint64(want, 42)

	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = %x, want %x", got, want)
	}
	if !bytes.HasPrefix(got, c.Prefix()) {
		t.Error("Bytes() should extend Prefix()")
	}
}

func TestContent_GenesisPayload(t *testing.T) {
	c := NewGenesisContent(1700000000)
	if !c.IsGenesis() {
		t.Fatal("genesis content should report IsGenesis")
	}
	if !bytes.Contains(c.Prefix(), []byte(GenesisMarker)) {
		t.Error("genesis prefix should contain the marker")
	}
	if !c.PrevHash.IsZero() {
		t.Error("genesis prev hash should be zero")
	}
}

func TestNew_HashMatchesContent(t *testing.T) {
	c := testContent()
	blk := New(c, 7)

	want := crypto.Hash(c.Bytes(7))
	if blk.Hash != want {
		t.Errorf("hash = %s, want %s", blk.Hash, want)
	}
	if !blk.HashValid() {
		t.Error("fresh block should have a valid hash")
	}
}

func TestNew_CopiesTransactions(t *testing.T) {
	c := testContent()
	blk := New(c, 0)
	c.Transactions[0].Change = 999
	if blk.Transactions[0].Change != 10 {
		t.Error("block should not share the content's transaction slice")
	}
}

func TestBlock_TamperDetected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Block)
	}{
		{"index", func(b *Block) { b.Index++ }},
		{"timestamp", func(b *Block) { b.Timestamp++ }},
		{"prev hash", func(b *Block) { b.PrevHash[0] ^= 0xff }},
		{"nonce", func(b *Block) { b.Nonce++ }},
		{"tx change", func(b *Block) { b.Transactions[0].Change = 11 }},
		{"tx item", func(b *Block) { b.Transactions[1].ItemID = "C" }},
		{"tx dropped", func(b *Block) { b.Transactions = b.Transactions[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blk := New(testContent(), 3)
			tt.mutate(blk)
			if blk.HashValid() {
				t.Error("mutated block should not have a valid hash")
			}
		})
	}
}

func TestBlock_Deterministic(t *testing.T) {
	a := New(testContent(), 5)
	b := New(testContent(), 5)
	if a.Hash != b.Hash {
		t.Error("same content and nonce should give the same hash")
	}
	c := New(testContent(), 6)
	if a.Hash == c.Hash {
		t.Error("different nonce should give a different hash")
	}
}

func TestBlock_JSONRoundTrip(t *testing.T) {
	orig := New(testContent(), 99)

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Block
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Hash != orig.Hash || got.PrevHash != orig.PrevHash || got.Nonce != orig.Nonce {
		t.Errorf("round trip mismatch: %+v vs %+v", got, orig)
	}
	if !got.HashValid() {
		t.Error("decoded block should still hash to its stored hash")
	}
}

func TestBlock_JSONGenesisSentinel(t *testing.T) {
	g := New(NewGenesisContent(1700000000), 0)
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["previous_hash"] != GenesisPrevHash {
		t.Errorf("previous_hash = %v, want %q", raw["previous_hash"], GenesisPrevHash)
	}

	var got Block
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.PrevHash.IsZero() {
		t.Error("decoded genesis prev hash should be zero")
	}
	if got.Hash != g.Hash {
		t.Error("genesis hash changed across round trip")
	}
}

func TestBlock_JSONKeepsStoredHash(t *testing.T) {
	orig := New(testContent(), 1)
	orig.Transactions[0].Change = 500

	data, _ := json.Marshal(orig)
	var got Block
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.HashValid() {
		t.Error("tampering before save should survive the round trip")
	}
}

func TestBlock_JSONBadPrevHash(t *testing.T) {
	var b Block
	err := json.Unmarshal([]byte(`{"index":1,"previous_hash":"zz"}`), &b)
	if err == nil {
		t.Error("expected error for bad previous_hash")
	}
}
