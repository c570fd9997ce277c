package contract

import (
	"strings"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func newContext(t *testing.T) (*contractapi.TransactionContext, *shimtest.MockStub) {
	t.Helper()
	stub := shimtest.NewMockStub("idhash", nil)
	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(stub)
	return ctx, stub
}

const aliceMeta = `{"userId":"alice","filename":"a.txt","hash":"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"}`

func TestStoreQueryUpdate(t *testing.T) {
	ctx, stub := newContext(t)
	c := new(IDHashContract)

	stub.MockTransactionStart("tx1")
	if err := c.StoreIDHash(ctx, "alice", aliceMeta); err != nil {
		t.Fatalf("store: %v", err)
	}
	stub.MockTransactionEnd("tx1")

	got, err := c.QueryIDHash(ctx, "alice")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != aliceMeta {
		t.Fatalf("unexpected metadata %s", got)
	}

	stub.MockTransactionStart("tx2")
	err = c.StoreIDHash(ctx, "alice", aliceMeta)
	stub.MockTransactionEnd("tx2")
	if err == nil || err.Error() != "record alice already exists" {
		t.Fatalf("expected already exists, got %v", err)
	}

	updated := strings.Replace(aliceMeta, "a.txt", "b.txt", 1)
	stub.MockTransactionStart("tx3")
	if err := c.UpdateIDHash(ctx, "alice", updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	stub.MockTransactionEnd("tx3")

	got, err = c.QueryIDHash(ctx, "alice")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != updated {
		t.Fatalf("unexpected metadata after update %s", got)
	}
}

func TestMissingRecordErrors(t *testing.T) {
	ctx, stub := newContext(t)
	c := new(IDHashContract)

	if _, err := c.QueryIDHash(ctx, "ghost"); err == nil || err.Error() != "record ghost does not exist" {
		t.Fatalf("expected does not exist, got %v", err)
	}

	stub.MockTransactionStart("tx1")
	err := c.UpdateIDHash(ctx, "ghost", `{"userId":"ghost","hash":"00"}`)
	stub.MockTransactionEnd("tx1")
	if err == nil || err.Error() != "record ghost does not exist" {
		t.Fatalf("expected does not exist, got %v", err)
	}
}

func TestStoreValidatesMetadata(t *testing.T) {
	ctx, stub := newContext(t)
	c := new(IDHashContract)

	cases := map[string]string{
		"not json":     "nope",
		"key mismatch": `{"userId":"bob","hash":"00"}`,
		"missing hash": `{"userId":"alice"}`,
	}
	for name, meta := range cases {
		stub.MockTransactionStart(name)
		err := c.StoreIDHash(ctx, "alice", meta)
		stub.MockTransactionEnd(name)
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := c.QueryIDHash(ctx, "alice"); err == nil {
		t.Fatalf("invalid metadata must not be stored")
	}
}
