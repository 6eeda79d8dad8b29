package vybe

import (
	"testing"
	"time"

	"vybe-pulse/internal/tracker"
)

const (
	testWallet = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestNormalizeWalletTransfersMergesAndOrders(t *testing.T) {
	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bt := func(offset time.Duration) int64 { return since.Add(offset).Unix() }

	received := []transfer{
		{Signature: "r2", SenderAddress: "peer1", ReceiverAddress: testWallet, ValueUSD: "30", BlockTime: bt(3 * time.Minute)},
		{Signature: "r1", SenderAddress: "peer1", ReceiverAddress: testWallet, ValueUSD: "10", BlockTime: bt(1 * time.Minute)},
	}
	sent := []transfer{
		{Signature: "s1", SenderAddress: testWallet, ReceiverAddress: "peer2", ValueUSD: "20", BlockTime: bt(2 * time.Minute)},
	}

	events := normalizeWalletTransfers(testWallet, received, sent, since)
	if len(events) != 3 {
		t.Fatalf("normalized %d events, want 3", len(events))
	}
	wantOrder := []string{"r1", "s1", "r2"}
	for i, sig := range wantOrder {
		if events[i].Signature != sig {
			t.Fatalf("events[%d].Signature = %s, want %s", i, events[i].Signature, sig)
		}
	}
	if events[0].Direction != tracker.DirectionIn || events[0].Counterparty != "peer1" {
		t.Fatalf("received event: %+v", events[0])
	}
	if events[1].Direction != tracker.DirectionOut || events[1].Counterparty != "peer2" {
		t.Fatalf("sent event: %+v", events[1])
	}
	for _, ev := range events {
		if ev.WalletOrMint != testWallet {
			t.Fatalf("WalletOrMint = %s, want %s", ev.WalletOrMint, testWallet)
		}
		if ev.EventID != ev.Signature+":"+string(ev.Direction) {
			t.Fatalf("EventID = %s, want signature:direction", ev.EventID)
		}
	}
}

func TestNormalizeWalletTransfersSinceBoundaryIsExclusive(t *testing.T) {
	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	received := []transfer{
		{Signature: "at", ReceiverAddress: testWallet, ValueUSD: "10", BlockTime: since.Unix()},
		{Signature: "after", ReceiverAddress: testWallet, ValueUSD: "10", BlockTime: since.Add(time.Second).Unix()},
		{Signature: "before", ReceiverAddress: testWallet, ValueUSD: "10", BlockTime: since.Add(-time.Second).Unix()},
	}

	events := normalizeWalletTransfers(testWallet, received, nil, since)
	if len(events) != 1 || events[0].Signature != "after" {
		t.Fatalf("want only the strictly-after event, got %+v", events)
	}
}

func TestNormalizeWalletTransfersDustFilter(t *testing.T) {
	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	received := []transfer{
		{Signature: "dust", ReceiverAddress: testWallet, ValueUSD: "0.01", BlockTime: since.Add(time.Minute).Unix()},
		{Signature: "zero", ReceiverAddress: testWallet, ValueUSD: "0", BlockTime: since.Add(time.Minute).Unix()},
		{Signature: "garbage", ReceiverAddress: testWallet, ValueUSD: "n/a", BlockTime: since.Add(time.Minute).Unix()},
		{Signature: "", ReceiverAddress: testWallet, ValueUSD: "100", BlockTime: since.Add(time.Minute).Unix()},
		{Signature: "kept", ReceiverAddress: testWallet, ValueUSD: "0.02", BlockTime: since.Add(time.Minute).Unix()},
	}

	events := normalizeWalletTransfers(testWallet, received, nil, since)
	if len(events) != 1 || events[0].Signature != "kept" {
		t.Fatalf("dust filter kept %+v, want only \"kept\"", events)
	}
}

func TestSelfTransferYieldsTwoEvents(t *testing.T) {
	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	self := transfer{
		Signature:       "selfsig",
		SenderAddress:   testWallet,
		ReceiverAddress: testWallet,
		ValueUSD:        "50",
		BlockTime:       since.Add(time.Minute).Unix(),
	}

	events := normalizeWalletTransfers(testWallet, []transfer{self}, []transfer{self}, since)
	if len(events) != 2 {
		t.Fatalf("self-transfer produced %d events, want 2", len(events))
	}
	if events[0].EventID == events[1].EventID {
		t.Fatal("self-transfer events must have distinct ids")
	}
}

func TestFilterLargeTransfersThresholdInclusive(t *testing.T) {
	now := time.Now()
	transfers := []transfer{
		{Signature: "w1", ValueUSD: "999.99", BlockTime: now.Unix()},
		{Signature: "w2", ValueUSD: "1000", BlockTime: now.Unix()},
		{Signature: "w3", ValueUSD: "1000.01", BlockTime: now.Unix()},
	}

	events := filterLargeTransfers(testMint, transfers, 1000)
	if len(events) != 2 {
		t.Fatalf("filtered %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.AmountUSD < 1000 {
			t.Fatalf("event below threshold passed: %v", ev.AmountUSD)
		}
		if ev.TokenMint != testMint || ev.WalletOrMint != testMint {
			t.Fatalf("mint fields not set: %+v", ev)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"":        0,
		"abc":     0,
		"12.5":    12.5,
		"1000":    1000,
		"-3.2":    -3.2,
		"1e3":     1000,
		" 12.5\t": 0,
	}
	for in, want := range cases {
		if got := parseAmount(in); got != want {
			t.Errorf("parseAmount(%q) = %v, want %v", in, got, want)
		}
	}
}
