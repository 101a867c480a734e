package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReferenceFlows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flows.yaml")
	if err := os.WriteFile(path, []byte(`flows:
  - name: purchase
    activities: ["Create PO", "Approve PO", "Receive Goods", "Pay Invoice"]
  - name: returns
    activities: ["Register Return", "Inspect", "Refund"]
`), 0644); err != nil {
		t.Fatalf("write flows: %v", err)
	}

	flows, err := LoadReferenceFlows(path)
	if err != nil {
		t.Fatalf("load flows: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(flows))
	}
	if flows[0].Name != "purchase" || len(flows[0].Activities) != 4 {
		t.Fatalf("unexpected first flow: %+v", flows[0])
	}

	flow, err := FlowByName(flows, "returns")
	if err != nil {
		t.Fatalf("flow by name: %v", err)
	}
	if flow.Activities[0] != "Register Return" {
		t.Fatalf("unexpected flow: %+v", flow)
	}

	// An empty name selects the first flow in the pack.
	flow, err = FlowByName(flows, "")
	if err != nil {
		t.Fatalf("flow by empty name: %v", err)
	}
	if flow.Name != "purchase" {
		t.Fatalf("expected first flow, got %s", flow.Name)
	}

	if _, err := FlowByName(flows, "unknown"); err == nil {
		t.Fatalf("expected error for unknown flow name")
	}
}

func TestLoadReferenceFlowsMissingFile(t *testing.T) {
	flows, err := LoadReferenceFlows("non-existent.yaml")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if flows != nil {
		t.Fatalf("expected no flows for a missing file")
	}

	flows, err = LoadReferenceFlows("")
	if err != nil || flows != nil {
		t.Fatalf("expected empty result for empty path, got %v %v", flows, err)
	}
}
