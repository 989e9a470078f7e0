package models

import "testing"

func TestAddressFormattedSkipsBlankParts(t *testing.T) {
	a := Address{Street: "12 MG Road", City: "Pune", Zip: "411001"}
	if got := a.Formatted(); got != "12 MG Road, Pune, 411001" {
		t.Fatalf("unexpected formatted address: %s", got)
	}
}

func TestOutcomeLegacyTokens(t *testing.T) {
	if got := Assigned("ENGR1A2B345").LegacyToken(); got != "ENGR1A2B345" {
		t.Fatalf("expected engineer id, got %s", got)
	}
	if got := Unavailable().LegacyToken(); got != TokenUnavailable {
		t.Fatalf("expected %s, got %s", TokenUnavailable, got)
	}
	if got := SystemFailure().LegacyToken(); got != TokenSystemFailure {
		t.Fatalf("expected %s, got %s", TokenSystemFailure, got)
	}
}

func TestEngineerCandidateValidate(t *testing.T) {
	good := EngineerCandidate{ID: "E1", Rating: 4.5, ActiveTickets: 2}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (EngineerCandidate{ID: "E1", Rating: 5.5}).Validate(); err == nil {
		t.Fatalf("expected rating range error")
	}
	if err := (EngineerCandidate{ID: "E1", Rating: 4, ActiveTickets: -1}).Validate(); err == nil {
		t.Fatalf("expected negative tickets error")
	}
	if err := (EngineerCandidate{Rating: 4}).Validate(); err == nil {
		t.Fatalf("expected empty id error")
	}
}

func TestServiceRequestContextValidate(t *testing.T) {
	rc := ServiceRequestContext{CustomerID: "CUST1", RequestID: "REQ1"}
	if err := rc.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (ServiceRequestContext{RequestID: "REQ1"}).Validate(); err == nil {
		t.Fatalf("expected empty customer id error")
	}
}
