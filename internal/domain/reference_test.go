package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestReferenceMapLookup(t *testing.T) {
	m := NewReferenceMap(nil)

	id := uuid.New()
	m.Add(EntityClient, "C1", id)

	got, ok := m.Lookup(EntityClient, "C1")
	if !ok || got != id {
		t.Fatalf("Lookup(client, C1) = (%v, %v), want (%v, true)", got, ok, id)
	}

	if _, ok := m.Lookup(EntityClient, "C2"); ok {
		t.Error("Lookup of unknown external id should miss")
	}
	if _, ok := m.Lookup(EntityContact, "C1"); ok {
		t.Error("Lookup must not cross entity categories")
	}
}

func TestReferenceMapUserByEmail(t *testing.T) {
	id := uuid.New()
	m := NewReferenceMap(map[string]uuid.UUID{"Jane.Doe@Example.com": id})

	tests := []string{
		"jane.doe@example.com",
		"JANE.DOE@EXAMPLE.COM",
		"  jane.doe@example.com  ",
	}
	for _, email := range tests {
		got, ok := m.UserByEmail(email)
		if !ok || got != id {
			t.Errorf("UserByEmail(%q) = (%v, %v), want (%v, true)", email, got, ok, id)
		}
	}

	if _, ok := m.UserByEmail("nobody@example.com"); ok {
		t.Error("unknown email should miss")
	}
}

func TestReferenceMapExport(t *testing.T) {
	m := NewReferenceMap(nil)
	clientID := uuid.New()
	caseID := uuid.New()
	m.Add(EntityClient, "C1", clientID)
	m.Add(EntityCase, "CASE1", caseID)
	// time entries are not part of the exported map
	m.Add(EntityTimeEntry, "T1", uuid.New())

	out := m.Export()

	for _, key := range []string{"clients", "contacts", "cases", "subjects", "activities"} {
		if _, ok := out[key]; !ok {
			t.Errorf("Export missing category %q", key)
		}
	}
	if out["clients"]["C1"] != clientID.String() {
		t.Errorf("clients[C1] = %q, want %q", out["clients"]["C1"], clientID)
	}
	if out["cases"]["CASE1"] != caseID.String() {
		t.Errorf("cases[CASE1] = %q, want %q", out["cases"]["CASE1"], caseID)
	}
	if len(out["contacts"]) != 0 {
		t.Errorf("contacts should be empty, got %v", out["contacts"])
	}
	if _, ok := out["time_entries"]; ok {
		t.Error("time entries must not be exported")
	}
}
