package state

import (
	"testing"

	"strato/fleet"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id, region string) fleet.InstanceRecord {
	return fleet.InstanceRecord{ID: id, Region: region, State: "running", Type: "t3.medium"}
}

func TestPutLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(rec("i-2", "us-west-2"), rec("i-1", "us-east-1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	records, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	// Sorted by region then id.
	if records[0].ID != "i-1" || records[1].ID != "i-2" {
		t.Errorf("order = %s, %s", records[0].ID, records[1].ID)
	}
	if records[0].Type != "t3.medium" {
		t.Errorf("type = %q", records[0].Type)
	}
}

func TestSaveReplacesWholesale(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(rec("i-old", "us-east-1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save([]fleet.InstanceRecord{rec("i-new", "eu-west-1")}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	records, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "i-new" {
		t.Errorf("records = %+v", records)
	}
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(rec("i-1", "us-east-1"), rec("i-2", "us-east-1")); err != nil {
		t.Fatal(err)
	}
	// Removing a mix of present and absent ids succeeds.
	if err := s.Remove([]string{"i-1", "i-missing"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	records, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "i-2" {
		t.Errorf("records = %+v", records)
	}
}

func TestEmptyLoad(t *testing.T) {
	s := openTestStore(t)
	records, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v", records)
	}
}
