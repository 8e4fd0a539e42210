package ledger

import (
	"errors"
	"testing"

	"github.com/lorekeep/lorekeep/models"
)

func TestCatalogLookup(t *testing.T) {
	db := openTestDB(t)
	seedActivities(t, db)
	catalog, err := NewCatalog(db)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	act, err := catalog.Get("RP")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if act.BaseCC == nil || *act.BaseCC != 5 || !act.DiversionLimited {
		t.Errorf("unexpected activity: %+v", act)
	}

	byID, err := catalog.ByID(act.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if byID.Key != "RP" {
		t.Errorf("ByID key = %s, want RP", byID.Key)
	}

	if _, err := catalog.Get("NOPE"); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("err = %v, want ErrActivityNotFound", err)
	}
	if _, err := catalog.ByID(9999); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("err = %v, want ErrActivityNotFound", err)
	}
}

func TestCatalogReloadSwapsSnapshot(t *testing.T) {
	db := openTestDB(t)
	seedActivities(t, db)
	catalog, err := NewCatalog(db)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := catalog.Get("ARENA"); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("ARENA present before reload")
	}

	arena := models.Activity{Key: "ARENA", Name: "Arena Bout", BaseCC: intPtr(3), DiversionLimited: true, Kind: models.ActivityKindEarn}
	if err := db.Create(&arena).Error; err != nil {
		t.Fatal(err)
	}

	// Not visible until the snapshot swap.
	if _, err := catalog.Get("ARENA"); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("ARENA leaked into old snapshot")
	}
	if err := catalog.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	act, err := catalog.Get("ARENA")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if act.ID != arena.ID {
		t.Errorf("id = %d, want %d", act.ID, arena.ID)
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	db := openTestDB(t)
	seedActivities(t, db)
	catalog, err := NewCatalog(db)
	if err != nil {
		t.Fatal(err)
	}

	first, _ := catalog.Get("RP")
	first.Key = "MUTATED"
	second, _ := catalog.Get("RP")
	if second.Key != "RP" {
		t.Error("snapshot leaked a mutable reference")
	}
}
