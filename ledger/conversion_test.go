package ledger

import (
	"errors"
	"testing"

	"github.com/lorekeep/lorekeep/models"
)

func TestConversionRate(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{1, 5},
		{4, 5},
		{5, 8},
		{10, 8},
		{11, 10},
		{16, 10},
		{17, 12},
		{20, 12},
	}
	for _, tt := range tests {
		if got := ConversionRate(tt.level); got != tt.want {
			t.Errorf("ConversionRate(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestConvertedCCFor(t *testing.T) {
	tests := []struct {
		shortfall, rate, want int
	}{
		{0, 5, 0},
		{-3, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{12, 5, 3},
		{16, 8, 2},
	}
	for _, tt := range tests {
		if got := convertedCCFor(tt.shortfall, tt.rate); got != tt.want {
			t.Errorf("convertedCCFor(%d, %d) = %d, want %d", tt.shortfall, tt.rate, got, tt.want)
		}
	}
}

func TestPurchaseWithAutoConversion(t *testing.T) {
	e, db := newTestEngine(t)
	policy := newTestPolicy(t, db, 1, 0, 0, nil)
	if err := db.Create(&models.PlayerAccount{PlayerID: 100, GuildID: 1, CC: 10}).Error; err != nil {
		t.Fatal(err)
	}
	char := models.CharacterAccount{PlayerID: 100, GuildID: 1, Name: "Korrin", Level: 1} // rate 5
	if err := db.Create(&char).Error; err != nil {
		t.Fatal(err)
	}

	// Cost 12 with 0 credits: shortfall 12, ceil(12/5)=3 CC converts to 15
	// credits, purchase leaves 3.
	entry, err := e.Purchase(policy, mustActivity(t, e, "PURCHASE"), LogRequest{
		AuthorID:     100,
		PlayerID:     100,
		CharacterID:  &char.ID,
		CreditsDelta: -12,
	})
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if entry.CreditsDelta != -12 {
		t.Errorf("purchase credits delta = %d, want -12", entry.CreditsDelta)
	}

	acct := loadAccount(t, db, 100, 1)
	if acct.CC != 7 {
		t.Errorf("cc = %d, want 7", acct.CC)
	}
	var gotChar models.CharacterAccount
	if err := db.First(&gotChar, char.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotChar.Credits != 3 {
		t.Errorf("credits = %d, want 3", gotChar.Credits)
	}

	convAct := mustActivity(t, e, models.ActivityKeyConversion)
	var conv models.LogEntry
	if err := db.Where("activity_id = ?", convAct.ID).First(&conv).Error; err != nil {
		t.Fatalf("conversion entry missing: %v", err)
	}
	if conv.CCDelta != -3 || conv.CreditsDelta != 15 {
		t.Errorf("conversion deltas cc=%d credits=%d, want -3/+15", conv.CCDelta, conv.CreditsDelta)
	}
}

func TestPurchaseWithoutConversion(t *testing.T) {
	e, db := newTestEngine(t)
	policy := newTestPolicy(t, db, 1, 0, 0, nil)
	char := models.CharacterAccount{PlayerID: 100, GuildID: 1, Credits: 20, Level: 1}
	if err := db.Create(&char).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := e.Purchase(policy, mustActivity(t, e, "PURCHASE"), LogRequest{
		AuthorID:     100,
		PlayerID:     100,
		CharacterID:  &char.ID,
		CreditsDelta: -5,
	}); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	var gotChar models.CharacterAccount
	if err := db.First(&gotChar, char.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotChar.Credits != 15 {
		t.Errorf("credits = %d, want 15", gotChar.Credits)
	}

	convAct := mustActivity(t, e, models.ActivityKeyConversion)
	var count int64
	db.Model(&models.LogEntry{}).Where("activity_id = ?", convAct.ID).Count(&count)
	if count != 0 {
		t.Errorf("conversion entries = %d, want 0", count)
	}
}

func TestPurchaseInsufficientCC(t *testing.T) {
	e, db := newTestEngine(t)
	policy := newTestPolicy(t, db, 1, 0, 0, nil)
	if err := db.Create(&models.PlayerAccount{PlayerID: 100, GuildID: 1, CC: 1}).Error; err != nil {
		t.Fatal(err)
	}
	char := models.CharacterAccount{PlayerID: 100, GuildID: 1, Level: 1}
	if err := db.Create(&char).Error; err != nil {
		t.Fatal(err)
	}

	_, err := e.Purchase(policy, mustActivity(t, e, "PURCHASE"), LogRequest{
		AuthorID:     100,
		PlayerID:     100,
		CharacterID:  &char.ID,
		CreditsDelta: -12,
	})
	var afford *AffordabilityError
	if !errors.As(err, &afford) {
		t.Fatalf("err = %v, want AffordabilityError", err)
	}

	acct := loadAccount(t, db, 100, 1)
	if acct.CC != 1 {
		t.Errorf("cc = %d, want 1 (unchanged)", acct.CC)
	}
	var count int64
	db.Model(&models.LogEntry{}).Count(&count)
	if count != 0 {
		t.Errorf("log count = %d, want 0", count)
	}
}

func TestPurchaseRequiresCharacter(t *testing.T) {
	e, db := newTestEngine(t)
	policy := newTestPolicy(t, db, 1, 0, 0, nil)

	_, err := e.Purchase(policy, mustActivity(t, e, "PURCHASE"), LogRequest{
		AuthorID:     100,
		PlayerID:     100,
		CreditsDelta: -5,
	})
	if !errors.Is(err, ErrCharacterRequired) {
		t.Errorf("err = %v, want ErrCharacterRequired", err)
	}
}
