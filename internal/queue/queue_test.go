package queue

import (
	"testing"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

func TestChunkMessageValidate(t *testing.T) {
	t.Parallel()

	valid := ChunkMessage{
		JobID:      "job-1",
		BatchID:    "batch_1700000000000_abcd1234",
		ChunkIndex: 0,
		Items: []ChunkItem{
			{Name: "Title A", Description: "Details A", FederatedID: "fam1", Role: "FAMILY"},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	msg := valid
	msg.JobID = " "
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for empty job id")
	}

	msg = valid
	msg.BatchID = " "
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for empty batch id")
	}

	msg = valid
	msg.ChunkIndex = -1
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for negative chunk index")
	}

	msg = valid
	msg.Items = nil
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for empty items")
	}

	msg = valid
	msg.Items = []ChunkItem{{Name: "x", FederatedID: "", Role: "FAMILY"}}
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for missing federated id")
	}

	msg = valid
	msg.Items = []ChunkItem{{Name: "x", FederatedID: "fam1", Role: "BUNDLE"}}
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestChunkItemsRoundTrip(t *testing.T) {
	t.Parallel()

	items := []domain.ItemUpsertRequest{
		{Name: "Title A", Description: "Details A", FederatedID: "fam1", Role: domain.RoleFamily},
		{Name: "Title B", Description: "Details B", FederatedID: "opt1", Role: domain.RoleOption},
	}

	wire := ChunkItemsFromDomain(items)
	if wire[0].Role != "FAMILY" || wire[1].Role != "OPTION" {
		t.Fatalf("unexpected wire roles: %+v", wire)
	}

	back := ChunkItemsToDomain(wire)
	for i := range items {
		if back[i] != items[i] {
			t.Fatalf("item %d changed in round trip: %+v != %+v", i, back[i], items[i])
		}
	}
}
