package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/stowage/model"
)

func container(id string) model.Container {
	return model.Container{ID: id, Zone: "Medical", Dimensions: model.Dimensions{Width: 100, Depth: 100, Height: 100}}
}

func item(id string) *model.Item {
	return &model.Item{
		ID:         id,
		Name:       "Item " + id,
		Dimensions: model.Dimensions{Width: 10, Depth: 10, Height: 10},
		Mass:       1,
		Priority:   50,
	}
}

func mustApply(t *testing.T, store *KnowledgeBase, b Batch) {
	t.Helper()
	if err := store.ApplyBatch(b); err != nil {
		t.Fatalf("ApplyBatch error: %v", err)
	}
}

func TestAddAndGetItem(t *testing.T) {
	store := NewKnowledgeBase()
	mustApply(t, store, Batch{NewItems: []*model.Item{item("i1")}})
	got := store.GetItem("i1")
	if got == nil || got.Name != "Item i1" {
		t.Fatalf("GetItem returned %#v, want name Item i1", got)
	}
	if store.GetItem("missing") != nil {
		t.Fatalf("GetItem(missing) should be nil")
	}
}

func TestApplyBatchRejectsDuplicates(t *testing.T) {
	store := NewKnowledgeBase()
	mustApply(t, store, Batch{Containers: []model.Container{container("c1")}, NewItems: []*model.Item{item("i1")}})

	tests := []struct {
		name string
		b    Batch
		want error
	}{
		{"existing item", Batch{NewItems: []*model.Item{item("i1")}}, ErrItemExists},
		{"item twice in batch", Batch{NewItems: []*model.Item{item("i2"), item("i2")}}, ErrItemExists},
		{"existing container", Batch{Containers: []model.Container{container("c1")}}, ErrContainerExists},
		{"container twice in batch", Batch{Containers: []model.Container{container("c2"), container("c2")}}, ErrContainerExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := store.ApplyBatch(tc.b)
			if !errors.Is(err, tc.want) || !errors.Is(err, model.ErrConflict) {
				t.Fatalf("ApplyBatch err = %v, want %v", err, tc.want)
			}
		})
	}
	if got := store.Counts(); got.Items != 1 || got.Containers != 1 {
		t.Fatalf("rejected batches leaked writes: %+v", got)
	}
}

func TestGetItemReturnsCopy(t *testing.T) {
	store := NewKnowledgeBase()
	mustApply(t, store, Batch{NewItems: []*model.Item{item("i1")}})
	got := store.GetItem("i1")
	got.Name = "mutated"
	if store.GetItem("i1").Name != "Item i1" {
		t.Fatalf("mutating a returned item leaked into the store")
	}
}

func TestApplyBatchIsAllOrNothing(t *testing.T) {
	store := NewKnowledgeBase()
	mustApply(t, store, Batch{Containers: []model.Container{container("c1")}, NewItems: []*model.Item{item("i1")}})

	staged := store.GetItem("i1")
	staged.PlaceAt("c1", model.PositionAt(model.Coordinates{}, staged.Dimensions))

	bad := Batch{
		Containers: []model.Container{container("c2")},
		NewItems:   []*model.Item{item("i2")},
		Updates:    []*model.Item{staged, item("ghost")},
		Deletes:    []string{"i1"},
	}
	if err := store.CheckBatch(bad); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("CheckBatch err = %v, want ErrItemNotFound", err)
	}
	if err := store.ApplyBatch(bad); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("ApplyBatch err = %v, want ErrItemNotFound", err)
	}
	if got := store.Counts(); got != (Counts{Items: 1, Containers: 1}) {
		t.Fatalf("ApplyBatch partially applied despite error: %+v", got)
	}

	mustApply(t, store, Batch{Updates: []*model.Item{staged}})
	if got := store.GetItem("i1"); !got.Placed() || got.ContainerID != "c1" {
		t.Fatalf("ApplyBatch did not commit placement: %#v", got)
	}
}

func TestApplyBatchResolvesContainersInSameBatch(t *testing.T) {
	store := NewKnowledgeBase()
	it := item("i1")
	it.PlaceAt("c1", model.PositionAt(model.Coordinates{}, it.Dimensions))
	if err := store.CheckBatch(Batch{NewItems: []*model.Item{it}}); !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("CheckBatch err = %v, want ErrContainerNotFound", err)
	}
	mustApply(t, store, Batch{Containers: []model.Container{container("c1")}, NewItems: []*model.Item{it}})

	moved := store.GetItem("i1")
	moved.PlaceAt("nowhere", model.PositionAt(model.Coordinates{}, moved.Dimensions))
	if err := store.ApplyBatch(Batch{Updates: []*model.Item{moved}}); !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("ApplyBatch err = %v, want ErrContainerNotFound", err)
	}
}

func TestListAndCounts(t *testing.T) {
	store := NewKnowledgeBase()
	b := Batch{Containers: []model.Container{container("c1")}}
	for i := range 3 {
		b.NewItems = append(b.NewItems, item(fmt.Sprintf("i-%d", i)))
	}
	mustApply(t, store, b)

	placed := store.GetItem("i-1")
	placed.PlaceAt("c1", model.PositionAt(model.Coordinates{}, placed.Dimensions))
	waste := store.GetItem("i-2")
	waste.Waste = true
	waste.WasteReason = model.WasteExpired
	mustApply(t, store, Batch{Updates: []*model.Item{placed, waste}})

	items := store.ListItems()
	if len(items) != 3 || items[0].ID != "i-0" || items[2].ID != "i-2" {
		t.Fatalf("ListItems not sorted/complete: %v", items)
	}
	if in := store.ItemsInContainer("c1"); len(in) != 1 || in[0].ID != "i-1" {
		t.Fatalf("ItemsInContainer = %v, want [i-1]", in)
	}

	got := store.Counts()
	want := Counts{Items: 3, Placed: 1, Waste: 1, Containers: 1}
	if got != want {
		t.Fatalf("Counts = %+v, want %+v", got, want)
	}

	mustApply(t, store, Batch{Deletes: []string{"i-2", "i-2", "missing"}})
	if got := store.Counts().Items; got != 2 {
		t.Fatalf("Counts().Items after delete = %d, want 2", got)
	}
}

func TestFindItemsByName(t *testing.T) {
	store := NewKnowledgeBase()
	a := item("a")
	a.Name = "Food Pack"
	b := item("b")
	b.Name = "food pack"
	mustApply(t, store, Batch{NewItems: []*model.Item{a, b, item("c")}})

	got := store.FindItemsByName("FOOD PACK")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("FindItemsByName = %v, want [a b]", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewKnowledgeBase()
	mustApply(t, store, Batch{Containers: []model.Container{container("c1")}})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("i-%d", n)
			_ = store.ApplyBatch(Batch{NewItems: []*model.Item{item(id)}})
			_ = store.GetItem(id)
			_ = store.ListItems()
			_ = store.Counts()
		}(i)
	}
	wg.Wait()

	if got := store.Counts().Items; got != 8 {
		t.Fatalf("Counts().Items = %d, want 8", got)
	}
}
