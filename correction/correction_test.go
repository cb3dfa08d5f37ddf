package correction

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/params"
)

var nominal = orb.Point{-76.943, 38.9126}

func TestTable_ApplyCorrection(t *testing.T) {
	tab := NewTable(nil)

	got, ok := tab.ApplyCorrection("unknown", nominal)
	if ok || got != nominal {
		t.Errorf("unknown id: want input unchanged, got %v %v", got, ok)
	}

	corrected := orb.Point{-76.94301, 38.91262}
	if err := tab.Set("demo", Correction{GPS: corrected, Confidence: 0.9, Samples: 4}); err != nil {
		t.Fatal(err)
	}
	got, ok = tab.ApplyCorrection("demo", nominal)
	if !ok || got != corrected {
		t.Errorf("trained id: want %v, got %v %v", corrected, got, ok)
	}

	tab.SetEnabled(false)
	got, ok = tab.ApplyCorrection("demo", nominal)
	if ok || got != nominal {
		t.Errorf("disabled: want input unchanged, got %v %v", got, ok)
	}
	if tab.Info("demo").Enabled {
		t.Error("info should report disabled")
	}
}

func TestTable_InvalidCorrection(t *testing.T) {
	tab := NewTable(&params.CorrectionConfig{Enabled: true, MinConfidence: 0.5})
	_ = tab.Set("weak", Correction{GPS: orb.Point{1, 1}, Confidence: 0.2, Samples: 1})

	if _, ok := tab.ApplyCorrection("weak", nominal); ok {
		t.Error("low confidence correction should not apply")
	}
	info := tab.Info("weak")
	if !info.Available || info.Valid || info.Correction == nil {
		t.Errorf("info: %+v", info)
	}
}

func TestTable_Train(t *testing.T) {
	tab := NewTable(nil)
	tab.Train("lotus", orb.Point{0, 0}, 0.8)
	c, _ := tab.Train("lotus", orb.Point{2, 4}, 0.9)
	if c.Samples != 2 {
		t.Errorf("samples: want 2, got %d", c.Samples)
	}
	if c.GPS != (orb.Point{1, 2}) {
		t.Errorf("mean: want [1 2], got %v", c.GPS)
	}
	if tab.TrainedCount() != 1 {
		t.Errorf("trained count: want 1, got %d", tab.TrainedCount())
	}
	tab.Train("demo", orb.Point{0, 0}, 0.8)
	ids := tab.AvailableExperiences()
	if len(ids) != 2 || ids[0] != "demo" || ids[1] != "lotus" {
		t.Errorf("available: %v", ids)
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get("demo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}

	tab := NewTable(nil)
	if err := tab.LoadFrom(store); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.Train("demo", orb.Point{-76.9431, 38.9127}, 0.9); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.Get("demo")
	if err != nil {
		t.Fatal(err)
	}
	if got.GPS != (orb.Point{-76.9431, 38.9127}) || got.Samples != 1 {
		t.Errorf("persisted: %+v", got)
	}

	reloaded := NewTable(nil)
	if err := reloaded.LoadFrom(store); err != nil {
		t.Fatal(err)
	}
	if p, ok := reloaded.ApplyCorrection("demo", nominal); !ok || p != got.GPS {
		t.Errorf("reloaded table: %v %v", p, ok)
	}

	if err := store.Delete("demo"); err != nil {
		t.Fatal(err)
	}
	all, _ := store.All()
	if len(all) != 0 {
		t.Errorf("want empty after delete, got %v", all)
	}
}

func TestNop(t *testing.T) {
	var o Oracle = Nop{}
	if p, ok := o.ApplyCorrection("x", nominal); ok || p != nominal {
		t.Error("nop should not correct")
	}
}
