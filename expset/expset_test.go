package expset

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gopkg.in/guregu/null.v3"
)

func testSet() *Set {
	set := New([]string{"G1", "G2", "G3"}, []string{"s1", "s2", "s3", "s4"})
	_ = set.AddLevel("count", [][]float64{
		{0, 5, 10, 0},
		{1, 0, 3, 8},
		{2, 2, 2, 2},
	})

	ann := NewAnnotation("sample", []string{"Characteristics.individual.", "Factor.Value.phenotype."})
	ann.SetValue("s1", "Characteristics.individual.", null.StringFrom("A"))
	ann.SetValue("s1", "Factor.Value.phenotype.", null.StringFrom("x"))
	ann.SetValue("s2", "Characteristics.individual.", null.StringFrom("B"))
	ann.SetValue("s2", "Factor.Value.phenotype.", null.StringFrom("y"))
	ann.SetValue("s3", "Characteristics.individual.", null.StringFrom("A"))
	ann.SetValue("s3", "Factor.Value.phenotype.", null.NewString("", false))
	ann.SetValue("s4", "Characteristics.individual.", null.StringFrom("B"))
	ann.SetValue("s4", "Factor.Value.phenotype.", null.StringFrom("y"))
	set.Pheno = ann

	return set
}

func TestAddLevelRejectsBadDimensions(t *testing.T) {
	set := New([]string{"G1", "G2"}, []string{"s1"})

	if err := set.AddLevel("count", [][]float64{{1}}); err == nil {
		t.Error("expected an error for a matrix with too few rows")
	}

	if err := set.AddLevel("count", [][]float64{{1, 2}, {3, 4}}); err == nil {
		t.Error("expected an error for a row with too many columns")
	}

	if err := set.AddLevel("count", [][]float64{{1}, {2}}); err != nil {
		t.Errorf("expected a well-shaped matrix to be accepted, got %v", err)
	}

	if err := set.AddLevel("count", [][]float64{{1}, {2}}); err == nil {
		t.Error("expected an error for a duplicate level name")
	}
}

func TestGroupingKeys(t *testing.T) {
	set := testSet()

	keys, err := set.GroupingKeys([]string{"Characteristics.individual.", "Factor.Value.phenotype."})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"A.x", "B.y", "A.NA", "B.y"}
	if !reflect.DeepEqual(keys, expected) {
		t.Errorf("got %v, expected %v", keys, expected)
	}
}

func TestGroupingKeysMissingColumn(t *testing.T) {
	set := testSet()

	_, err := set.GroupingKeys([]string{"Characteristics.individual.", "no_such_column"})
	if err == nil {
		t.Fatal("expected an error for an unknown column")
	}

	var missing *MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected a MissingColumnError, got %T: %v", err, err)
	}
	if missing.Column != "no_such_column" {
		t.Errorf("got column %q, expected %q", missing.Column, "no_such_column")
	}
}

func TestGroupingKeysWithoutAnnotation(t *testing.T) {
	set := New([]string{"G1"}, []string{"s1"})

	if _, err := set.GroupingKeys([]string{"anything"}); err == nil {
		t.Error("expected an error when no annotation is attached")
	}
}

func TestKeepSamples(t *testing.T) {
	set := testSet()

	// Request order must not override the set's own order.
	sub := set.KeepSamples([]string{"s4", "s2", "ghost"})

	if expected := []string{"s2", "s4"}; !reflect.DeepEqual(sub.Samples, expected) {
		t.Fatalf("got samples %v, expected %v", sub.Samples, expected)
	}

	count, ok := sub.Level("count")
	if !ok {
		t.Fatal("expected the count level to survive")
	}
	expected := [][]float64{
		{5, 0},
		{0, 8},
		{2, 2},
	}
	if !reflect.DeepEqual(count.Values, expected) {
		t.Errorf("got values %v, expected %v", count.Values, expected)
	}

	if sub.Pheno.NSamples() != 2 {
		t.Errorf("got %d annotated samples, expected 2", sub.Pheno.NSamples())
	}
	if v := sub.Pheno.Value("s2", "Factor.Value.phenotype."); !v.Valid || v.String != "y" {
		t.Errorf("got %+v, expected a valid %q", v, "y")
	}
}

func TestKeepFeatures(t *testing.T) {
	set := testSet()

	sub := set.KeepFeatures([]string{"G3", "G1"})

	if expected := []string{"G1", "G3"}; !reflect.DeepEqual(sub.Features, expected) {
		t.Fatalf("got features %v, expected %v", sub.Features, expected)
	}

	count, _ := sub.Level("count")
	expected := [][]float64{
		{0, 5, 10, 0},
		{2, 2, 2, 2},
	}
	if !reflect.DeepEqual(count.Values, expected) {
		t.Errorf("got values %v, expected %v", count.Values, expected)
	}

	// Mutating the subset must not touch the original.
	count.Values[0][0] = 99
	orig, _ := set.Level("count")
	if orig.Values[0][0] != 0 {
		t.Error("subset mutation leaked into the original set")
	}
}

func TestNumericColumn(t *testing.T) {
	ann := NewAnnotation("sample", []string{"age"})
	ann.SetValue("s1", "age", null.StringFrom("31.5"))
	ann.SetValue("s2", "age", null.NewString("", false))
	ann.SetValue("s3", "age", null.StringFrom("40"))

	vals, n := ann.NumericColumn("age", []string{"s1", "s2", "s3"})
	if n != 2 {
		t.Errorf("got %d parsed values, expected 2", n)
	}
	if vals[0] != 31.5 || vals[2] != 40 {
		t.Errorf("got %v, expected [31.5 NaN 40]", vals)
	}
	if !math.IsNaN(vals[1]) {
		t.Errorf("got %v for the null cell, expected NaN", vals[1])
	}

	if _, ok := ann.Numeric("age", []string{"s1", "s2", "s3"}); !ok {
		t.Error("expected the column to be numeric despite the null cell")
	}

	ann.SetValue("s2", "age", null.StringFrom("unknown"))
	if _, ok := ann.Numeric("age", []string{"s1", "s2", "s3"}); ok {
		t.Error("expected the column to stop being numeric")
	}
}

func TestDaysSince(t *testing.T) {
	ann := NewAnnotation("sample", []string{"drawn"})
	ann.SetValue("s1", "drawn", null.StringFrom("2014-03-17"))
	ann.SetValue("s2", "drawn", null.StringFrom("2014-03-20"))
	ann.SetValue("s3", "drawn", null.StringFrom("17-Mar-2014 12:00:00"))

	days, err := ann.DaysSince("drawn", []string{"s1", "s2", "s3"})
	if err != nil {
		t.Fatal(err)
	}

	if days[0] != 0 {
		t.Errorf("got %v for the earliest date, expected 0", days[0])
	}
	if days[1] != 3 {
		t.Errorf("got %v, expected 3", days[1])
	}
	if days[2] != 0.5 {
		t.Errorf("got %v, expected 0.5", days[2])
	}
}
