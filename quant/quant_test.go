package quant

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSalmonLayout(t *testing.T) {
	row := []string{"ENSMUST00000000001", "3262", "3014.57", "12.5", "101"}
	parser, err := New("SALMON")
	if err != nil {
		t.Error(err)
	}
	parsedRow, err := parser.ParseRow(row)
	if err != nil {
		t.Error(err)
	}
	if parsedRow.Feature != "ENSMUST00000000001" ||
		parsedRow.Length != 3262 ||
		parsedRow.EffectiveLength != 3014.57 ||
		parsedRow.TPM != 12.5 ||
		parsedRow.Count != 101 {
		t.Error("Mismatch")
	}
}

func TestKallistoLayout(t *testing.T) {
	row := []string{"ENSMUST00000000001", "3262", "3014.57", "101", "12.5"}
	parser, err := New("KALLISTO")
	if err != nil {
		t.Error(err)
	}
	parsedRow, err := parser.ParseRow(row)
	if err != nil {
		t.Error(err)
	}
	if parsedRow.Feature != "ENSMUST00000000001" ||
		parsedRow.TPM != 12.5 ||
		parsedRow.Count != 101 {
		t.Error("Mismatch")
	}
}

func TestUnknownLayout(t *testing.T) {
	if _, err := New("CUFFLINKS"); err == nil {
		t.Error("expected an error for an unknown layout")
	}
}

func TestReadAbundancesSkipsHeader(t *testing.T) {
	input := "Name\tLength\tEffectiveLength\tTPM\tNumReads\n" +
		"G1\t1000\t900\t2.5\t10\n" +
		"G2\t500\t400\t0\t0\n"

	parser, err := New("SALMON")
	if err != nil {
		t.Fatal(err)
	}

	abundances, err := ReadAbundances(strings.NewReader(input), parser)
	if err != nil {
		t.Fatal(err)
	}

	if len(abundances) != 2 {
		t.Fatalf("got %d rows, expected 2", len(abundances))
	}
	if abundances[0].Feature != "G1" || abundances[0].TPM != 2.5 || abundances[0].Count != 10 {
		t.Errorf("got %+v", abundances[0])
	}
}

func TestLoadSet(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	// The second sample lists its features in a different order.
	p1 := write("s1.sf", "Name\tLength\tEffectiveLength\tTPM\tNumReads\nG1\t100\t90\t5\t50\nG2\t200\t190\t1\t10\n")
	p2 := write("s2.sf", "Name\tLength\tEffectiveLength\tTPM\tNumReads\nG2\t200\t190\t2\t20\nG1\t100\t90\t7\t70\n")

	set, err := LoadSet([]SampleFile{{"s1", p1}, {"s2", p2}}, "SALMON")
	if err != nil {
		t.Fatal(err)
	}

	if expected := []string{"G1", "G2"}; !reflect.DeepEqual(set.Features, expected) {
		t.Errorf("got features %v, expected %v", set.Features, expected)
	}
	if expected := []string{"s1", "s2"}; !reflect.DeepEqual(set.Samples, expected) {
		t.Errorf("got samples %v, expected %v", set.Samples, expected)
	}

	counts, ok := set.Level("count")
	if !ok {
		t.Fatal("expected a count level")
	}
	if expected := [][]float64{{50, 70}, {10, 20}}; !reflect.DeepEqual(counts.Values, expected) {
		t.Errorf("got counts %v, expected %v", counts.Values, expected)
	}

	tpm, ok := set.Level("TPM")
	if !ok {
		t.Fatal("expected a TPM level")
	}
	if expected := [][]float64{{5, 7}, {1, 2}}; !reflect.DeepEqual(tpm.Values, expected) {
		t.Errorf("got TPM %v, expected %v", tpm.Values, expected)
	}

	if len(set.Sources) != 2 {
		t.Errorf("got %d sources, expected 2", len(set.Sources))
	}
}

func TestLoadSetMismatchedFeatures(t *testing.T) {
	dir := t.TempDir()

	p1 := filepath.Join(dir, "s1.sf")
	p2 := filepath.Join(dir, "s2.sf")
	if err := os.WriteFile(p1, []byte("Name\tLength\tEffectiveLength\tTPM\tNumReads\nG1\t100\t90\t5\t50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p2, []byte("Name\tLength\tEffectiveLength\tTPM\tNumReads\nG9\t100\t90\t5\t50\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSet([]SampleFile{{"s1", p1}, {"s2", p2}}, "SALMON"); err == nil {
		t.Error("expected an error for mismatched features")
	}
}
