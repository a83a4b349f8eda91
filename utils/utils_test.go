package utils

import (
	"bytes"
	"math"
	"testing"
)

func TestWriteListing(t *testing.T) {
	var buf bytes.Buffer
	listings := []Listing{
		{Ordinal: 0, Task: 0, File: "data/trj-0.csv", Offset: 0},
		{Ordinal: 1, Task: 2, File: "data/trj-2.csv", Offset: 17},
	}
	if err := WriteListing(&buf, []string{"k = 2", "mode = pose"}, listings); err != nil {
		t.Fatal(err)
	}

	want := "# k = 2\n# mode = pose\ntrj-0.csv,0\ntrj-2.csv,17\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteMatrices(t *testing.T) {
	files := []string{"in/a.csv", "in/b.csv"}

	var ints bytes.Buffer
	if err := WriteIntMatrix(&ints, files, [][]int{{0, 1}, {1, Padding}}); err != nil {
		t.Fatal(err)
	}
	if want := "trj,0,1\na.csv,0,1\nb.csv,1,-1\n"; ints.String() != want {
		t.Fatalf("got %q, want %q", ints.String(), want)
	}

	var floats bytes.Buffer
	if err := WriteFloatMatrix(&floats, files, [][]float64{{0.5, 0}, {2.25, Padding}}); err != nil {
		t.Fatal(err)
	}
	if want := "trj,0,1\na.csv,0.500000,0.000000\nb.csv,2.250000,-1.000000\n"; floats.String() != want {
		t.Fatalf("got %q, want %q", floats.String(), want)
	}

	if err := WriteIntMatrix(&ints, files, [][]int{{0}}); err == nil {
		t.Fatal("expected an error for a missing row")
	}
	if err := WriteIntMatrix(&ints, files, [][]int{{0}, {0, 1}}); err == nil {
		t.Fatal("expected an error for a ragged row")
	}
}

func TestAppendRows(t *testing.T) {
	var buf bytes.Buffer
	header := []string{"trj", "frame", "x"}
	rows := [][]string{{"a.csv", "0", "1.5"}, {"a.csv", "1", "2.5"}}
	if err := AppendRows(&buf, header, rows); err != nil {
		t.Fatal(err)
	}
	if want := "a.csv,0,1.5\na.csv,1,2.5\n"; buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := AppendRows(&buf, header, nil); err != nil || buf.Len() != 0 {
		t.Fatalf("empty append wrote %q (err %v)", buf.String(), err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{math.Inf(1), 1, 3, math.NaN(), 2})
	if s.Count != 3 || s.Min != 1 || s.Max != 3 || s.Mean != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}

	if s := Summarize([]float64{math.Inf(1)}); s.Count != 0 || s.Mean != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestKind(t *testing.T) {
	for k := Ready; k <= WriteRelease; k++ {
		if !k.Valid() {
			t.Fatalf("%v should be valid", k)
		}
	}
	if Kind(0).Valid() || Kind(42).Valid() {
		t.Fatal("unknown kinds should be invalid")
	}
	if got := WriteGrant.String(); got != "WRITE-GRANT" {
		t.Fatalf("got %q", got)
	}
	if got := Kind(42).String(); got != "Kind(42)" {
		t.Fatalf("got %q", got)
	}
}

func TestFrame(t *testing.T) {
	f := Frame{{0, 0, 0}, {2, 0, 0}, {0, 4, 0}}

	if c := f.Centroid([]int{0, 1}); c != (Coords{1, 0, 0}) {
		t.Fatalf("centroid of subset %v", c)
	}
	if c := f.Centroid(nil); math.Abs(c[0]-2.0/3) > 1e-12 || math.Abs(c[1]-4.0/3) > 1e-12 {
		t.Fatalf("centroid %v", c)
	}

	sel := f.Select([]int{2})
	sel[0][0] = 9
	if f[2][0] != 0 {
		t.Fatal("Select must copy")
	}
	if d := GetDistance(f[1], f[2]); math.Abs(d-math.Sqrt(20)) > 1e-12 {
		t.Fatalf("distance %v", d)
	}
}

func TestCentersOwned(t *testing.T) {
	centers := Centers{
		{Identity: Identity{Rank: 1, Index: 0}, Ordinal: 0},
		{Identity: Identity{Rank: 0, Index: 3}, Ordinal: 1},
		{Identity: Identity{Rank: 1, Index: 2}, Ordinal: 2},
	}

	owned := centers.Owned(1)
	if len(owned) != 2 || owned[0].Ordinal != 0 || owned[1].Ordinal != 2 {
		t.Fatalf("owned %v", owned)
	}
	if ids := centers.Identities(); ids[1] != (Identity{Rank: 0, Index: 3}) {
		t.Fatalf("identities %v", ids)
	}
}
