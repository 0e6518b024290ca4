package column

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

func TestResolve(t *testing.T) {
	columns := []string{"name", "age", "city"}

	tests := []struct {
		name        string
		ref         instruction.ColumnRef
		columns     []string
		allowCreate bool
		want        string
		wantOK      bool
	}{
		{"index in range", instruction.ColumnIndex(1), columns, false, "age", true},
		{"index out of range", instruction.ColumnIndex(3), columns, false, "", false},
		{"index created as letter", instruction.ColumnIndex(3), columns, true, "D", true},
		{"index created beyond Z", instruction.ColumnIndex(26), columns, true, "Col27", true},
		{"negative index", instruction.ColumnIndex(-1), columns, true, "", false},
		{"exact name", instruction.ColumnName("city"), columns, false, "city", true},
		{"case-insensitive name", instruction.ColumnName("CITY"), columns, false, "city", true},
		{"numeric name", instruction.ColumnName("2"), columns, false, "age", true},
		{"numeric name created", instruction.ColumnName("5"), columns, true, "E", true},
		{"letter falls back to position", instruction.ColumnName("B"), columns, false, "age", true},
		{"letter out of range", instruction.ColumnName("Z"), columns, false, "", false},
		{"unknown name created as-is", instruction.ColumnName("B"), columns, true, "B", true},
		{"unknown word", instruction.ColumnName("TOTAL"), columns, false, "", false},
		{"empty name", instruction.ColumnName(""), columns, true, "", false},
		{"nil ref", nil, columns, true, "", false},
		{"letter header wins over position", instruction.ColumnName("A"), []string{"B", "A"}, false, "A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.ref, tt.columns, tt.allowCreate)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_LetterCodeDependsOnCreate(t *testing.T) {
	columns := []string{"Name", "Age"}

	got, ok := Resolve(instruction.ColumnName("B"), columns, false)
	assert.True(t, ok)
	assert.Equal(t, "Age", got, "an existing column is edited in place")

	got, ok = Resolve(instruction.ColumnName("B"), columns, true)
	assert.True(t, ok)
	assert.Equal(t, "B", got, "generate writes a new column named by the letter")

	got, ok = Resolve(instruction.ColumnIndex(1), columns, true)
	assert.True(t, ok)
	assert.Equal(t, "Age", got, "ordinals resolve by position either way")
}

func TestResolve_Pure(t *testing.T) {
	columns := []string{"A", "B"}
	first, _ := Resolve(instruction.ColumnIndex(5), columns, true)
	second, _ := Resolve(instruction.ColumnIndex(5), columns, true)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A", "B"}, columns)
}

func TestLetters(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA", -1: ""}
	for in, want := range cases {
		assert.Equal(t, want, Letters(in), "Letters(%d)", in)
	}
}

func TestLetterIndex(t *testing.T) {
	for i := 0; i < 800; i++ {
		got, ok := LetterIndex(Letters(i))
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}
	_, ok := LetterIndex("A1")
	assert.False(t, ok)
	_, ok = LetterIndex("")
	assert.False(t, ok)
}
