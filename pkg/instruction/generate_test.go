package instruction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyGenerate(t *testing.T) {
	tests := []struct {
		content string
		want    GenerateSpec
	}{
		{"1 to 10", NumberSequence{Start: 1, End: 10}},
		{"numbers 3 through 5", NumberSequence{Start: 3, End: 5}},
		{"1-100", NumberSequence{Start: 1, End: 100}},
		{"1至3", NumberSequence{Start: 1, End: 3}},
		{"周一到周日", EnumeratedList{Values: []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}}},
		{"all the months", EnumeratedList{Values: monthsEN}},
		{"所有月份", EnumeratedList{Values: monthsCN}},
		{"a,b,,c", EnumeratedList{Values: []string{"a", "b", "c"}}},
		{"three product slogans", AIFreeform{Prompt: "three product slogans"}},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyGenerate(tt.content))
		})
	}
}

func TestClassifyGenerate_RangeBeatsCalendar(t *testing.T) {
	// "月" would select the month list, but the numeric range has priority.
	assert.Equal(t, NumberSequence{Start: 1, End: 12}, ClassifyGenerate("1到12月"))
}

func TestNumberSequence_Values(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, NumberSequence{Start: 1, End: 3}.Values())
	assert.Equal(t, []int64{7}, NumberSequence{Start: 7, End: 7}.Values())
	assert.Empty(t, NumberSequence{Start: 5, End: 2}.Values())
}

func TestNumberSequence_Bounds(t *testing.T) {
	nearMax := NumberSequence{Start: math.MaxInt - 2, End: math.MaxInt}
	assert.Equal(t, 3, nearMax.Len())
	assert.Equal(t, []int64{math.MaxInt64 - 2, math.MaxInt64 - 1, math.MaxInt64}, nearMax.Values())

	atCap := NumberSequence{Start: 1, End: MaxSequenceLength}
	assert.Equal(t, MaxSequenceLength, atCap.Len())
	assert.Len(t, atCap.Values(), MaxSequenceLength)

	for _, s := range []NumberSequence{
		{Start: 1, End: MaxSequenceLength + 1},
		{Start: 1, End: math.MaxInt},
		{Start: math.MinInt, End: math.MaxInt},
	} {
		assert.Equal(t, -1, s.Len(), "%d..%d", s.Start, s.End)
		values := s.Values()
		assert.Len(t, values, MaxSequenceLength)
		assert.Equal(t, int64(s.Start), values[0])
	}
}

func TestDescribeGenerate(t *testing.T) {
	assert.Equal(t, "number sequence 1..3", DescribeGenerate(NumberSequence{Start: 1, End: 3}))
	assert.Equal(t, "list of 2 values", DescribeGenerate(EnumeratedList{Values: []string{"x", "y"}}))
	assert.Equal(t, "AI generated", DescribeGenerate(AIFreeform{Prompt: "p"}))
	assert.Equal(t, "none", DescribeGenerate(nil))
}

func TestColumnRef_String(t *testing.T) {
	assert.Equal(t, "#1", ColumnIndex(0).String())
	assert.Equal(t, "B", ColumnName("B").String())
}
