package instruction

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rangeRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:to|through|thru|-|~|到|至)\s*(\d+)`)
	listSplitRe = regexp.MustCompile(`[,，、]`)
	weekdayRe   = regexp.MustCompile(`(?i)\b(?:weekdays?|days of (?:the )?week|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthRe     = regexp.MustCompile(`(?i)\b(?:months?|january|february|march|april|june|july|august|september|october|november|december)\b`)
)

var (
	weekdaysEN = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	monthsEN   = []string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	weekdaysCN = []string{"星期一", "星期二", "星期三", "星期四", "星期五", "星期六", "星期日"}
	weekShort  = []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}
	monthsCN   = []string{"一月", "二月", "三月", "四月", "五月", "六月", "七月", "八月", "九月", "十月", "十一月", "十二月"}
)

// ClassifyGenerate decides what a Generate directive produces. Priority:
// numeric range, calendar vocabulary, comma list, model freeform.
func ClassifyGenerate(content string) GenerateSpec {
	content = strings.TrimSpace(content)

	if m := rangeRe.FindStringSubmatch(content); m != nil {
		start, errStart := strconv.Atoi(m[1])
		end, errEnd := strconv.Atoi(m[2])
		if errStart == nil && errEnd == nil {
			return NumberSequence{Start: start, End: end}
		}
	}

	if values := calendarValues(content); values != nil {
		return EnumeratedList{Values: values}
	}

	if listSplitRe.MatchString(content) {
		var values []string
		for _, item := range listSplitRe.Split(content, -1) {
			if item = strings.TrimSpace(item); item != "" {
				values = append(values, item)
			}
		}
		return EnumeratedList{Values: values}
	}

	return AIFreeform{Prompt: content}
}

func calendarValues(content string) []string {
	switch {
	case strings.Contains(content, "星期"):
		return clone(weekdaysCN)
	case strings.Contains(content, "周") && (strings.Contains(content, "到") || strings.Contains(content, "至")):
		return clone(weekShort)
	case strings.Contains(content, "月"):
		return clone(monthsCN)
	case weekdayRe.MatchString(content):
		return clone(weekdaysEN)
	case monthRe.MatchString(content):
		return clone(monthsEN)
	}
	return nil
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
