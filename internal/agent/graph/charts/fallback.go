package charts

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// preferredAxes are tried in order before falling back to the first categorical column.
var preferredAxes = []string{"supplier_name", "kpi_name", "year"}

const (
	defaultLineTitle = "Trend by Month"
	defaultBarTitle  = "Summary"
)

// BuildBasic derives a simple ECharts option from tabular rows without
// calling a model. A month column yields a line chart over calendar months;
// otherwise the first numeric column is summed per category as a bar chart.
// columns fixes the column order; when omitted the keys of the first
// non-empty row are used in sorted order. It never panics and returns an
// empty mapping when no meaningful chart exists.
func BuildBasic(rows []map[string]any, question string, columns ...string) (spec map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Str("component", "chart_fallback").Msgf("panic recovered: %v", r)
			spec = map[string]any{}
		}
	}()

	if len(rows) == 0 {
		return map[string]any{}
	}
	var first map[string]any
	for _, r := range rows {
		if r == nil {
			return map[string]any{}
		}
		if first == nil && len(r) > 0 {
			first = r
		}
	}
	if first == nil {
		return map[string]any{}
	}

	keys := orderedKeys(first, columns)
	if len(keys) == 0 {
		return map[string]any{}
	}

	var numeric, categorical []string
	for _, k := range keys {
		if _, ok := toFloat(sample(rows, k)); ok {
			numeric = append(numeric, k)
		} else {
			categorical = append(categorical, k)
		}
	}

	monthKey := ""
	for _, k := range keys {
		if strings.EqualFold(k, "month") {
			monthKey = k
			break
		}
	}

	if monthKey != "" {
		if yKey := firstExcept(numeric, monthKey); yKey != "" {
			if line := monthLine(rows, monthKey, yKey, question); line != nil {
				return line
			}
		}
	}

	if len(categorical) == 0 {
		return map[string]any{}
	}
	xKey := axisKey(categorical)
	yKey := firstExcept(numeric, xKey, monthKey)
	if yKey == "" {
		return map[string]any{}
	}
	if bar := categoryBar(rows, xKey, yKey, question); bar != nil {
		return bar
	}
	return map[string]any{}
}

func monthLine(rows []map[string]any, monthKey, yKey, question string) map[string]any {
	var sums [12]float64
	var seen [12]bool
	for _, r := range rows {
		m, ok := monthIndex(r[monthKey])
		if !ok {
			continue
		}
		v, ok := toFloat(r[yKey])
		if !ok {
			continue
		}
		sums[m-1] += v
		seen[m-1] = true
	}

	labels := []string{}
	data := []float64{}
	for i := range sums {
		if seen[i] {
			labels = append(labels, monthNames[i])
			data = append(data, round4(sums[i]))
		}
	}
	if len(data) == 0 {
		return nil
	}
	return map[string]any{
		"title":   map[string]any{"text": titleOr(question, defaultLineTitle)},
		"tooltip": map[string]any{"trigger": "axis"},
		"xAxis":   map[string]any{"type": "category", "data": labels},
		"yAxis":   map[string]any{"type": "value"},
		"series": []map[string]any{
			{"type": "line", "data": data, "smooth": true},
		},
	}
}

func categoryBar(rows []map[string]any, xKey, yKey, question string) map[string]any {
	labels := []string{}
	sums := map[string]float64{}
	for _, r := range rows {
		x := r[xKey]
		if x == nil {
			continue
		}
		v, ok := toFloat(r[yKey])
		if !ok {
			continue
		}
		label := formatCategory(x)
		if _, exists := sums[label]; !exists {
			labels = append(labels, label)
		}
		sums[label] += v
	}
	if len(labels) == 0 {
		return nil
	}
	data := make([]float64, len(labels))
	for i, l := range labels {
		data[i] = round4(sums[l])
	}
	return map[string]any{
		"title":   map[string]any{"text": titleOr(question, defaultBarTitle)},
		"tooltip": map[string]any{"trigger": "item"},
		"xAxis":   map[string]any{"type": "category", "data": labels},
		"yAxis":   map[string]any{"type": "value"},
		"series": []map[string]any{
			{"type": "bar", "data": data},
		},
	}
}

// axisKey prefers well-known dimension columns, then the first categorical
// column. Only categorical columns qualify, so numeric-only rows have no axis.
func axisKey(categorical []string) string {
	for _, pref := range preferredAxes {
		for _, k := range categorical {
			if strings.EqualFold(k, pref) {
				return k
			}
		}
	}
	if len(categorical) > 0 {
		return categorical[0]
	}
	return ""
}

func orderedKeys(first map[string]any, columns []string) []string {
	if len(columns) > 0 {
		return append([]string(nil), columns...)
	}
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sample(rows []map[string]any, key string) any {
	for _, r := range rows {
		if v, ok := r[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstExcept(keys []string, skip ...string) string {
	for _, k := range keys {
		excluded := false
		for _, s := range skip {
			if s != "" && k == s {
				excluded = true
				break
			}
		}
		if !excluded {
			return k
		}
	}
	return ""
}

// monthIndex accepts 1-12 as an integer or float, or a month name/abbreviation.
func monthIndex(v any) (int, bool) {
	switch m := v.(type) {
	case string:
		s := strings.TrimSpace(m)
		if len(s) > 3 {
			s = s[:3]
		}
		for i, name := range monthNames {
			if strings.EqualFold(s, name) {
				return i + 1, true
			}
		}
		return 0, false
	case float32, float64, json.Number:
		f, ok := toFloat(m)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return inMonthRange(int(f))
	default:
		f, ok := toFloat(m)
		if !ok {
			return 0, false
		}
		return inMonthRange(int(f))
	}
}

func inMonthRange(m int) (int, bool) {
	if m < 1 || m > 12 {
		return 0, false
	}
	return m, true
}

// toFloat reports whether v is a numeric scalar. Strings and booleans are not numeric.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func formatCategory(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func titleOr(question, fallback string) string {
	if strings.TrimSpace(question) == "" {
		return fallback
	}
	return question
}
