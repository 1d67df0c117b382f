package mapreduce

import (
	"reflect"
	"testing"

	"github.com/oilslick/catops/pkg/analytics"
)

func TestMap_FiltersNoise(t *testing.T) {
	a := &analytics.Analytics{}
	got := Map("Premium quality ceramic mug, ceramic glaze, 12 oz free shipping", a)

	want := map[string]int{
		"ceramic": 2,
		"mug":     1,
		"glaze":   1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Map = %v, want %v", got, want)
	}
}

func TestReduce_SumsAcrossProducts(t *testing.T) {
	intermediate := []map[string]int{
		{"ceramic": 2, "mug": 1},
		{"ceramic": 1, "candle": 3},
		{},
	}
	got := Reduce(intermediate)

	want := map[string]int{"ceramic": 3, "mug": 1, "candle": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reduce = %v, want %v", got, want)
	}
}

func TestTopKeywords_OrderAndTiebreak(t *testing.T) {
	counts := map[string]int{
		"candle":  3,
		"ceramic": 5,
		"wax":     3,
		"mug":     1,
	}
	got := TopKeywords(counts, 3)

	want := []Keyword{
		{Word: "ceramic", Count: 5},
		{Word: "candle", Count: 3},
		{Word: "wax", Count: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopKeywords = %v, want %v", got, want)
	}
}

func TestTopKeywords_NLargerThanMap(t *testing.T) {
	got := TopKeywords(map[string]int{"mug": 1}, 10)
	if len(got) != 1 {
		t.Errorf("TopKeywords returned %d keywords, want 1", len(got))
	}
}
