package mapreduce

import (
	"fmt"
	"sort"
)

// Keyword is one aggregated keyword with its catalog-wide count.
type Keyword struct {
	Word  string
	Count int
}

// TopKeywords returns the n most frequent keywords, most frequent
// first, word as tiebreak so output is stable run to run.
func TopKeywords(wordCounts map[string]int, n int) []Keyword {
	ranked := make([]Keyword, 0, len(wordCounts))
	for word, count := range wordCounts {
		ranked = append(ranked, Keyword{Word: word, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// PrintTopKeywords prints the top n keywords as a numbered list.
func PrintTopKeywords(wordCounts map[string]int, n int) {
	for i, kw := range TopKeywords(wordCounts, n) {
		fmt.Printf("%2d. %-20s %d\n", i+1, kw.Word, kw.Count)
	}
}
