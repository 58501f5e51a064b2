package dedup

import (
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const (
	DefaultThreshold = 0.6
	ngramSize        = 3
)

// Marker проставляет группы дубликатов новостям, которые пришли без них.
// Похожесть заголовков считается по Жаккару на символьных триграммах
type Marker struct {
	threshold float64
}

func NewMarker(threshold float64) *Marker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Marker{threshold: threshold}
}

// Mark возвращает копию среза с проставленными группами.
// Уже размеченные новости не трогаем, новые группы нумеруются после максимальной существующей
func (m *Marker) Mark(items []model.NewsItem) []model.NewsItem {
	out := make([]model.NewsItem, len(items))
	copy(out, items)

	nextGroup := 1
	for _, it := range out {
		if it.DuplicateGroup >= nextGroup {
			nextGroup = it.DuplicateGroup + 1
		}
	}

	var unique []int
	for i, it := range out {
		if it.IsUnique() {
			unique = append(unique, i)
		}
	}

	grams := lo.Map(unique, func(idx int, _ int) map[string]struct{} {
		return trigrams(out[idx].Title)
	})

	parent := make([]int, len(unique))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			if jaccard(grams[i], grams[j]) >= m.threshold {
				if ri, rj := find(i), find(j); ri != rj {
					parent[rj] = ri
				}
			}
		}
	}

	members := make(map[int][]int)
	var roots []int
	for i := range unique {
		r := find(i)
		if _, ok := members[r]; !ok {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	// Порядок групп определяется порядком первого появления, так разметка детерминирована
	for _, r := range roots {
		if len(members[r]) < 2 {
			continue
		}
		for _, i := range members[r] {
			out[unique[i]].DuplicateGroup = nextGroup
		}
		nextGroup++
	}

	return out
}

// Corroborate считает подтверждения: число разных источников в группе дубликатов
func Corroborate(items []model.NewsItem) []model.NewsItem {
	sources := make(map[int]map[string]struct{})
	for _, it := range items {
		if it.IsUnique() {
			continue
		}
		if sources[it.DuplicateGroup] == nil {
			sources[it.DuplicateGroup] = make(map[string]struct{})
		}
		sources[it.DuplicateGroup][strings.ToLower(it.SourceName)] = struct{}{}
	}

	out := make([]model.NewsItem, len(items))
	for i, it := range items {
		it.ConfirmationCount = 1
		if !it.IsUnique() {
			it.ConfirmationCount = len(sources[it.DuplicateGroup])
		}
		out[i] = it
	}

	return out
}

func normalize(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

func trigrams(text string) map[string]struct{} {
	runes := []rune(normalize(text))
	set := make(map[string]struct{})
	for i := 0; i <= len(runes)-ngramSize; i++ {
		set[string(runes[i:i+ngramSize])] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	return float64(intersection) / float64(len(a)+len(b)-intersection)
}
