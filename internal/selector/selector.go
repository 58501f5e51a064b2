package selector

import (
	"sort"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

type Config struct {
	TargetCount  int
	MinCount     int
	MinThreshold float64
	MaxThreshold float64
}

func DefaultConfig() Config {
	return Config{
		TargetCount:  10,
		MinCount:     5,
		MinThreshold: 0.05,
		MaxThreshold: 0.8,
	}
}

// SelectThreshold подбирает порог так, чтобы над ним оказалось около targetCount новостей
func SelectThreshold(totals []float64, targetCount int, minThreshold, maxThreshold float64) float64 {
	positive := lo.Filter(totals, func(v float64, _ int) bool { return v > 0 })
	if targetCount <= 0 || len(positive) < targetCount {
		return minThreshold
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(positive)))

	threshold := positive[targetCount-1]
	if threshold < minThreshold {
		return minThreshold
	}
	if threshold > maxThreshold {
		return maxThreshold
	}
	return threshold
}

// Filter оставляет все новости с оценкой не ниже порога, включая равные ему
func Filter(items []*model.ScoredItem, threshold float64) []*model.ScoredItem {
	return lo.Filter(items, func(it *model.ScoredItem, _ int) bool {
		return it.Score.Total >= threshold
	})
}

// EnsureMinimum добирает самые горячие из оставшихся новостей, пока не наберется
// minCount событий. Событие считается по ключу группы, поэтому копии уже
// отобранной новости минимум не закрывают
func EnsureMinimum(filtered, all []*model.ScoredItem, minCount int) []*model.ScoredItem {
	result := append([]*model.ScoredItem(nil), filtered...)

	groups := make(map[string]struct{}, len(result))
	taken := make(map[*model.ScoredItem]struct{}, len(result))
	for _, it := range result {
		taken[it] = struct{}{}
		groups[it.Item.GroupKey()] = struct{}{}
	}
	if len(groups) >= minCount {
		return result
	}

	rest := lo.Filter(all, func(it *model.ScoredItem, _ int) bool {
		_, ok := taken[it]
		return !ok
	})
	SortByTotal(rest)

	for _, it := range rest {
		if len(groups) >= minCount {
			break
		}
		result = append(result, it)
		groups[it.Item.GroupKey()] = struct{}{}
	}

	return result
}

// Select прогоняет все три шага и возвращает отобранные новости вместе с порогом
func Select(items []*model.ScoredItem, cfg Config) ([]*model.ScoredItem, float64) {
	totals := lo.Map(items, func(it *model.ScoredItem, _ int) float64 { return it.Score.Total })

	threshold := SelectThreshold(totals, cfg.TargetCount, cfg.MinThreshold, cfg.MaxThreshold)
	selected := EnsureMinimum(Filter(items, threshold), items, cfg.MinCount)

	return selected, threshold
}

// SortByTotal сортирует по убыванию оценки. При равенстве раньше идет более
// ранняя публикация, затем меньший id
func SortByTotal(items []*model.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Less сообщает, должна ли a идти перед b в рейтинге
func Less(a, b *model.ScoredItem) bool {
	if a.Score.Total != b.Score.Total {
		return a.Score.Total > b.Score.Total
	}
	if !a.Item.PublishedAt.Equal(b.Item.PublishedAt) {
		return a.Item.PublishedAt.Before(b.Item.PublishedAt)
	}
	return a.Item.ID < b.Item.ID
}
