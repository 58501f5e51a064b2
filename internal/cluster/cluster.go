package cluster

import (
	"sort"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/selector"
)

// Group раскладывает отобранные новости по событиям. Каждая новость попадает
// ровно в один кластер. Кластеры отсортированы по оценке представителя
func Group(items []*model.ScoredItem) []model.EventCluster {
	var (
		order   []string
		members = make(map[string][]*model.ScoredItem)
	)

	for _, it := range items {
		key := it.Item.GroupKey()
		if _, ok := members[key]; !ok {
			order = append(order, key)
		}
		members[key] = append(members[key], it)
	}

	clusters := make([]model.EventCluster, 0, len(order))
	for _, key := range order {
		group := members[key]

		clusters = append(clusters, model.EventCluster{
			Key:            key,
			Members:        group,
			Representative: representative(group),
			SourceURLs:     sourceURLs(group),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return selector.Less(clusters[i].Representative, clusters[j].Representative)
	})

	return clusters
}

// Максимальная оценка, при равенстве более ранняя публикация, затем меньший id
func representative(group []*model.ScoredItem) *model.ScoredItem {
	best := group[0]
	for _, it := range group[1:] {
		if selector.Less(it, best) {
			best = it
		}
	}
	return best
}

func sourceURLs(group []*model.ScoredItem) []string {
	urls := lo.FilterMap(group, func(it *model.ScoredItem, _ int) (string, bool) {
		return it.Item.URL, it.Item.URL != ""
	})
	return lo.Uniq(urls)
}
