package entities

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Extractor находит в тексте компании, страны и инструменты.
// Реализации не возвращают ошибок: в худшем случае результат пустой
type Extractor interface {
	Extract(ctx context.Context, text string) model.Entities
}

type companyRule struct {
	keyword string
	company model.Company
}

var companyRules = []companyRule{
	{"сбербанк", model.Company{Name: "Сбербанк", Ticker: "SBER", Sector: "Банки"}},
	{"втб", model.Company{Name: "ВТБ", Ticker: "VTBR", Sector: "Банки"}},
	{"газпром", model.Company{Name: "Газпром", Ticker: "GAZP", Sector: "Нефть и газ"}},
	{"лукойл", model.Company{Name: "Лукойл", Ticker: "LKOH", Sector: "Нефть и газ"}},
	{"яндекс", model.Company{Name: "Яндекс", Ticker: "YDEX", Sector: "Технологии"}},
	{"центробанк", model.Company{Name: "ЦБ РФ", Sector: "Регуляторы"}},
	{"цб", model.Company{Name: "ЦБ РФ", Sector: "Регуляторы"}},
	{"apple", model.Company{Name: "Apple", Ticker: "AAPL", Sector: "Технологии"}},
	{"microsoft", model.Company{Name: "Microsoft", Ticker: "MSFT", Sector: "Технологии"}},
	{"google", model.Company{Name: "Google", Ticker: "GOOGL", Sector: "Технологии"}},
	{"amazon", model.Company{Name: "Amazon", Ticker: "AMZN", Sector: "Технологии"}},
	{"tesla", model.Company{Name: "Tesla", Ticker: "TSLA", Sector: "Автомобили"}},
	{"nvidia", model.Company{Name: "Nvidia", Ticker: "NVDA", Sector: "Технологии"}},
	{"federal reserve", model.Company{Name: "ФРС", Sector: "Регуляторы"}},
	{"фрс", model.Company{Name: "ФРС", Sector: "Регуляторы"}},
}

var countryRules = []struct {
	keyword string
	name    string
}{
	{"россия", "Россия"}, {"россии", "Россия"}, {"russia", "Россия"},
	{"китай", "Китай"}, {"китая", "Китай"}, {"china", "Китай"},
	{"сша", "США"}, {"united states", "США"}, {"u.s.", "США"},
	{"германия", "Германия"}, {"германии", "Германия"}, {"germany", "Германия"},
}

var instrumentRules = []struct {
	keyword string
	name    string
}{
	{"рубль", "рубль"}, {"рубля", "рубль"}, {"ruble", "рубль"},
	{"доллар", "доллар"}, {"dollar", "доллар"},
	{"биткоин", "биткоин"}, {"bitcoin", "биткоин"},
	{"акции", "акции"}, {"shares", "акции"},
	{"облигации", "облигации"}, {"bonds", "облигации"},
}

// RuleExtractor работает по словарю и не ходит во внешние сервисы
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

func (RuleExtractor) Extract(_ context.Context, text string) model.Entities {
	lower := strings.ToLower(text)
	words := set.New(strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})...)

	found := func(keyword string) bool {
		if utf8.RuneCountInString(keyword) <= 3 && !strings.ContainsAny(keyword, ". ") {
			return words.Contains(keyword)
		}
		return strings.Contains(lower, keyword)
	}

	var result model.Entities

	for _, rule := range companyRules {
		if !found(rule.keyword) {
			continue
		}
		if lo.ContainsBy(result.Companies, func(c model.Company) bool { return c.Name == rule.company.Name }) {
			continue
		}
		result.Companies = append(result.Companies, rule.company)
	}

	for _, rule := range countryRules {
		if found(rule.keyword) {
			result.Countries = append(result.Countries, rule.name)
		}
	}
	result.Countries = lo.Uniq(result.Countries)

	for _, rule := range instrumentRules {
		if found(rule.keyword) {
			result.Instruments = append(result.Instruments, rule.name)
		}
	}
	result.Instruments = lo.Uniq(result.Instruments)

	result.Sectors = lo.Uniq(lo.FilterMap(result.Companies, func(c model.Company, _ int) (string, bool) {
		return c.Sector, c.Sector != ""
	}))

	return result
}
