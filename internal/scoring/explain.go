package scoring

import (
	"fmt"
	"strings"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Explanation человекочитаемая расшифровка оценки по компонентам
type Explanation struct {
	Unexpectedness string `json:"unexpectedness"`
	Materiality    string `json:"materiality"`
	Velocity       string `json:"velocity"`
	Breadth        string `json:"breadth"`
	SourceTrust    string `json:"source_trust"`
	Total          string `json:"total"`
}

func Explain(item model.NewsItem, score model.HotnessScore) Explanation {
	lang := DetectLanguage(item)
	text := strings.ToLower(item.Text())

	return Explanation{
		Unexpectedness: fmt.Sprintf("Неожиданность: %.3f - %s", score.Unexpectedness, explainUnexpectedness(text, lang)),
		Materiality:    fmt.Sprintf("Материальность: %.3f - %s", score.Materiality, explainMateriality(text, lang)),
		Velocity:       fmt.Sprintf("Скорость: %.3f - %s", score.Velocity, explainVelocity(item)),
		Breadth:        fmt.Sprintf("Широта: %.3f - %s", score.Breadth, explainBreadth(text, lang)),
		SourceTrust:    fmt.Sprintf("Доверие: %.3f - %s", score.SourceTrust, explainTrust(item.Credibility)),
		Total:          fmt.Sprintf("Итого: %.3f - %s", score.Total, Category(score.Total)),
	}
}

// Category переводит итоговую оценку в словесную градацию
func Category(total float64) string {
	switch {
	case total >= 0.8:
		return "экстремально горячая новость"
	case total >= 0.6:
		return "очень горячая новость"
	case total >= 0.4:
		return "горячая новость"
	case total >= 0.2:
		return "теплая новость"
	default:
		return "обычная новость"
	}
}

func explainUnexpectedness(text, lang string) string {
	var factors []string

	if anyTerm(text, lexicons[lang].crisis) {
		factors = append(factors, "кризисные маркеры")
	}
	if p, ok := maxPercent(text, lang); ok && p > 5 {
		factors = append(factors, fmt.Sprintf("значительное изменение (%g%%)", p))
	}

	return joinOr(factors, "рутинное событие")
}

func explainMateriality(text, lang string) string {
	var factors []string

	if t, b := maxMoney(text, lang); t > 0 || b > 0 {
		factors = append(factors, "крупные суммы")
	}
	if anyTerm(text, lexicons[lang].majorCompanies) {
		factors = append(factors, "значимые компании")
	}
	if anyTerm(text, lexicons[lang].currencies) {
		factors = append(factors, "валютные рынки")
	}

	return joinOr(factors, "ограниченное влияние")
}

func explainVelocity(item model.NewsItem) string {
	var factors []string

	if item.Credibility >= 7 {
		factors = append(factors, "надежный источник")
	}
	if !item.IsUnique() {
		factors = append(factors, fmt.Sprintf("подтверждения (%d)", item.ConfirmationCount))
	}

	return joinOr(factors, "медленное распространение")
}

var assetClassLabels = map[string]string{
	"equities":     "акции",
	"currencies":   "валюты",
	"commodities":  "сырье",
	"fixed_income": "облигации",
	"crypto":       "криптовалюты",
}

func explainBreadth(text, lang string) string {
	classes := assetClasses(text, lang)

	labels := make([]string, 0, len(classes))
	for _, c := range classes {
		labels = append(labels, assetClassLabels[c])
	}

	return joinOr(labels, "узкое влияние")
}

func explainTrust(credibility int) string {
	switch {
	case credibility >= 9:
		return "максимальное доверие"
	case credibility == 8:
		return "высокое доверие"
	case credibility == 7:
		return "хорошее доверие"
	case credibility == 6:
		return "среднее доверие"
	case credibility == 5:
		return "умеренное доверие"
	default:
		return "низкое доверие"
	}
}

func joinOr(parts []string, fallback string) string {
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
