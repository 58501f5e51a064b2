package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Веса компонент горячности. В сумме должны давать 1
type Weights struct {
	Unexpectedness float64
	Materiality    float64
	Velocity       float64
	Breadth        float64
	SourceTrust    float64
}

func DefaultWeights() Weights {
	return Weights{
		Unexpectedness: 0.30,
		Materiality:    0.25,
		Velocity:       0.20,
		Breadth:        0.15,
		SourceTrust:    0.10,
	}
}

func (w Weights) Validate() error {
	for _, v := range []float64{w.Unexpectedness, w.Materiality, w.Velocity, w.Breadth, w.SourceTrust} {
		if v < 0 {
			return model.ErrBadWeights
		}
	}

	sum := w.Unexpectedness + w.Materiality + w.Velocity + w.Breadth + w.SourceTrust
	if math.Abs(sum-1) > 1e-6 {
		return model.ErrBadWeights
	}
	return nil
}

var (
	percentPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)
	moneyPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)*)\s*(трлн|млрд|trillion|billion|tn|bn)(?:[^\p{L}\p{N}]|$)`)
)

// Scorer считает горячесть новости. Чистая функция: никакого I/O и состояния
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

func (s *Scorer) Score(item model.NewsItem) model.HotnessScore {
	lang := DetectLanguage(item)
	text := strings.ToLower(item.Text())
	category := strings.ToLower(item.Category)

	score := model.HotnessScore{
		Unexpectedness: unexpectedness(text, category, lang),
		Materiality:    materiality(text, category, lang),
		Velocity:       velocity(item, text, category),
		Breadth:        breadth(text, category, lang),
		SourceTrust:    sourceTrust(item),
	}

	score.Total = clamp01(
		score.Unexpectedness*s.weights.Unexpectedness +
			score.Materiality*s.weights.Materiality +
			score.Velocity*s.weights.Velocity +
			score.Breadth*s.weights.Breadth +
			score.SourceTrust*s.weights.SourceTrust,
	)

	return score
}

// DetectLanguage: явное поле language, иначе большинство кириллических или латинских букв
func DetectLanguage(item model.NewsItem) string {
	if item.Language != "" {
		switch strings.ToLower(item.Language) {
		case "ru", "russian":
			return "ru"
		default:
			return "en"
		}
	}

	var cyrillic, latin int
	for _, r := range item.Text() {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}

	if cyrillic > latin {
		return "ru"
	}
	return "en"
}

func unexpectedness(text, category, lang string) float64 {
	lex := lexicons[lang]
	score := 0.0

	if volatileCategories[category] {
		score += 0.2
	}

	if n := countTerms(text, lex.crisis); n > 0 {
		score += math.Min(0.4, float64(n)*0.12)
	}

	if n := countTerms(text, urgentMarkers); n > 0 {
		score += math.Min(0.3, float64(n)*0.15)
	}

	if p, ok := maxPercent(text, lang); ok && p > 5 {
		score += math.Min(0.3, (p-5)/80)
	}

	if anyTerm(text, firstEverMarkers) {
		score += 0.12
	}
	if anyTerm(text, corporateEvents) {
		score += 0.15
	}
	if anyTerm(text, regulatoryWords) {
		score += 0.1
	}

	return clamp01(score)
}

func materiality(text, category, lang string) float64 {
	lex := lexicons[lang]

	score, ok := materialityTiers[category]
	if !ok {
		score = 0.1
	}

	trillions, billions := maxMoney(text, lang)
	switch {
	case trillions > 0:
		score += math.Min(0.4, trillions/8)
	case billions > 0:
		score += math.Min(0.3, billions/80)
	}

	if n := countTerms(text, lex.majorCompanies); n > 0 {
		score += math.Min(0.3, float64(n)*0.08)
	}
	if n := countTerms(text, lex.currencies); n > 0 {
		score += math.Min(0.25, float64(n)*0.1)
	}
	if n := countTerms(text, lex.commodities); n > 0 {
		score += math.Min(0.25, float64(n)*0.1)
	}
	if n := countTerms(text, lex.indices); n > 0 {
		score += math.Min(0.25, float64(n)*0.1)
	}

	if anyTerm(text, lex.sectorMarkers) {
		score += 0.15
	}
	if anyTerm(text, marketSizeWords) {
		score += 0.1
	}

	return clamp01(score)
}

func velocity(item model.NewsItem, text, category string) float64 {
	score := 0.0

	if volatileCategories[category] {
		score += 0.25
	}

	switch {
	case item.Credibility >= 8:
		score += 0.25
	case item.Credibility >= 7:
		score += 0.2
	case item.Credibility >= 6:
		score += 0.15
	}

	// Подтверждения: каждый независимый источник сверх первого
	if !item.IsUnique() && item.ConfirmationCount > 1 {
		score += math.Min(0.3, float64(item.ConfirmationCount-1)*0.1)
	}

	if !item.PublishedAt.IsZero() {
		if h := item.PublishedAt.UTC().Hour(); h >= 8 && h <= 22 {
			score += 0.15
		}
	}

	if matchesSource(item.SourceName, premiumOutlets) {
		score += 0.1
	}

	if anyTerm(text, viralIndicators) {
		score += 0.1
	}

	if len(item.Tickers) > 0 {
		score += math.Min(0.2, float64(len(item.Tickers))*0.04)
	}

	return clamp01(score)
}

func breadth(text, category, lang string) float64 {
	lex := lexicons[lang]

	score, ok := breadthBase[category]
	if !ok {
		score = 0.1
	}

	score += math.Min(0.3, float64(len(assetClasses(text, lang)))*0.1)

	for _, sb := range sectorBonuses {
		if hasTerm(text, sb.term) {
			score += sb.bonus
			break
		}
	}

	switch n := len(regions(text, lex)); {
	case n >= 3:
		score += 0.3
	case n == 2:
		score += 0.2
	case n == 1:
		score += 0.1
	}

	return clamp01(score)
}

func sourceTrust(item model.NewsItem) float64 {
	score := item.NormalizedCredibility()

	if matchesSource(item.SourceName, trustedSources) {
		score = math.Min(1, score+0.1)
	}
	if matchesSource(item.SourceName, unreliableIndicators) {
		score = math.Max(0, score-0.2)
	}

	return clamp01(score)
}

func assetClasses(text, lang string) []string {
	lex := lexicons[lang]

	var classes []string
	if anyTerm(text, equityWords) {
		classes = append(classes, "equities")
	}
	if anyTerm(text, lex.currencies) {
		classes = append(classes, "currencies")
	}
	if anyTerm(text, lex.commodities) {
		classes = append(classes, "commodities")
	}
	if anyTerm(text, lex.bonds) {
		classes = append(classes, "fixed_income")
	}
	if anyTerm(text, lex.crypto) {
		classes = append(classes, "crypto")
	}
	return classes
}

func regions(text string, lex langLexicon) []string {
	var found []string
	for _, region := range regionOrder {
		if anyTerm(text, lex.regions[region]) {
			found = append(found, region)
		}
	}
	return found
}

var sourceKeyReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

// Название источника приводим к виду reuters, financial_times, yahoo_finance
func sourceKey(name string) string {
	return sourceKeyReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func matchesSource(name string, list []string) bool {
	key := sourceKey(name)
	return lo.ContainsBy(list, func(s string) bool {
		return strings.Contains(key, sourceKey(s))
	})
}

func maxPercent(text, lang string) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, m := range percentPattern.FindAllStringSubmatch(text, -1) {
		if v, ok := parseNumber(m[1], lang); ok && (!found || v > best) {
			best, found = v, true
		}
	}
	return best, found
}

// Наибольшие суммы отдельно в триллионах и миллиардах
func maxMoney(text, lang string) (trillions, billions float64) {
	for _, m := range moneyPattern.FindAllStringSubmatch(text, -1) {
		v, ok := parseNumber(m[1], lang)
		if !ok {
			continue
		}

		switch m[2] {
		case "трлн", "trillion", "tn":
			trillions = math.Max(trillions, v)
		default:
			billions = math.Max(billions, v)
		}
	}
	return trillions, billions
}

// В русском тексте запятая десятичная, в английском разделяет тысячи
func parseNumber(s, lang string) (float64, bool) {
	if lang == "ru" {
		s = strings.ReplaceAll(s, ",", ".")
		if strings.Count(s, ".") > 1 {
			return 0, false
		}
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
