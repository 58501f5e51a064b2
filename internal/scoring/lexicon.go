package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Словари по языкам. Короткие термины (до трех символов) матчатся только целым словом
type langLexicon struct {
	crisis         []string
	majorCompanies []string
	currencies     []string
	commodities    []string
	indices        []string
	sectorMarkers  []string
	bonds          []string
	crypto         []string
	regions        map[string][]string
}

var lexicons = map[string]langLexicon{
	"ru": {
		crisis: []string{
			"кризис", "обвал", "крах", "банкротство", "дефолт", "коллапс", "паника",
			"катастрофа", "срочно", "экстренно", "чрезвычайный",
		},
		majorCompanies: []string{
			"сбербанк", "газпром", "роснефт", "лукойл", "втб", "норникель",
			"яндекс", "магнит", "x5", "мтс", "мегафон", "татнефт",
			"новатэк", "полиметалл", "металлоинвест", "евраз", "нлмк", "северсталь",
		},
		currencies: []string{
			"рубль", "доллар", "евро", "юань", "иена", "фунт", "франк",
			"usdrub", "eurrub", "usdeur", "gbpusd",
		},
		commodities: []string{
			"нефть", "газ", "золото", "серебро", "медь", "алюминий", "никель",
			"пшеница", "кукуруза", "соя", "brent", "wti",
		},
		indices:       []string{"ртс", "мосбиржа", "imoex", "rgbi", "micex"},
		sectorMarkers: []string{"банковский сектор", "нефтегазовый", "металлургия", "ритейл", "телеком"},
		bonds:         []string{"облигации", "долг", "займ", "доходность", "кредит"},
		crypto:        []string{"биткоин", "эфириум", "криптовалюта", "блокчейн"},
		regions: map[string][]string{
			"russia": {"россия", "россии", "российский", "рф"},
			"usa":    {"сша", "америка", "американский"},
			"china":  {"китай", "китайский"},
			"europe": {"европа", "европейский", "ес", "еврозона"},
		},
	},
	"en": {
		crisis: []string{
			"crisis", "crash", "collapse", "bankruptcy", "default", "panic",
			"emergency", "urgent", "breaking", "catastrophe", "meltdown",
		},
		majorCompanies: []string{
			"apple", "microsoft", "google", "amazon", "tesla", "nvidia",
			"meta", "netflix", "jpmorgan", "goldman sachs", "berkshire",
			"paypal", "salesforce", "adobe", "shopify", "zoom", "docusign",
		},
		currencies: []string{
			"dollar", "euro", "pound", "yen", "yuan", "ruble", "franc",
			"usd", "eur", "gbp", "jpy", "cny", "chf",
		},
		commodities: []string{
			"oil", "gas", "gold", "silver", "copper", "aluminum", "nickel",
			"wheat", "corn", "soybean", "brent", "wti", "crude",
		},
		indices: []string{
			"sp500", "s&p 500", "nasdaq", "dow", "ftse", "dax", "nikkei",
			"hang seng", "shanghai composite", "csi300",
		},
		sectorMarkers: []string{"banking sector", "oil gas", "mining", "retail", "telecom", "fintech"},
		bonds:         []string{"bonds", "debt", "yield", "credit", "treasury"},
		crypto:        []string{"bitcoin", "ethereum", "cryptocurrency", "blockchain", "crypto"},
		regions: map[string][]string{
			"usa":    {"usa", "u.s.", "america", "united states"},
			"china":  {"china", "chinese"},
			"europe": {"europe", "eu", "european", "eurozone"},
			"russia": {"russia", "russian"},
		},
	},
}

// Порядок регионов фиксирован, чтобы объяснения были детерминированы
var regionOrder = []string{"russia", "usa", "china", "europe"}

var (
	urgentMarkers = []string{"срочно", "breaking", "urgent", "экстренно", "немедленно"}

	firstEverMarkers = []string{
		"впервые", "first time", "никогда", "never", "с начала",
		"рекорд", "record", "исторический", "historic",
	}

	corporateEvents = []string{
		"слияние", "поглощение", "ipo", "делистинг", "банкротство",
		"merger", "acquisition", "bankruptcy", "spinoff", "layoffs",
	}

	regulatoryWords = []string{"запрет", "ban", "регулир", "regulat", "license", "лицензия"}

	marketSizeWords = []string{"капитализация", "market cap", "оборот", "volume", "торги"}

	viralIndicators = []string{"trending", "viral", "breaking", "alert", "срочно"}

	equityWords = []string{"акции", "shares", "stock", "equity"}

	premiumOutlets = []string{
		"reuters", "bloomberg", "financial_times", "wall_street_journal",
		"cnbc", "marketwatch", "yahoo_finance", "investing_com",
		"interfax", "ria", "tass", "vedomosti", "rbc",
	}

	trustedSources = append([]string{
		"central_bank", "federal_reserve", "ecb", "boe", "sec",
		"cbr.ru", "government", "kommersant",
	}, premiumOutlets...)

	unreliableIndicators = []string{"blog", "forum", "social", "rumor", "speculation"}
)

// Бонус за отраслевую лексику, берется первое совпадение
var sectorBonuses = []struct {
	term  string
	bonus float64
}{
	{"финансы", 0.2}, {"finance", 0.2},
	{"энергетика", 0.15}, {"energy", 0.15},
	{"технологии", 0.15}, {"tech", 0.15},
	{"промышленность", 0.1}, {"industrial", 0.1},
}

var volatileCategories = map[string]bool{
	"monetary policy": true,
	"banking":         true,
	"technology":      true,
	"automotive":      true,
	"energy":          true,
	"commodities":     true,
	"cryptocurrency":  true,
	"economic policy": true,
}

var materialityTiers = map[string]float64{
	"monetary policy": 0.3,
	"banking":         0.3,
	"economic policy": 0.3,
	"technology":      0.2,
	"energy":          0.2,
	"commodities":     0.2,
	"automotive":      0.2,
}

var breadthBase = map[string]float64{
	"monetary policy": 0.4,
	"economic policy": 0.4,
	"banking":         0.3,
	"energy":          0.3,
	"commodities":     0.3,
	"technology":      0.25,
	"cryptocurrency":  0.25,
	"automotive":      0.2,
	"media":           0.15,
	"aerospace":       0.15,
	"corporate":       0.1,
}

// hasTerm ищет термин в тексте. Термины до трех символов ("цб", "ecb", "рф")
// засчитываются только целым словом, иначе "рф" находится внутри "арфа"
func hasTerm(text, term string) bool {
	if utf8.RuneCountInString(term) > 3 {
		return strings.Contains(text, term)
	}

	for start := 0; start <= len(text)-len(term); {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)

		if wordBoundaryBefore(text, idx) && wordBoundaryAfter(text, end) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[idx:])
		start = idx + size
	}
	return false
}

func wordBoundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:idx])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func countTerms(text string, terms []string) int {
	return lo.CountBy(terms, func(term string) bool {
		return hasTerm(text, term)
	})
}

func anyTerm(text string, terms []string) bool {
	return lo.ContainsBy(terms, func(term string) bool {
		return hasTerm(text, term)
	})
}
