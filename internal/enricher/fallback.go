package enricher

// Заготовки на случай, когда генератор недоступен
const (
	headlineFallback      = "Важное событие на рынке"
	whyNowFallback        = "Важное событие на финансовых рынках, требующее внимания инвесторов"
	draftHeadlineFallback = "Важное событие на финансовых рынках"
	leadFallback          = "Произошло значимое событие, которое привлекло внимание участников рынка"
	quoteFallback         = "Это значимое развитие событий, которое может повлиять на рыночные настроения"
)

var defaultBullets = []string{
	"Потенциальное влияние на волатильность рынка",
	"Реакция регуляторов и участников рынка",
	"Возможные последствия для смежных секторов",
}
