package summary

import (
	"context"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"github.com/tomakado/containers/set"
)

// Answer срабатывает, если в тексте запроса есть хотя бы одно из слов
type Answer struct {
	Keywords []string
	Text     string
}

// Section обслуживает один вид запроса. Вид определяется по инструкции,
// то есть по части запроса до первого двоеточия
type Section struct {
	Triggers []string
	Answers  []Answer
	Default  string
}

// RuleTable генератор без внешних сервисов, разделы и ответы проверяются
// сверху вниз, первое совпадение побеждает
type RuleTable struct {
	Sections []Section
	Default  string
}

func (t RuleTable) Generate(_ context.Context, prompt string, maxLength int) (string, error) {
	instruction, body, _ := strings.Cut(strings.ToLower(prompt), ":")

	words := set.New(strings.FieldsFunc(body, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})...)

	for _, section := range t.Sections {
		if !lo.ContainsBy(section.Triggers, func(tr string) bool { return strings.Contains(instruction, tr) }) {
			continue
		}

		for _, answer := range section.Answers {
			if lo.ContainsBy(answer.Keywords, func(kw string) bool {
				return words.Contains(kw) || (len([]rune(kw)) > 4 && strings.Contains(body, kw))
			}) {
				return clip(answer.Text, maxLength), nil
			}
		}
		return clip(section.Default, maxLength), nil
	}

	return clip(t.Default, maxLength), nil
}

// DefaultRuleTable набор готовых формулировок для финансовых новостей
func DefaultRuleTable() RuleTable {
	return RuleTable{
		Sections: []Section{
			{
				Triggers: []string{"почему", "важно", "why"},
				Answers: []Answer{
					{
						Keywords: []string{"банкротство", "банк"},
						Text:     "Банкротство крупного банка создает системные риски для финансового сектора и может спровоцировать панику среди вкладчиков.",
					},
					{
						Keywords: []string{"рубль", "доллар"},
						Text:     "Резкие колебания валютных курсов влияют на инфляцию, импорт и экономическую стабильность страны.",
					},
					{
						Keywords: []string{"санкции"},
						Text:     "Новые санкции меняют условия ведения бизнеса и требуют пересмотра стратегий компаний.",
					},
					{
						Keywords: []string{"биткоин"},
						Text:     "Волатильность криптовалют влияет на настроения на всех рисковых активах и может сигнализировать о смене трендов.",
					},
				},
				Default: "Данное событие может существенно повлиять на финансовые рынки и требует пристального внимания инвесторов.",
			},
			{
				Triggers: []string{"заголовок", "headline"},
				Answers: []Answer{
					{Keywords: []string{"банкротство"}, Text: "Банкротство крупного российского банка шокировало рынки"},
					{Keywords: []string{"биткоин"}, Text: "Резкое падение биткоина вызвало распродажи на криптовалютном рынке"},
					{Keywords: []string{"рубль"}, Text: "Рубль достиг новых минимумов на фоне геополитической напряженности"},
				},
				Default: "Важное событие на финансовых рынках",
			},
			{
				Triggers: []string{"черновик", "анализ", "лид"},
				Answers: []Answer{
					{
						Keywords: []string{"банкротство"},
						Text:     "Ситуация с банкротством развивается стремительно. Регулятор принимает экстренные меры для стабилизации ситуации. Вкладчики могут рассчитывать на выплаты в рамках системы страхования депозитов.",
					},
					{
						Keywords: []string{"биткоин"},
						Text:     "Падение биткоина связано с ужесточением регулятивной политики и оттоком капитала из рисковых активов. Аналитики прогнозируют дальнейшую волатильность на криптовалютном рынке.",
					},
				},
				Default: "Рынок демонстрирует повышенную чувствительность к новостному фону. Инвесторы занимают выжидательную позицию в ожидании дальнейших событий.",
			},
			{
				Triggers: []string{"цитат", "quote"},
				Default:  "Это значимое развитие событий, которое может повлиять на рыночные настроения.",
			},
		},
		Default: "Краткий анализ темы.",
	}
}
