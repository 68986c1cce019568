package chat

const (
	MsgAIError   = "ai_error"
	MsgFillError = "fill_error"
	MsgNotFound  = "not_found"
	MsgGrade     = "grade"
)

var messages = map[Language]map[string]string{
	LangTajik: {
		MsgAIError:   "Хатогӣ ҳангоми пайвастшавӣ.",
		MsgFillError: "Лутфан ҳамаи майдонҳоро пур кунед.",
		MsgNotFound:  "Ёфт нашуд.",
		MsgGrade:     "Синф",

		string(ActLessonPlan): "Нақшаи дарс",
		string(ActQuiz):       "Тест (Саволҳо)",
		string(ActActivities): "Фаъолиятҳо",
		string(ActExplain):    "Фаҳмондан",
		string(ActExamples):   "Мисолҳо",
		string(ActSummary):    "Хулоса",
	},
	LangRussian: {
		MsgAIError:   "Ошибка соединения.",
		MsgFillError: "Заполните все поля.",
		MsgNotFound:  "Не найдено.",
		MsgGrade:     "Класс",

		string(ActLessonPlan): "План урока",
		string(ActQuiz):       "Тест",
		string(ActActivities): "Задания",
		string(ActExplain):    "Объяснить",
		string(ActExamples):   "Примеры",
		string(ActSummary):    "Итог",
	},
}

func lookup(lang Language, key string) (string, bool) {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s, true
		}
	}
	return "", false
}

// T returns the localized message for key, falling back to Tajik and then to the key itself.
func T(lang Language, key string) string {
	if s, ok := lookup(lang, key); ok {
		return s
	}
	if s, ok := lookup(LangTajik, key); ok {
		return s
	}
	return key
}

// languageNames are the names of the reply languages as given to the model.
var languageNames = map[Language]string{
	LangTajik:   "Tajik (Cyrillic)",
	LangRussian: "Russian",
}
