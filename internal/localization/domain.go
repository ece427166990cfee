// Package localization manages translation keys for the storefront
// languages.
package localization

// CategoryImported is assigned to keys created by an import.
const CategoryImported = "imported"

// CategoryAll disables the category filter of Search.
const CategoryAll = "all"

// Key is one translatable string.
type Key struct {
	Key          string            `json:"key" yaml:"key"`
	Translations map[string]string `json:"translations" yaml:"translations"`
	Category     string            `json:"category,omitempty" yaml:"category"`
	Description  string            `json:"description,omitempty" yaml:"description"`
}

// Translation returns the text for lang, or "" when missing.
func (k Key) Translation(lang string) string {
	return k.Translations[lang]
}

// KeyPatch changes a key. Nil fields keep their value; a non-nil
// Translations map replaces all translations.
type KeyPatch struct {
	Translations map[string]string
	Category     *string
	Description  *string
}

// LanguageStats counts translations of one language.
type LanguageStats struct {
	Total    int `json:"total"`
	Missing  int `json:"missing"`
	Complete int `json:"complete"`
}

// Percent is the completed share in whole percent.
func (s LanguageStats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Complete * 100 / s.Total
}

// Stats summarises translation coverage.
type Stats struct {
	TotalKeys int                      `json:"totalKeys"`
	Languages map[string]LanguageStats `json:"languages"`
}

// ImportResult counts the keys touched by an import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func cloneKey(k Key) Key {
	translations := make(map[string]string, len(k.Translations))
	for lang, text := range k.Translations {
		translations[lang] = text
	}
	k.Translations = translations
	return k
}
