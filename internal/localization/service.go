package localization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/kliq/backoffice/internal/shared"
)

// DefaultLanguages are offered when no languages are configured.
var DefaultLanguages = []string{"en", "tr"}

// Service implements the translation key use-cases.
type Service struct {
	store     Store
	languages []string
	logger    *slog.Logger
}

// NewService constructs a Service offering languages. Invalid tags are
// rejected.
func NewService(store Store, languages []string, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	canonical := make([]string, 0, len(languages))
	for _, lang := range languages {
		code, err := CanonicalLanguage(lang)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(canonical, code) {
			canonical = append(canonical, code)
		}
	}
	return &Service{store: store, languages: canonical, logger: logger}, nil
}

// CanonicalLanguage validates a BCP 47 tag and returns its canonical form.
func CanonicalLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: language is required", shared.ErrValidation)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a language tag", shared.ErrValidation, code)
	}
	return tag.String(), nil
}

// Languages returns the configured languages in display order.
func (s *Service) Languages() []string {
	return slices.Clone(s.languages)
}

// All returns every key.
func (s *Service) All(ctx context.Context) ([]Key, error) {
	return s.store.All(ctx)
}

// Get fetches one key.
func (s *Service) Get(ctx context.Context, key string) (*Key, error) {
	return s.store.Get(ctx, strings.TrimSpace(key))
}

// Add creates a key. The key name is trimmed and must be unique.
func (s *Service) Add(ctx context.Context, k Key) error {
	k.Key = strings.TrimSpace(k.Key)
	if k.Key == "" {
		return fmt.Errorf("%w: key is required", shared.ErrValidation)
	}
	translations, err := normalizeTranslations(k.Translations)
	if err != nil {
		return err
	}
	k.Translations = translations
	k.Category = strings.TrimSpace(k.Category)
	k.Description = strings.TrimSpace(k.Description)
	if err := s.store.Insert(ctx, k); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return fmt.Errorf("key %q: %w", k.Key, shared.ErrAlreadyExists)
		}
		return err
	}
	s.logger.Info("localization key added", slog.String("key", k.Key))
	return nil
}

// Update applies patch to key. The key name never changes.
func (s *Service) Update(ctx context.Context, key string, patch KeyPatch) (*Key, error) {
	existing, err := s.store.Get(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	if patch.Translations != nil {
		translations, err := normalizeTranslations(patch.Translations)
		if err != nil {
			return nil, err
		}
		existing.Translations = translations
	}
	if patch.Category != nil {
		existing.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Description != nil {
		existing.Description = strings.TrimSpace(*patch.Description)
	}
	if err := s.store.Put(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a key.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, strings.TrimSpace(key))
}

// Search returns keys whose name, any translation, or description contains
// query case-insensitively, restricted to category unless it is empty or
// "all".
func (s *Service) Search(ctx context.Context, query, category string) ([]Key, error) {
	keys, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if category != "" && category != CategoryAll && k.Category != category {
			continue
		}
		if query != "" && !matchesQuery(k, query) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func matchesQuery(k Key, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(k.Key), lowerQuery) {
		return true
	}
	for _, text := range k.Translations {
		if strings.Contains(strings.ToLower(text), lowerQuery) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(k.Description), lowerQuery)
}

// Categories lists the distinct non-empty categories, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	keys, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if k.Category != "" && !slices.Contains(out, k.Category) {
			out = append(out, k.Category)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Export returns the non-empty translations of lang keyed by key name.
func (s *Service) Export(ctx context.Context, lang string) (map[string]string, error) {
	lang, err := CanonicalLanguage(lang)
	if err != nil {
		return nil, err
	}
	keys, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if text := k.Translations[lang]; text != "" {
			out[k.Key] = text
		}
	}
	return out, nil
}

// Import sets the lang translation of every entry. Unknown keys are created
// in the imported category.
func (s *Service) Import(ctx context.Context, lang string, translations map[string]string) (ImportResult, error) {
	lang, err := CanonicalLanguage(lang)
	if err != nil {
		return ImportResult{}, err
	}
	var result ImportResult
	for _, name := range slices.Sorted(maps.Keys(translations)) {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		text := translations[name]
		existing, err := s.store.Get(ctx, key)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			k := Key{Key: key, Translations: map[string]string{lang: text}, Category: CategoryImported}
			if err := s.store.Insert(ctx, k); err != nil {
				return result, fmt.Errorf("localization: import %s: %w", key, err)
			}
			result.Created++
		case err != nil:
			return result, err
		default:
			if existing.Translations == nil {
				existing.Translations = make(map[string]string)
			}
			existing.Translations[lang] = text
			if err := s.store.Put(ctx, *existing); err != nil {
				return result, fmt.Errorf("localization: import %s: %w", key, err)
			}
			result.Updated++
		}
	}
	s.logger.Info("localization import finished",
		slog.String("language", lang),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated))
	return result, nil
}

// Missing returns the keys without a lang translation.
func (s *Service) Missing(ctx context.Context, lang string) ([]Key, error) {
	lang, err := CanonicalLanguage(lang)
	if err != nil {
		return nil, err
	}
	keys, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Key, 0)
	for _, k := range keys {
		if k.Translations[lang] == "" {
			out = append(out, k)
		}
	}
	return out, nil
}

// Stats counts translations for the configured languages and every
// language present in the data.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.store.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	langs := slices.Clone(s.languages)
	for _, k := range keys {
		for lang := range k.Translations {
			if !slices.Contains(langs, lang) {
				langs = append(langs, lang)
			}
		}
	}
	stats := Stats{TotalKeys: len(keys), Languages: make(map[string]LanguageStats, len(langs))}
	for _, lang := range langs {
		complete := 0
		for _, k := range keys {
			if k.Translations[lang] != "" {
				complete++
			}
		}
		stats.Languages[lang] = LanguageStats{Total: len(keys), Complete: complete, Missing: len(keys) - complete}
	}
	return stats, nil
}

func normalizeTranslations(in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for lang, text := range in {
		code, err := CanonicalLanguage(lang)
		if err != nil {
			return nil, err
		}
		if text = strings.TrimSpace(text); text != "" {
			out[code] = text
		}
	}
	return out, nil
}
