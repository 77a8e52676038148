package port

import "context"

// LanguageModel интерфейс генератора текстовых рекомендаций
type LanguageModel interface {
	// Generate возвращает ответ модели; image может быть nil
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
}
