package port

import "image"

// Camera источник кадров
type Camera interface {
	// Read возвращает последний кадр или заглушку, никогда не блокирует
	Read() image.Image
}
