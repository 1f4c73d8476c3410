package main

// Platform идентифицирует одну из двух связанных платформ.
type Platform string

const (
	PlatformTelegram Platform = "tg"
	PlatformMax      Platform = "max"
)

// Other возвращает противоположную платформу.
func (p Platform) Other() Platform {
	if p == PlatformTelegram {
		return PlatformMax
	}
	return PlatformTelegram
}

// Candidate — предложенный кросс-пост, ожидающий решения модератора.
// После регистрации в PendingRegistry не мутируется: решение исполняется
// над ним, а не через него.
type Candidate struct {
	Token  string
	Origin Platform
	// Source — платформенные ссылки на оригинальный пост (сообщения канала
	// в TG, созданное сообщение в MAX). Workflow их не интерпретирует,
	// только владеющий адаптер.
	Source any
}

// Photo — одно вложение поста: либо сырые байты (Telegram скачивает файл),
// либо ссылка на CDN (MAX отдаёт URL вложения). Заполнено ровно одно поле.
type Photo struct {
	Data []byte
	URL  string
}

// Payload — содержимое поста, определённое один раз на границе fetch.
// Пустой список фото означает чисто текстовый пост.
type Payload struct {
	Caption string
	Photos  []Photo
}

// TextOnly сообщает, что публиковать нужно только текст.
func (p Payload) TextOnly() bool {
	return len(p.Photos) == 0
}

// Verdict — действие модератора над кандидатом.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictIgnore  Verdict = "ignore"
)

// Decision — разобранное событие нажатия кнопки. Нигде не сохраняется.
type Decision struct {
	Token       string
	Verdict     Verdict
	ModeratorID int64
}
