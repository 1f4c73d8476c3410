package main

import (
	"context"
	"errors"
	"fmt"
)

// errNoContent — после fetch не осталось ни вложений, ни текста.
var errNoContent = errors.New("no media and no text")

// PublishError — платформа назначения отвергла публикацию.
type PublishError struct {
	Platform Platform
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Platform, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// FetchError — не удалось получить содержимое оригинального поста.
type FetchError struct {
	Platform Platform
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Platform, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PromptHandle указывает на prompt-сообщение конкретного модератора.
// Поля платформенно-специфичны: TG оперирует парой chat/message id,
// MAX — строковым mid.
type PromptHandle struct {
	ChatID    int64
	MessageID int
	Mid       string
}

// PlatformAdapter — весь контракт платформы, который нужен workflow.
// Реализуется по разу на платформу; workflow никогда не ветвится по
// "какая это платформа".
type PlatformAdapter interface {
	// Platform возвращает идентификатор платформы адаптера.
	Platform() Platform
	// Title — человекочитаемое имя платформы для текстов промптов.
	Title() string
	// FetchPayload достаёт содержимое оригинального поста по source-ссылке
	// кандидата. Недокачанное отдельное вложение — не ошибка: оно
	// пропускается с логом, остальные едут дальше.
	FetchPayload(ctx context.Context, source any) (Payload, error)
	// Publish публикует пост в настроенный канал и возвращает публичную
	// ссылку на него.
	Publish(ctx context.Context, p Payload) (string, error)
	// Notify показывает модератору оригинальный пост и prompt с кнопками
	// Approve/Ignore, несущими токен кандидата.
	Notify(ctx context.Context, moderatorID int64, promptText string, c *Candidate) (PromptHandle, error)
	// EditPrompt заменяет текст prompt-сообщения; непустой link добавляется
	// кнопкой-ссылкой на опубликованный пост.
	EditPrompt(ctx context.Context, h PromptHandle, text, link string) error
}
