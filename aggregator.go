package main

import (
	"sync"
	"time"
)

// MediaGroupAggregator собирает серию одиночных событий одного медиа-альбома
// в один батч. Платформа не сигналит "это последняя часть", поэтому батч
// закрывается по тихому периоду: таймер взводится на первой части, остальные
// части только дописываются и вниз по одной не проходят.
type MediaGroupAggregator[T any] struct {
	mu     sync.Mutex
	quiet  time.Duration
	groups map[string][]T
	flush  func(key string, parts []T)
}

func NewMediaGroupAggregator[T any](quiet time.Duration, flush func(key string, parts []T)) *MediaGroupAggregator[T] {
	if quiet <= 0 {
		quiet = 600 * time.Millisecond
	}
	return &MediaGroupAggregator[T]{
		quiet:  quiet,
		groups: make(map[string][]T),
		flush:  flush,
	}
}

// Add добавляет часть альбома key. Создание, дозапись и слив буфера идут под
// одним мьютексом: часть, пришедшая после слива, всегда видит отсутствие
// буфера и начинает новый — дозаписи в уже слитый буфер не бывает.
func (a *MediaGroupAggregator[T]) Add(key string, part T) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.groups[key]; ok {
		a.groups[key] = append(a.groups[key], part)
		return
	}
	a.groups[key] = []T{part}
	time.AfterFunc(a.quiet, func() { a.drain(key) })
}

// drain атомарно забирает буфер и отдаёт части вниз в порядке прихода.
// Сам вызов flush идёт уже вне блокировки.
func (a *MediaGroupAggregator[T]) drain(key string) {
	a.mu.Lock()
	parts, ok := a.groups[key]
	delete(a.groups, key)
	a.mu.Unlock()

	if ok && a.flush != nil {
		a.flush(key, parts)
	}
}
