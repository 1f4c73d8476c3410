package main

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// PendingRegistry — ограниченный реестр кандидатов, ожидающих решения.
// Вставка сверх ёмкости вытесняет самый старый по порядку вставки кандидат
// (FIFO). Токен потребляется ровно один раз: либо через Take, либо
// вытеснением — никогда обоими способами.
type PendingRegistry struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]*Candidate
}

func NewPendingRegistry(capacity int) *PendingRegistry {
	if capacity <= 0 {
		capacity = 100
	}
	return &PendingRegistry{
		capacity: capacity,
		items:    make(map[string]*Candidate, capacity),
	}
}

// newToken — 128 бит случайности, 32 hex-символа.
func newToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Put генерирует токен, регистрирует кандидата и возвращает токен. Если
// ёмкость превышена, самый старый кандидат удаляется и возвращается вторым
// значением — вызывающий решает, как логировать молчаливую потерю.
func (r *PendingRegistry) Put(c *Candidate) (token string, evicted *Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token = newToken()
	c.Token = token
	r.items[token] = c
	r.order = append(r.order, token)

	for len(r.items) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		if old, ok := r.items[oldest]; ok {
			delete(r.items, oldest)
			evicted = old
		}
	}
	return token, evicted
}

// Take атомарно находит и удаляет кандидата. Повторный вызов с тем же
// токеном всегда возвращает false — это единственная точка синхронизации
// против двойной обработки одного поста.
func (r *PendingRegistry) Take(token string) (*Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[token]
	if !ok {
		return nil, false
	}
	delete(r.items, token)
	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return c, true
}

// Len возвращает число ожидающих кандидатов.
func (r *PendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
