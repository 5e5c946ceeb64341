package clock

import (
	"sync"
	"time"
)

// Monotonic выдает строго возрастающие временные метки в UTC.
// Если системное время отстает от последней выданной метки (перевод часов,
// одинаковое значение при частых вызовах), метка сдвигается на 1ns вперед.
type Monotonic struct {
	last time.Time        // последняя выданная метка
	now  func() time.Time // источник системного времени
	mu   sync.Mutex       // мьютекс для потокобезопасности
}

// New создает часы на основе time.Now
func New() *Monotonic {
	return &Monotonic{now: time.Now}
}

// NewWithSource создает часы с заданным источником времени.
// Используется для тестирования.
func NewWithSource(now func() time.Time) *Monotonic {
	return &Monotonic{now: now}
}

// Tick возвращает следующую метку: max(now, last+1ns).
// Используется при создании нового локального события.
func (c *Monotonic) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Observe поднимает нижнюю границу часов до наблюденной метки.
// Используется при старте, чтобы новые записи не оказались раньше сохраненных.
func (c *Monotonic) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t = t.UTC().Round(0)
	if t.After(c.last) {
		c.last = t
	}
}

// Last возвращает последнюю выданную или наблюденную метку
func (c *Monotonic) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

// Now возвращает системное время без сдвига и без изменения состояния
func (c *Monotonic) Now() time.Time {
	return c.now().UTC()
}
