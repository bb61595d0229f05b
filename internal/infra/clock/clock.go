package clock

import "time"

// Real возвращает текущее время в UTC.
type Real struct{}

// Now реализует domain.Clock.
func (Real) Now() time.Time { return time.Now().UTC() }
