// Package tz переводит локальные дату и время рождения в UTC по базе IANA.
package tz

import (
	"strings"
	"time"

	"github.com/admin/astro-natal/internal/domain"
)

// Resolve загружает пояс по идентификатору IANA ("Europe/Kyiv").
// Пустая строка и "Local" не принимаются: они зависят от машины, а не от места рождения.
func Resolve(identifier string) (*time.Location, error) {
	id := strings.TrimSpace(identifier)
	if id == "" || id == "Local" {
		return nil, &domain.UnknownTimezoneError{Identifier: identifier}
	}

	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, &domain.UnknownTimezoneError{Identifier: identifier}
	}
	return loc, nil
}

// ToUTC интерпретирует дату и время в поясе loc и возвращает момент в UTC.
// Смещение берётся для этой календарной даты, с учётом летнего времени.
// Несуществующее время при переходе на летнее сдвигается вперёд, неоднозначное
// при переходе обратно - берётся первое вхождение (поведение time.Date).
func ToUTC(date domain.LocalDate, clock domain.LocalTime, loc *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, 0, 0, loc).UTC()
}

// BirthInstant Resolve + ToUTC для данных рождения
func BirthInstant(in domain.BirthInput) (time.Time, error) {
	loc, err := Resolve(in.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return ToUTC(in.Date, in.Time, loc), nil
}
