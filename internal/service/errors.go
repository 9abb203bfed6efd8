package service

import "errors"

var (
	// ErrSessionOpen - сессия подтверждения уже открыта для пользователя
	ErrSessionOpen = errors.New("confirmation session already open")
	// ErrNoSession - нет открытой сессии подтверждения
	ErrNoSession = errors.New("no open confirmation session")
	// ErrNoPositionFix - нет актуальной позиции, сессию открыть нельзя
	ErrNoPositionFix = errors.New("no current position fix available")
	// ErrNoReachableContacts - ни у одного контакта нет канала доставки
	ErrNoReachableContacts = errors.New("no emergency contacts with a reachable channel")
	// ErrDuplicateSubmission - сабмит подавлен защитой от дублей (не ошибка пользователя)
	ErrDuplicateSubmission = errors.New("duplicate submission suppressed")
	// ErrStatusTransition - недопустимый переход статуса инцидента
	ErrStatusTransition = errors.New("invalid incident status transition")
)
