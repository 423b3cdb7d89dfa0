// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrSessionNotFound — сессия редактирования не найдена или истекла.
	ErrSessionNotFound = errors.New("сессия редактирования не найдена или истекла")
	// ErrSessionLimit — достигнут лимит одновременных сессий.
	ErrSessionLimit = errors.New("достигнут лимит одновременных сессий редактирования")
	// ErrDirectoryUnavailable — транспортная ошибка Directory Service.
	ErrDirectoryUnavailable = errors.New("Directory Service недоступен")
)
