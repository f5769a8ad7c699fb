// Package lifecycle описывает машину состояний тендера.
//
// Функции чистые: текущий статус и команда дают следующий статус или
// ошибку перехода. Уведомления отправляет вызывающий сервис.
package lifecycle

import (
	"fmt"

	"github.com/senyabanana/licitaciones-service/internal/models"
)

// Command - команда жизненного цикла тендера.
type Command string

const (
	CommandCreate   Command = "create"
	CommandClose    Command = "close"
	CommandAward    Command = "award"
	CommandFinalize Command = "finalize"
	CommandEdit     Command = "edit"
)

// TransitionError - команда недопустима из текущего статуса.
type TransitionError struct {
	From    models.TenderStatus
	To      models.TenderStatus
	Command Command
	Allowed []models.TenderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s tender: current status %s, attempted %s, allowed from %v",
		e.Command, e.From, e.To, e.Allowed)
}

// targets - в какой статус переводит команда.
var targets = map[Command]models.TenderStatus{
	CommandClose:    models.EvaluationTender,
	CommandAward:    models.AwardedTender,
	CommandFinalize: models.ClosedTender,
}

// allowedFrom - из каких статусов допустима команда.
var allowedFrom = map[Command][]models.TenderStatus{
	CommandClose:    {models.PublishedTender},
	CommandAward:    {models.EvaluationTender},
	CommandFinalize: {models.AwardedTender},
	CommandEdit:     {models.PublishedTender, models.EvaluationTender},
}

// Create возвращает начальный статус тендера. Статус из запроса не учитывается.
func Create() models.TenderStatus {
	return models.PublishedTender
}

// Close закрывает прием предложений: Published -> EnEvaluation.
func Close(from models.TenderStatus) (models.TenderStatus, error) {
	return Apply(from, CommandClose)
}

// Award фиксирует победителя: EnEvaluation -> Awarded.
func Award(from models.TenderStatus) (models.TenderStatus, error) {
	return Apply(from, CommandAward)
}

// Finalize завершает тендер: Awarded -> Closed.
func Finalize(from models.TenderStatus) (models.TenderStatus, error) {
	return Apply(from, CommandFinalize)
}

// CanEdit сообщает, можно ли менять тендер и заменять его критерии.
func CanEdit(status models.TenderStatus) error {
	_, err := Apply(status, CommandEdit)
	return err
}

// Apply выполняет команду над статусом.
func Apply(from models.TenderStatus, cmd Command) (models.TenderStatus, error) {
	to, ok := targets[cmd]
	if !ok {
		to = from
	}
	if !from.Valid() || !isAllowed(from, cmd) {
		return from, &TransitionError{From: from, To: to, Command: cmd, Allowed: allowedFrom[cmd]}
	}
	return to, nil
}

func isAllowed(from models.TenderStatus, cmd Command) bool {
	for _, s := range allowedFrom[cmd] {
		if s == from {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет переходов.
func IsTerminal(s models.TenderStatus) bool {
	switch s {
	case models.ClosedTender, models.CancelledTender:
		return true
	default:
		return false
	}
}

// AcceptsBids сообщает, принимает ли тендер предложения в данном статусе.
// Прием в EnEvaluation управляется политикой allowDuringEvaluation.
func AcceptsBids(s models.TenderStatus, allowDuringEvaluation bool) bool {
	switch s {
	case models.PublishedTender:
		return true
	case models.EvaluationTender:
		return allowDuringEvaluation
	case models.AwardedTender, models.ClosedTender, models.CancelledTender:
		return false
	default:
		return false
	}
}
