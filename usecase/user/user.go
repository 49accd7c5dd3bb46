package user

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/usecase/notify"
)

// ErrBadFormat is returned for an /add_user payload that is not "id|ФИО|Отдел".
var ErrBadFormat = domain.NewError(domain.ErrCodeInvalid, "expected id|full name|department")

// ConversationResetter drops the dialogue of an actor who lost access.
type ConversationResetter interface {
	Reset(ctx context.Context, actorID int64) error
}

type UseCase struct {
	users       repository.UserRepository
	tasks       repository.TaskRepository
	audit       repository.AuditRepository
	tx          repository.Transactor
	notifier    *notify.Dispatcher
	resetter    ConversationResetter
	departments []string
	validate    *validator.Validate
	now         func() time.Time
	logger      *zap.Logger
}

func New(store *repository.Store, notifier *notify.Dispatcher, resetter ConversationResetter, departments []string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:       store.Users,
		tasks:       store.Tasks,
		audit:       store.Audit,
		tx:          store.Tx,
		notifier:    notifier,
		resetter:    resetter,
		departments: departments,
		validate:    validator.New(),
		now:         time.Now,
		logger:      logger,
	}
}

// Departments lists the accepted department names.
func (uc *UseCase) Departments() []string {
	return slices.Clone(uc.departments)
}

// AddEmployee creates or refreshes an employee from "id|ФИО|Отдел" and re-activates it.
func (uc *UseCase) AddEmployee(ctx context.Context, adminID int64, payload string) (*domain.User, notify.Result, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, notify.Result{}, err
	}
	candidate, err := parsePayload(payload)
	if err != nil {
		return nil, notify.Result{}, err
	}
	if err := uc.validate.Struct(candidate); err != nil {
		return nil, notify.Result{}, domain.WrapError(domain.ErrCodeInvalid, "invalid employee", err)
	}
	if !slices.Contains(uc.departments, candidate.Department) {
		return nil, notify.Result{}, domain.ErrUnknownDepartment
	}

	var saved *domain.User
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		saved, err = uc.users.UpsertEmployee(ctx, candidate.ID, candidate.FullName, candidate.Department)
		if err != nil {
			return err
		}
		return uc.audit.Append(ctx, userAudit(adminID, domain.AuditAddUser, saved, uc.now()))
	})
	if err != nil {
		return nil, notify.Result{}, err
	}
	uc.logger.Info("employee added", zap.Int64("user_id", saved.ID), zap.String("department", saved.Department))

	return saved, uc.notifier.UserAdded(ctx, saved), nil
}

// SetActive toggles employee access. Deactivation also drops the employee's dialogue.
func (uc *UseCase) SetActive(ctx context.Context, adminID, targetID int64, active bool) (*domain.User, notify.Result, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, notify.Result{}, err
	}
	target, err := uc.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, notify.Result{}, err
	}
	if target.IsAdmin() {
		return nil, notify.Result{}, domain.ErrRoleImmutable
	}

	action := domain.AuditActivateUser
	if !active {
		action = domain.AuditDeactivateUser
	}
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.users.SetActive(ctx, target.ID, active); err != nil {
			return err
		}
		return uc.audit.Append(ctx, userAudit(adminID, action, target, uc.now()))
	})
	if err != nil {
		return nil, notify.Result{}, err
	}
	target.IsActive = active

	if !active && uc.resetter != nil {
		if err := uc.resetter.Reset(ctx, target.ID); err != nil {
			uc.logger.Warn("failed to drop conversation of deactivated employee", zap.Int64("user_id", target.ID), zap.Error(err))
		}
	}
	uc.logger.Info("employee access changed", zap.Int64("user_id", target.ID), zap.Bool("active", active))

	if active {
		return target, uc.notifier.UserActivated(ctx, target), nil
	}
	return target, uc.notifier.UserDeactivated(ctx, target), nil
}

// Card loads an employee with task counters.
func (uc *UseCase) Card(ctx context.Context, adminID, targetID int64) (*domain.User, domain.EmployeeStats, error) {
	var stats domain.EmployeeStats
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, stats, err
	}
	target, err := uc.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, stats, err
	}
	if target.Role != domain.RoleEmployee {
		return nil, stats, domain.ErrUserNotFound
	}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, statuses ...domain.Status) {
		g.Go(func() error {
			n, err := uc.tasks.Count(gctx, repository.TaskFilter{OwnerID: target.ID, Statuses: statuses})
			*dst = n
			return err
		})
	}
	count(&stats.Total)
	count(&stats.Active, domain.ActiveStatuses...)
	count(&stats.OnReview, domain.StatusOnReview)
	count(&stats.Done, domain.StatusDone)
	if err := g.Wait(); err != nil {
		return nil, stats, fmt.Errorf("count employee tasks: %w", err)
	}
	return target, stats, nil
}

func (uc *UseCase) ListEmployees(ctx context.Context, adminID int64, activeOnly bool) ([]domain.User, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return uc.users.ListEmployees(ctx, activeOnly)
}

// Whoami returns the actor as stored, whatever its access state.
func (uc *UseCase) Whoami(ctx context.Context, actorID int64) (*domain.User, error) {
	return uc.users.GetByID(ctx, actorID)
}

func (uc *UseCase) requireAdmin(ctx context.Context, actorID int64) error {
	actor, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrAdminOnly
		}
		return err
	}
	if !actor.IsAdmin() {
		return domain.ErrAdminOnly
	}
	return nil
}

func parsePayload(payload string) (*domain.User, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return nil, ErrBadFormat
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrBadFormat
	}
	return &domain.User{
		ID:         id,
		FullName:   strings.TrimSpace(parts[1]),
		Department: strings.TrimSpace(parts[2]),
		Role:       domain.RoleEmployee,
		IsActive:   true,
	}, nil
}

func userAudit(actorID int64, action string, u *domain.User, at time.Time) *domain.AuditEntry {
	return &domain.AuditEntry{
		ActorID:   actorID,
		Action:    action,
		Details:   fmt.Sprintf("%d|%s|%s", u.ID, u.FullName, u.Department),
		CreatedAt: at,
	}
}
