package services

import (
	"context"
	"slices"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

// Action is a mutating operation subject to authorization.
type Action string

const (
	ActionCreate         Action = "submission.create"
	ActionUpdate         Action = "submission.update"
	ActionStartReview    Action = "submission.start_review"
	ActionApprove        Action = "submission.approve"
	ActionReject         Action = "submission.reject"
	ActionReturn         Action = "submission.return"
	ActionResubmit       Action = "submission.resubmit"
	ActionAddDelay       Action = "delay.add"
	ActionEditChecklist  Action = "checklist.edit"
	ActionCheckChecklist Action = "checklist.check"
)

var operationActions = map[models.Operation]Action{
	models.OperationStartReview: ActionStartReview,
	models.OperationApprove:     ActionApprove,
	models.OperationReject:      ActionReject,
	models.OperationReturn:      ActionReturn,
	models.OperationResubmit:    ActionResubmit,
}

// Authorizer is consulted before every mutating operation. Its error is
// returned to the caller unchanged.
type Authorizer interface {
	Authorize(ctx context.Context, actor models.Actor, action Action) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, actor models.Actor, action Action) error

func (f AuthorizerFunc) Authorize(ctx context.Context, actor models.Actor, action Action) error {
	return f(ctx, actor, action)
}

// RoleAuthorizer grants actions by role.
type RoleAuthorizer struct {
	grants map[models.Role][]Action
}

// NewRoleAuthorizer returns the default role grants: operators register and
// correct submissions, analysts review, managers and admins may do anything.
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{
		grants: map[models.Role][]Action{
			models.RoleOperator: {
				ActionCreate, ActionUpdate, ActionResubmit, ActionAddDelay, ActionEditChecklist, ActionCheckChecklist,
			},
			models.RoleAnalyst: {
				ActionUpdate, ActionStartReview, ActionApprove, ActionReject, ActionReturn,
				ActionAddDelay, ActionEditChecklist, ActionCheckChecklist,
			},
		},
	}
}

func (a *RoleAuthorizer) Authorize(_ context.Context, actor models.Actor, action Action) error {
	if actor.ID == "" {
		return &AuthorizationError{Role: actor.Role, Operation: string(action), Reason: "unidentified actor"}
	}

	switch actor.Role {
	case models.RoleManager, models.RoleAdmin:
		return nil
	}

	if slices.Contains(a.grants[actor.Role], action) {
		return nil
	}

	return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: string(action)}
}
