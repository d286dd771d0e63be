package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clearspend/expense-approval/internal/transport"
	"github.com/clearspend/expense-approval/internal/user"
	"github.com/clearspend/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
)

type EngineAPI interface {
	SubmitExpense(ctx context.Context, expenseID, actingUserID int64) (*SubmitResult, error)
	Approve(ctx context.Context, approvalID, actingUserID int64, comments string) (*DecisionResult, error)
	Reject(ctx context.Context, approvalID, actingUserID int64, comments, reason string) (*DecisionResult, error)
	BulkApprove(ctx context.Context, approvalIDs []int64, actingUserID int64, comments string) *BulkResult
	BulkReject(ctx context.Context, approvalIDs []int64, actingUserID int64, comments, reason string) *BulkResult
	Delegate(ctx context.Context, approvalID, actingUserID, delegateUserID int64, reason string) (*Approval, error)
	PendingForApprover(ctx context.Context, approverID int64, limit, offset int) ([]*Approval, error)
	ApprovalHistory(ctx context.Context, expenseID int64) ([]*Approval, error)
}

type Handler struct {
	*transport.BaseHandler
	Engine EngineAPI
}

func NewHandler(engine EngineAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Engine:      engine,
	}
}

// SubmitExpense pushes a draft expense into its company's approval chain.
func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	result, err := h.Engine.SubmitExpense(r.Context(), expenseID, actor.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approvalID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid approval ID")
		return
	}

	var dto DecideDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	result, err := h.Engine.Approve(r.Context(), approvalID, actor.ID, dto.Comments)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approvalID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid approval ID")
		return
	}

	var dto RejectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Engine.Reject(r.Context(), approvalID, actor.ID, dto.Comments, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(ctx context.Context, dto BulkDecideDTO, actingUserID int64) *BulkResult {
		return h.Engine.BulkApprove(ctx, dto.ApprovalIDs, actingUserID, dto.Comments)
	})
}

func (h *Handler) BulkReject(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(ctx context.Context, dto BulkDecideDTO, actingUserID int64) *BulkResult {
		return h.Engine.BulkReject(ctx, dto.ApprovalIDs, actingUserID, dto.Comments, dto.Reason)
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, dto BulkDecideDTO, actingUserID int64) *BulkResult) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto BulkDecideDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result := decide(r.Context(), dto, actor.ID)
	// 207-style: the request succeeded even if individual items failed.
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Delegate(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approvalID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid approval ID")
		return
	}

	var dto DelegateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	approval, err := h.Engine.Delegate(r.Context(), approvalID, actor.ID, dto.DelegateUserID, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, approval)
}

// PendingApprovals is the authenticated approver's inbox.
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	approvals, err := h.Engine.PendingForApprover(r.Context(), actor.ID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"limit":     limit,
		"offset":    offset,
	})
}

// ApprovalHistory returns the full approval chain of an expense.
func (h *Handler) ApprovalHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	approvals, err := h.Engine.ApprovalHistory(r.Context(), expenseID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"approvals": approvals})
}

func (h *Handler) pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
