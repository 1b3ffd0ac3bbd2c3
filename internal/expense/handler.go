package expense

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/attachment"
	"github.com/expenseflow/expense-approval/internal/transport"
	"github.com/expenseflow/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateDraft(actor internal.Actor, dto CreateExpenseDTO) (*Expense, error)
	GetExpense(actor internal.Actor, id int64) (*Expense, error)
	ListExpenses(actor internal.Actor, limit, offset int) ([]*Expense, error)
	ListOwnExpenses(actor internal.Actor, limit, offset int) ([]*Expense, error)
	EditDraft(actor internal.Actor, id int64, dto UpdateDraftDTO) (*Expense, error)
	DeleteDraft(actor internal.Actor, id int64) error
	Submit(actor internal.Actor, id int64, uploads []attachment.Upload) (*Expense, error)
	MarkReviewed(actor internal.Actor, id int64) (*Expense, error)
	ManagerReview(actor internal.Actor, id int64, dto ReviewDTO) (*Expense, error)
	OwnerReview(actor internal.Actor, id int64, dto ReviewDTO) (*Expense, error)
	MarkPendingPayment(actor internal.Actor, id int64) (*Expense, error)
	Pay(actor internal.Actor, id int64, dto PayDTO) (*Expense, error)
	Logs(actor internal.Actor, id int64) ([]*StatusLog, error)
	Ref(actor internal.Actor, id int64) (attachment.ExpenseRef, error)
}

// AttachmentAPI is the slice of the attachment service the expense routes use.
type AttachmentAPI interface {
	SaveBills(actor internal.Actor, ref attachment.ExpenseRef, uploads []attachment.Upload) error
	SavePaymentProof(actor internal.Actor, ref attachment.ExpenseRef, up attachment.Upload) (*attachment.ExpenseFile, error)
	ListForExpense(actor internal.Actor, ref attachment.ExpenseRef) ([]*attachment.ExpenseFile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	Attachments AttachmentAPI
}

func NewHandler(service ServiceAPI, attachments AttachmentAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
		Attachments: attachments,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.CreateDraft(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, exp)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	exp, err := h.Service.GetExpense(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := pagination(r)

	var (
		expenses []*Expense
		err      error
	)
	if r.URL.Query().Get("scope") == "own" {
		expenses, err = h.Service.ListOwnExpenses(actor, limit, offset)
	} else {
		expenses, err = h.Service.ListExpenses(actor, limit, offset)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto UpdateDraftDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.EditDraft(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.DeleteDraft(actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit accepts an optional multipart body carrying bill files; the files
// are stored before the status advances.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	uploads, closers, err := h.parseUploads(r, "bills")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer closeAll(closers)

	exp, err := h.Service.Submit(actor, id, uploads)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor internal.Actor, id int64) (*Expense, error) {
		return h.Service.MarkReviewed(actor, id)
	})
}

func (h *Handler) ManagerReview(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Service.ManagerReview)
}

func (h *Handler) OwnerReview(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Service.OwnerReview)
}

func (h *Handler) MarkPendingPayment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor internal.Actor, id int64) (*Expense, error) {
		return h.Service.MarkPendingPayment(actor, id)
	})
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto PayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.Pay(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	logs, err := h.Service.Logs(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	ref, err := h.Service.Ref(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	files, err := h.Attachments.ListForExpense(actor, ref)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// UploadBills attaches bill files to a draft ahead of submission.
func (h *Handler) UploadBills(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	uploads, closers, err := h.parseUploads(r, "bills")
	if err != nil || len(uploads) == 0 {
		h.WriteError(w, http.StatusBadRequest, "multipart body with at least one file is required")
		return
	}
	defer closeAll(closers)

	ref, err := h.Service.Ref(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Attachments.SaveBills(actor, ref, uploads); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UploadPaymentProof attaches accounts' disbursement evidence.
func (h *Handler) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	uploads, closers, err := h.parseUploads(r, "proof")
	if err != nil || len(uploads) != 1 {
		h.WriteError(w, http.StatusBadRequest, "multipart body with exactly one file is required")
		return
	}
	defer closeAll(closers)

	ref, err := h.Service.Ref(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	file, err := h.Attachments.SavePaymentProof(actor, ref, uploads[0])
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, file)
}

// GetCategories serves the fixed suggestion list for the category field.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": SuggestedCategories})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, fn func(internal.Actor, int64, ReviewDTO) (*Expense, error)) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto ReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := fn(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(internal.Actor, int64) (*Expense, error)) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	exp, err := fn(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) expenseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseUploads reads multipart files under field; a JSON body simply yields
// no uploads.
func (h *Handler) parseUploads(r *http.Request, field string) ([]attachment.Upload, []multipart.File, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		return nil, nil, nil
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, err
	}

	var uploads []attachment.Upload
	var closers []multipart.File
	for _, fh := range r.MultipartForm.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, f)
		uploads = append(uploads, attachment.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return uploads, closers, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		f.Close()
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
