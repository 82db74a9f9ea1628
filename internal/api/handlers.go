/**
 * @description
 * HTTP handlers. The webhook and cron handlers are thin adapters over the
 * reconciliation engine and the maintenance jobs; the admin handlers expose the
 * admin service as JSON.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxShortcutBody = 64 << 10
	defaultPageSize = 50
	maxPageSize     = 200
)

// Reconciler is the reconciliation engine as seen by the HTTP layer.
type Reconciler interface {
	ReconcileSMS(ctx context.Context, text string) (*app.SettlementResult, error)
	ReconcileAmount(ctx context.Context, amount int64, method app.Method) (*app.SettlementResult, error)
}

// Maintenance runs the periodic cleanup jobs.
type Maintenance interface {
	RunMaintenance(ctx context.Context) (app.MaintenanceResult, error)
}

// AdminService is the platform administration surface.
type AdminService interface {
	Stats(ctx context.Context) (*domain.PlatformStats, error)
	ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error)
	OwnerDetail(ctx context.Context, ownerID uuid.UUID) (*app.OwnerDetail, error)
	BanOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error)
	UnbanOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error)
	ListChannels(ctx context.Context, limit, offset int) ([]domain.ManagedChannel, error)
	InspectChannel(ctx context.Context, channelRef uuid.UUID) (*domain.ManagedChannel, string, error)
	ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	ListReports(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error)
	ResolveReport(ctx context.Context, id uuid.UUID) (*domain.Report, error)
}

// Handler holds the services the handlers interact with.
type Handler struct {
	reconciler  Reconciler
	maintenance Maintenance
	admin       AdminService
}

func NewHandler(reconciler Reconciler, maintenance Maintenance, admin AdminService) *Handler {
	return &Handler{reconciler: reconciler, maintenance: maintenance, admin: admin}
}

// ReconcileRequest is the body of POST /api/super/reconcile.
type ReconcileRequest struct {
	Amount string `json:"amount" validate:"required,max=32"`
}

// ReconcileResponse describes a settlement triggered over HTTP.
type ReconcileResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	ExpiresAt   time.Time           `json:"subscription_expires_at"`
	InviteLink  string              `json:"invite_link,omitempty"`
}

func (h *Handler) handleShortcut(w http.ResponseWriter, r *http.Request) {
	// An authenticated caller always gets 200 so the automation never retries.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxShortcutBody))
	if err != nil {
		log.Printf("level=warn component=api endpoint=shortcut outcome=ignored msg=\"could not read body\" err=%v", err)
		writeShortcutOK(w)
		return
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		log.Println("level=info component=api endpoint=shortcut outcome=ignored reason=\"empty body\"")
		writeShortcutOK(w)
		return
	}

	// A consumed intent must be settled even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())
	result, err := h.reconciler.ReconcileSMS(ctx, text)
	switch {
	case err == nil:
		log.Printf("level=info component=api endpoint=shortcut outcome=settled transaction_id=%s", result.Transaction.ID)
	case errors.Is(err, app.ErrNoAmountInSignal), errors.Is(err, app.ErrNoMatchingIntent):
		log.Printf("level=info component=api endpoint=shortcut outcome=ignored reason=%q", err.Error())
	default:
		log.Printf("level=error component=api endpoint=shortcut outcome=failed err=%v", err)
	}
	writeShortcutOK(w)
}

func writeShortcutOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) handleCron(w http.ResponseWriter, r *http.Request) {
	result, err := h.maintenance.RunMaintenance(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=cron msg=\"maintenance run failed\" err=%v", err)
		http.Error(w, "Cron job failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK. Expired Subs Removed: %d. Old Banned Accounts Deleted: %d.", result.ExpiredSubscriptions, result.BannedOwnersPurged)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		respondWithError(w, "stats", err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListOwners(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	owners, err := h.admin.ListOwners(r.Context(), limit, offset)
	if err != nil {
		respondWithError(w, "list_owners", err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(owners))
}

func (h *Handler) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "ownerID")
	if !ok {
		return
	}
	detail, err := h.admin.OwnerDetail(r.Context(), id)
	if err != nil {
		respondWithError(w, "get_owner", err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleBanOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "ownerID")
	if !ok {
		return
	}
	owner, removed, err := h.admin.BanOwner(r.Context(), id)
	if err != nil {
		respondWithError(w, "ban_owner", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"owner":            owner,
		"channels_removed": len(removed),
	})
}

func (h *Handler) handleUnbanOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "ownerID")
	if !ok {
		return
	}
	owner, err := h.admin.UnbanOwnerByID(r.Context(), id)
	if err != nil {
		respondWithError(w, "unban_owner", err)
		return
	}
	respondWithJSON(w, http.StatusOK, owner)
}

func (h *Handler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	channels, err := h.admin.ListChannels(r.Context(), limit, offset)
	if err != nil {
		respondWithError(w, "list_channels", err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(channels))
}

func (h *Handler) handleInspectChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "channelID")
	if !ok {
		return
	}
	channel, link, err := h.admin.InspectChannel(r.Context(), id)
	if err != nil {
		respondWithError(w, "inspect_channel", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"channel":     channel,
		"invite_link": link,
	})
}

func (h *Handler) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	status := domain.WithdrawalStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.WithdrawalPending, domain.WithdrawalApproved, domain.WithdrawalRejected:
	default:
		http.Error(w, "Invalid status filter", http.StatusBadRequest)
		return
	}
	withdrawals, err := h.admin.ListWithdrawals(r.Context(), status, limit, offset)
	if err != nil {
		respondWithError(w, "list_withdrawals", err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(withdrawals))
}

func (h *Handler) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	withdrawal, err := h.admin.ApproveWithdrawal(r.Context(), id)
	if err != nil {
		respondWithError(w, "approve_withdrawal", err)
		return
	}
	respondWithJSON(w, http.StatusOK, withdrawal)
}

func (h *Handler) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	withdrawal, err := h.admin.RejectWithdrawal(r.Context(), id)
	if err != nil {
		respondWithError(w, "reject_withdrawal", err)
		return
	}
	respondWithJSON(w, http.StatusOK, withdrawal)
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	status := domain.ReportStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.ReportPending, domain.ReportResolved:
	default:
		http.Error(w, "Invalid status filter", http.StatusBadRequest)
		return
	}
	reports, err := h.admin.ListReports(r.Context(), status, limit, offset)
	if err != nil {
		respondWithError(w, "list_reports", err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(reports))
}

func (h *Handler) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	report, err := h.admin.ResolveReport(r.Context(), id)
	if err != nil {
		respondWithError(w, "resolve_report", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := domain.ValidateStruct(req); err != nil {
		http.Error(w, "amount is required", http.StatusBadRequest)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	result, err := h.reconciler.ReconcileAmount(context.WithoutCancel(r.Context()), amount, app.MethodManual)
	if err != nil {
		respondWithError(w, "reconcile", err)
		return
	}
	log.Printf("level=info component=api endpoint=reconcile outcome=settled amount=%s transaction_id=%s", domain.FormatPaise(amount), result.Transaction.ID)
	respondWithJSON(w, http.StatusOK, ReconcileResponse{
		Transaction: result.Transaction,
		ExpiresAt:   result.Subscriber.ExpiresAt,
		InviteLink:  result.InviteLink,
	})
}

func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrOwnerNotFound),
		errors.Is(err, store.ErrChannelNotFound),
		errors.Is(err, store.ErrWithdrawalNotFound),
		errors.Is(err, store.ErrReportNotFound),
		errors.Is(err, app.ErrNoMatchingIntent):
		return http.StatusNotFound
	case errors.Is(err, store.ErrWithdrawalNotPending),
		errors.Is(err, store.ErrReportAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(w http.ResponseWriter, endpoint string, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		log.Printf("level=error component=api endpoint=%s err=%v", endpoint, err)
		http.Error(w, "Internal Server Error", code)
		return
	}
	log.Printf("level=warn component=api endpoint=%s outcome=reject status=%d err=%v", endpoint, code, err)
	http.Error(w, err.Error(), code)
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
