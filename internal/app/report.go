package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/google/uuid"
)

// ReportStore is the slice of the repository used when filing reports.
type ReportStore interface {
	GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error)
	GetOwnerByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
	CreateReport(ctx context.Context, report *domain.Report) error
}

// ReportService files subscriber complaints.
type ReportService struct {
	store    ReportStore
	notifier *Notifier
	logger   *slog.Logger
}

func NewReportService(st ReportStore, notifier *Notifier, logger *slog.Logger) *ReportService {
	return &ReportService{store: st, notifier: notifier, logger: logger}
}

// FileReport records a complaint about the channel and alerts the admin.
func (s *ReportService) FileReport(ctx context.Context, reporterID int64, channelRef uuid.UUID, rawReason string) (*domain.Report, error) {
	reason, err := domain.NormalizeReportReason(rawReason)
	if err != nil {
		return nil, err
	}
	channel, err := s.store.GetChannelByID(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.GetOwnerByID(ctx, channel.OwnerID)
	if err != nil && !errors.Is(err, store.ErrOwnerNotFound) {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	ref := channel.ID
	report := &domain.Report{
		ReporterID:  reporterID,
		OwnerID:     channel.OwnerID,
		ChannelRef:  &ref,
		ChannelName: channel.ChannelName,
		Reason:      reason,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	ownerLine := "unknown"
	if owner != nil {
		ownerLine = fmt.Sprintf("%s (<code>%d</code>)", html.EscapeString(ownerDisplayName(owner)), owner.TelegramID)
	}
	s.notifier.Admin(ctx, fmt.Sprintf(
		"🚩 <b>New Report</b>\n\nFrom: <code>%d</code>\nChannel: %s\nOwner: %s\n\nReason:\n%s",
		reporterID, html.EscapeString(channel.ChannelName), ownerLine, html.EscapeString(reason),
	))
	s.logger.Info("report filed", "report_id", report.ID, "channel_id", channel.ChannelID)
	return report, nil
}
