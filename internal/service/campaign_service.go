package service

import (
	"context"
	"fmt"

	"github.com/lavapop/campaign-service/internal/domain"
)

type campaignScheduleStore interface {
	Create(ctx context.Context, sc *domain.ScheduledCampaign) (*domain.ScheduledCampaign, error)
	GetByID(ctx context.Context, id int64) (*domain.ScheduledCampaign, error)
	GetAll(ctx context.Context, status *domain.CampaignStatus, page, pageSize int) ([]domain.ScheduledCampaign, int64, error)
	Cancel(ctx context.Context, id int64) error
	GetAuditsByCampaign(ctx context.Context, campaignID int64) ([]domain.CampaignSendAudit, error)
}

// CampaignService covers the authoring side of scheduled campaigns:
// creating, listing, and cancelling. Execution belongs to DispatchService.
type CampaignService struct {
	store campaignScheduleStore
}

func NewCampaignService(store campaignScheduleStore) *CampaignService {
	return &CampaignService{store: store}
}

func (s *CampaignService) Schedule(ctx context.Context, sc *domain.ScheduledCampaign) (*domain.ScheduledCampaign, error) {
	if sc.CampaignID == 0 {
		return nil, fmt.Errorf("campaign id is required")
	}
	if sc.MessageBody == "" {
		return nil, fmt.Errorf("message body is required")
	}
	if sc.ScheduledFor.IsZero() {
		return nil, fmt.Errorf("scheduled time is required")
	}
	if sc.CampaignType == "" {
		sc.CampaignType = domain.CampaignTypeOther
	}
	if sc.Recipients == nil {
		sc.Recipients = domain.RecipientList{}
	}

	return s.store.Create(ctx, sc)
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*domain.ScheduledCampaign, error) {
	return s.store.GetByID(ctx, id)
}

func (s *CampaignService) List(
	ctx context.Context,
	status *domain.CampaignStatus,
	page, pageSize int,
) ([]domain.ScheduledCampaign, int64, error) {
	return s.store.GetAll(ctx, status, page, pageSize)
}

// Cancel only succeeds while the campaign is still in scheduled; once a
// tick has claimed it, the execution runs to completion.
func (s *CampaignService) Cancel(ctx context.Context, id int64) error {
	return s.store.Cancel(ctx, id)
}

func (s *CampaignService) GetSendHistory(ctx context.Context, campaignID int64) ([]domain.CampaignSendAudit, error) {
	return s.store.GetAuditsByCampaign(ctx, campaignID)
}
