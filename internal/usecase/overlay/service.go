package overlay

import (
	"time"

	"github.com/rs/zerolog"

	"spot-bot/internal/domain"
	"spot-bot/internal/presenter"
	"spot-bot/internal/usecase/conversation"
)

const threadIndexTTL = 30 * 24 * time.Hour

// Options: параметры канала и группы сообщества.
type Options struct {
	AdminGroupID     int64
	ChannelID        int64
	CommunityGroupID int64
	ReportWait       time.Duration
	ReplaceAnonymous bool
	DeleteAnonymous  bool
}

// Deps: зависимости сервиса.
type Deps struct {
	Gateway       domain.Gateway
	Published     domain.PublishedRepo
	Reports       domain.ReportRepo
	Follows       domain.FollowRepo
	Cache         domain.Cache
	Conversations *conversation.Store
	View          *presenter.Presenter
	Clock         domain.Clock
	Log           zerolog.Logger
}

// Service обслуживает жалобы, подписки и комментарии к опубликованным постам.
type Service struct {
	gw        domain.Gateway
	published domain.PublishedRepo
	reports   domain.ReportRepo
	follows   domain.FollowRepo
	cache     domain.Cache
	conv      *conversation.Store
	view      *presenter.Presenter
	clock     domain.Clock
	opts      Options
	log       zerolog.Logger
}

// NewService создаёт сервис.
func NewService(d Deps, opts Options) *Service {
	return &Service{
		gw:        d.Gateway,
		published: d.Published,
		reports:   d.Reports,
		follows:   d.Follows,
		cache:     d.Cache,
		conv:      d.Conversations,
		view:      d.View,
		clock:     d.Clock,
		opts:      opts,
		log:       d.Log.With().Str("component", "overlay").Logger(),
	}
}
