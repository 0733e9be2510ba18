package profile

import (
	"context"
	"log/slog"
	"time"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	"tumbi/internal/app/queries"
	"tumbi/internal/app/uow"
	domainuser "tumbi/internal/domain/user"
)

const (
	publicProfileKey = "profiles.public"
	updateProfileKey = "profiles.update"
)

// PublicProfileQuery loads the vendor card shown next to listings.
type PublicProfileQuery struct {
	UserID string
}

func (q PublicProfileQuery) Key() string { return publicProfileKey }

type PublicProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *PublicProfileHandler) Handle(ctx context.Context, q PublicProfileQuery) (dto.PublicProfile, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.PublicProfile{}, err
	}
	defer release()
	u, err := unit.Users().ByID(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.PublicProfile{}, err
	}
	return dto.MapPublicProfile(u), nil
}

type UpdateProfileCommand struct {
	UserID string
	Update domainuser.ProfileUpdate
}

func (c UpdateProfileCommand) Key() string     { return updateProfileKey }
func (c UpdateProfileCommand) ActorID() string { return c.UserID }

type UpdateProfileHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (dto.User, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.User{}, uow.ErrUnitOfWorkMissing
	}
	u, err := unit.Users().ByID(ctx, domainuser.ID(cmd.UserID))
	if err != nil {
		return dto.User{}, err
	}
	at := time.Now()
	if h.Now != nil {
		at = h.Now()
	}
	if err := u.ApplyProfile(cmd.Update, at); err != nil {
		return dto.User{}, err
	}
	if err := unit.Users().Update(ctx, u); err != nil {
		return dto.User{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("profile updated", "user_id", u.ID)
	}
	return dto.MapUser(u), nil
}

var (
	_ queries.Handler[PublicProfileQuery, dto.PublicProfile] = (*PublicProfileHandler)(nil)
	_ commands.Handler[UpdateProfileCommand, dto.User]       = (*UpdateProfileHandler)(nil)
)
