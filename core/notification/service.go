package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)
		QueryNotifications(ctx context.Context, campusID string) ([]Notification, error)
		GetNotification(ctx context.Context, campusID, id string) (Notification, error)
		UpdateNotification(ctx context.Context, notif Notification) (Notification, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, usrRepo user.Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, usrRepo: usrRepo, mailSvc: mailSvc}
}

// Create stores the notification and, for email-kind notifications, fans it
// out to the audience's inboxes.
func (svc *Service) Create(ctx context.Context, campusID, createdBy string, nn NewNotification) (Notification, error) {
	notif := Notification{
		CampusID:  campusID,
		Audience:  nn.Audience,
		Title:     nn.Title,
		Body:      nn.Body,
		Kind:      nn.Kind,
		CreatedBy: createdBy,
		ReadBy:    []string{},
		CreatedAt: time.Now().UTC(),
	}
	notif, err := svc.repo.CreateNotification(ctx, notif)
	if err != nil {
		return Notification{}, err
	}

	if notif.Kind == KindEmail {
		if err = svc.fanOut(ctx, notif); err != nil {
			return Notification{}, errors.Wrap(err, "fanning out notification")
		}
	}
	return notif, nil
}

func (svc *Service) fanOut(ctx context.Context, notif Notification) error {
	recipients, err := svc.resolveRecipients(ctx, notif)
	if err != nil {
		return err
	}

	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, usr := range recipients {
		if usr.Email == "" || !usr.Active() {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject: notif.Title,
			BodyStr: notif.Body,
		})
	}
	svc.mailSvc.SendMessages(msgs...)
	return nil
}

func (svc *Service) resolveRecipients(ctx context.Context, notif Notification) ([]user.User, error) {
	filter := &user.QueryFilter{CampusID: notif.CampusID}
	switch notif.Audience.Kind {
	case AudienceRole:
		filter.Roles = []string{notif.Audience.Role}
	case AudienceUsers:
		users := make([]user.User, 0, len(notif.Audience.UserIDs))
		for _, id := range notif.Audience.UserIDs {
			usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: id})
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					continue
				}
				return nil, err
			}
			users = append(users, usr)
		}
		return users, nil
	}
	return svc.usrRepo.QueryUsers(ctx, filter, nil)
}

// ListForUser returns the user's notifications, unread first, newest first
// within each group.
func (svc *Service) ListForUser(ctx context.Context, campusID string, usr user.User) ([]Notification, error) {
	all, err := svc.repo.QueryNotifications(ctx, campusID)
	if err != nil {
		return nil, err
	}

	unread := make([]Notification, 0, len(all))
	read := make([]Notification, 0, len(all))
	for _, notif := range all {
		if !notif.Audience.Matches(usr.ID, usr.Roles) {
			continue
		}
		if notif.ReadByUser(usr.ID) {
			read = append(read, notif)
		} else {
			unread = append(unread, notif)
		}
	}
	return append(unread, read...), nil
}

func (svc *Service) MarkRead(ctx context.Context, campusID, id, userID string) (Notification, error) {
	notif, err := svc.repo.GetNotification(ctx, campusID, id)
	if err != nil {
		return Notification{}, err
	}
	if notif.ReadByUser(userID) {
		return notif, nil
	}
	notif.ReadBy = append(notif.ReadBy, userID)
	return svc.repo.UpdateNotification(ctx, notif)
}

func (svc *Service) Delete(ctx context.Context, campusID, id string) error {
	notif, err := svc.repo.GetNotification(ctx, campusID, id)
	if err != nil {
		return err
	}
	notif.IsDeleted = true
	_, err = svc.repo.UpdateNotification(ctx, notif)
	return err
}
