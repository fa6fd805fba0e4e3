package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/notification"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if notif.ID == "" {
		notif.ID = newID()
	}
	repo.db.notifications[notif.ID] = &notif
	return notif, nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, campusID string) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var notifs []notification.Notification
	for _, notif := range repo.db.notifications {
		if notif.CampusID == campusID && !notif.IsDeleted {
			notifs = append(notifs, *notif)
		}
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, campusID, id string) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notif, ok := repo.db.notifications[id]
	if !ok || notif.IsDeleted || notif.CampusID != campusID {
		return notification.Notification{}, notification.ErrNotFound
	}
	return *notif, nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.notifications[notif.ID]; !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	repo.db.notifications[notif.ID] = &notif
	return notif, nil
}
