package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	AuthorPagePrefix = "author:%d"
)

const (
	UserTTL       = 5 * time.Minute
	AuthorPageTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func AuthorPageKey(authorID uint) string {
	return fmt.Sprintf(AuthorPagePrefix, authorID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
