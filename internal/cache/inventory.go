package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	CategoryListKey   = "categories:all"
	CategoryKeyPrefix = "category:%d"
)

const (
	UserTTL         = 5 * time.Minute
	CategoryListTTL = 10 * time.Minute
	CategoryTTL     = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func CategoryKey(categoryID uint) string {
	return fmt.Sprintf(CategoryKeyPrefix, categoryID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateCategory(ctx context.Context, categoryID uint) {
	Invalidate(ctx, CategoryKey(categoryID))
	Invalidate(ctx, CategoryListKey)
}
