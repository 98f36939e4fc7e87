// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"parley/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumGroups       int
	NumDirectChats  int
	MessagesPerConv int
	ShouldClean     bool
	// MaxDays spreads message timestamps over this many days back.
	MaxDays int
}

// DefaultOptions returns a small but realistic demo dataset shape.
func DefaultOptions() Options {
	return Options{
		NumUsers:        25,
		NumGroups:       8,
		NumDirectChats:  15,
		MessagesPerConv: 20,
		MaxDays:         30,
	}
}

// Run populates the database with demo users, conversations and messages.
func Run(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if opts.ShouldClean {
		if err := clean(db); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	if err := Categories(db); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if len(users) < 2 {
		return fmt.Errorf("need at least 2 users to seed conversations, have %d", len(users))
	}

	var categories []models.ConversationCategory
	if err := db.Find(&categories).Error; err != nil {
		return err
	}

	for i := 0; i < opts.NumGroups; i++ {
		creator := users[r.Intn(len(users))]
		category := categories[r.Intn(len(categories))]
		name := fmt.Sprintf("%s %s", gofakeit.AdjectiveDescriptive(), category.Name)

		members := pickMembers(r, users, creator, 2+r.Intn(6))
		if err := createGroup(db, r, opts, creator, &category, name, members); err != nil {
			return fmt.Errorf("seed group %q: %w", name, err)
		}
	}

	seededPairs := make(map[string]struct{})
	for i := 0; i < opts.NumDirectChats; i++ {
		a := users[r.Intn(len(users))]
		b := users[r.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}
		key := models.DirectKeyFor(a.ID, b.ID)
		if _, dup := seededPairs[key]; dup {
			continue
		}
		seededPairs[key] = struct{}{}

		if err := createDirect(db, r, opts, a, b); err != nil {
			return fmt.Errorf("seed direct chat: %w", err)
		}
	}

	log.Printf("Seeded %d users, %d groups, %d direct chats", len(users), opts.NumGroups, len(seededPairs))
	return nil
}

func clean(db *gorm.DB) error {
	// Children before parents.
	tables := []string{
		"messages", "conversation_bans", "conversation_participants",
		"conversations", "uploaded_images",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, n int) ([]*models.User, error) {
	// One shared hash keeps seeding fast; every demo account logs in
	// with the same password.
	hashed, err := bcrypt.GenerateFromPassword([]byte("Demo1234567!"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
			Email:    gofakeit.Email(),
			Password: string(hashed),
		}
		if err := db.Create(user).Error; err != nil {
			// Random usernames can collide; skip and carry on.
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func pickMembers(r *rand.Rand, users []*models.User, creator *models.User, count int) []*models.User {
	shuffled := make([]*models.User, len(users))
	copy(shuffled, users)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	members := []*models.User{creator}
	for _, u := range shuffled {
		if len(members) >= count+1 {
			break
		}
		if u.ID != creator.ID {
			members = append(members, u)
		}
	}
	return members
}

func createGroup(db *gorm.DB, r *rand.Rand, opts Options, creator *models.User,
	category *models.ConversationCategory, name string, members []*models.User) error {
	conv := &models.Conversation{
		Type:        models.ConversationTypeGroup,
		Name:        &name,
		CategoryID:  &category.ID,
		CreatedByID: &creator.ID,
	}
	if err := db.Create(conv).Error; err != nil {
		return err
	}

	for _, m := range members {
		participant := &models.ConversationParticipant{
			ConversationID: conv.ID,
			UserID:         m.ID,
		}
		if err := db.Create(participant).Error; err != nil {
			return err
		}
	}

	return createMessages(db, r, opts, conv, members)
}

func createDirect(db *gorm.DB, r *rand.Rand, opts Options, a, b *models.User) error {
	key := models.DirectKeyFor(a.ID, b.ID)
	conv := &models.Conversation{
		Type:      models.ConversationTypeDirect,
		DirectKey: &key,
	}
	if err := db.Create(conv).Error; err != nil {
		return err
	}

	for _, u := range []*models.User{a, b} {
		participant := &models.ConversationParticipant{
			ConversationID: conv.ID,
			UserID:         u.ID,
		}
		if err := db.Create(participant).Error; err != nil {
			return err
		}
	}

	return createMessages(db, r, opts, conv, []*models.User{a, b})
}

func createMessages(db *gorm.DB, r *rand.Rand, opts Options, conv *models.Conversation, members []*models.User) error {
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}

	count := opts.MessagesPerConv
	if count <= 0 {
		return nil
	}

	// Oldest first so created_at ordering matches insertion order.
	start := time.Now().Add(-time.Duration(r.Intn(maxDays)+1) * 24 * time.Hour)
	step := time.Since(start) / time.Duration(count+1)

	var last time.Time
	for i := 0; i < count; i++ {
		sender := members[r.Intn(len(members))]
		createdAt := start.Add(time.Duration(i)*step + time.Duration(r.Intn(300))*time.Second)
		msg := &models.Message{
			ConversationID: conv.ID,
			UserID:         sender.ID,
			Body:           gofakeit.Sentence(3 + r.Intn(12)),
			CreatedAt:      createdAt,
		}
		if err := db.Create(msg).Error; err != nil {
			return err
		}
		last = createdAt
	}

	// Conversation ordering in list views follows the latest message.
	if err := db.Model(&models.Conversation{}).Where("id = ?", conv.ID).
		Update("updated_at", last).Error; err != nil {
		return err
	}

	// Some members have caught up, some have unread backlogs.
	for _, m := range members {
		if r.Intn(2) == 0 {
			continue
		}
		readAt := last.Add(time.Duration(r.Intn(60)) * time.Minute)
		if err := db.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conv.ID, m.ID).
			Update("last_read_at", readAt).Error; err != nil {
			return err
		}
	}

	return nil
}
