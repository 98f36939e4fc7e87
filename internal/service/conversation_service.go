// Package service provides application business logic.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ConversationService provides conversation lifecycle and membership logic.
type ConversationService struct {
	convRepo     repository.ConversationRepository
	msgRepo      repository.MessageRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
}

// NewConversationService returns a new ConversationService.
func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	categoryRepo repository.CategoryRepository,
) *ConversationService {
	return &ConversationService{
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
	}
}

// CreateConversationInput is the input for creating a conversation.
type CreateConversationInput struct {
	UserID         uint
	Type           models.ConversationType
	Name           string
	CategoryID     uint
	ParticipantIDs []uint
}

// ConversationSummary pairs a conversation with the caller's unread count.
// ParticipantsCount is populated only by the category directory.
type ConversationSummary struct {
	Conversation      *models.Conversation `json:"conversation"`
	UnreadCount       int64                `json:"unread_count"`
	ParticipantsCount int                  `json:"participants_count,omitempty"`
}

// CategoryGroup buckets conversation summaries under a category.
type CategoryGroup struct {
	Category      *models.ConversationCategory `json:"category"`
	Conversations []ConversationSummary        `json:"conversations"`
}

// InviteResult reports which users were added and which were skipped.
type InviteResult struct {
	AddedIDs   []uint `json:"added_ids"`
	SkippedIDs []uint `json:"skipped_ids"`
}

// Create creates a direct or group conversation for the calling user.
//
// The member set is the target participants plus the caller, deduplicated;
// the caller may also appear in the target list. An absent type is inferred
// from the set size: more than two members makes a group, otherwise direct.
//
// For direct conversations the existing conversation between the pair is
// returned instead of creating a duplicate; the bool result is false in
// that case.
func (s *ConversationService) Create(ctx context.Context, in CreateConversationInput) (_ *models.Conversation, created bool, err error) {
	memberIDs := dedupeIDs(append([]uint{in.UserID}, in.ParticipantIDs...))
	convType := in.Type
	if convType == "" {
		if len(memberIDs) > 2 {
			convType = models.ConversationTypeGroup
		} else {
			convType = models.ConversationTypeDirect
		}
	}

	ctx, span := observability.StartSpan(ctx, "ConversationService.Create",
		attribute.String("conversation.type", string(convType)),
	)
	defer func() { observability.EndSpan(span, err) }()

	switch convType {
	case models.ConversationTypeDirect:
		return s.createDirect(ctx, in, memberIDs)
	case models.ConversationTypeGroup:
		conv, err := s.createGroup(ctx, in, memberIDs)
		return conv, conv != nil, err
	default:
		return nil, false, models.NewValidationError("Conversation type must be 'direct' or 'group'")
	}
}

func (s *ConversationService) createDirect(ctx context.Context, in CreateConversationInput, memberIDs []uint) (*models.Conversation, bool, error) {
	// A supplied name is ignored; direct conversations stay unnamed. A
	// supplied category is kept.
	if len(memberIDs) != 2 {
		return nil, false, models.NewValidationError("Direct conversations require exactly one other participant")
	}

	otherID := memberIDs[1]
	if otherID == in.UserID {
		otherID = memberIDs[0]
	}
	if _, err := s.userRepo.GetByID(ctx, otherID); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeNotFound {
			return nil, false, models.NewValidationError("Participant does not exist")
		}
		return nil, false, err
	}

	var categoryID *uint
	if in.CategoryID != 0 {
		category, err := s.categoryRepo.GetByID(ctx, in.CategoryID)
		if err != nil {
			if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeNotFound {
				return nil, false, models.NewValidationError("Category does not exist")
			}
			return nil, false, err
		}
		categoryID = &category.ID
	}

	// Scan the caller's direct conversations and compare participant-id
	// sets, so a conversation between the pair is found regardless of who
	// created it.
	existing, err := s.findDirectBetween(ctx, in.UserID, otherID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	key := models.DirectKeyFor(in.UserID, otherID)
	conv := &models.Conversation{
		Type:       models.ConversationTypeDirect,
		DirectKey:  &key,
		CategoryID: categoryID,
	}
	err = s.convRepo.CreateWithParticipants(ctx, conv, []uint{in.UserID, otherID})
	if err != nil {
		// A concurrent create for the same pair won the unique index on
		// direct_key. The winner is the caller's conversation; return it.
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeConflict {
			winner, findErr := s.convRepo.FindDirectByKey(ctx, key)
			if findErr != nil {
				return nil, false, findErr
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	created, err := s.convRepo.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *ConversationService) findDirectBetween(ctx context.Context, a, b uint) (*models.Conversation, error) {
	directs, err := s.convRepo.GetDirectConversationsForUser(ctx, a)
	if err != nil {
		return nil, err
	}
	want := []uint{a, b}
	sortIDs(want)
	for _, conv := range directs {
		got := make([]uint, 0, len(conv.Participants))
		for _, p := range conv.Participants {
			got = append(got, p.ID)
		}
		sortIDs(got)
		if equalIDs(got, want) {
			return conv, nil
		}
	}
	return nil, nil
}

func (s *ConversationService) createGroup(ctx context.Context, in CreateConversationInput, memberIDs []uint) (*models.Conversation, error) {
	// Group names are optional; a blank name is stored as null.
	var name *string
	if trimmed := strings.TrimSpace(in.Name); trimmed != "" {
		name = &trimmed
	}
	if in.CategoryID == 0 {
		return nil, models.NewValidationError("Group conversations require a category")
	}
	category, err := s.categoryRepo.GetByID(ctx, in.CategoryID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeNotFound {
			return nil, models.NewValidationError("Category does not exist")
		}
		return nil, err
	}

	users, err := s.userRepo.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(memberIDs) {
		return nil, models.NewValidationError("One or more participants do not exist")
	}

	conv := &models.Conversation{
		Type:        models.ConversationTypeGroup,
		Name:        name,
		CategoryID:  &category.ID,
		CreatedByID: &in.UserID,
	}
	if err := s.convRepo.CreateWithParticipants(ctx, conv, memberIDs); err != nil {
		return nil, err
	}
	return s.convRepo.GetByID(ctx, conv.ID)
}

// List returns the caller's conversations, most recently active first,
// each with the caller's unread count.
func (s *ConversationService) List(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	conversations, err := s.convRepo.GetUserConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	lastRead, err := s.lastReadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		unread, err := s.msgRepo.UnreadCount(ctx, conv.ID, userID, lastRead[conv.ID])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ConversationSummary{Conversation: conv, UnreadCount: unread})
	}
	return summaries, nil
}

// ListGroupedByCategory returns a directory of all group conversations
// bucketed by category, each with its participant count. Buckets are
// sorted by category name and empty categories are omitted; the caller
// need not belong to the conversations, and unread counts are filled in
// only where they do.
func (s *ConversationService) ListGroupedByCategory(ctx context.Context, userID uint) ([]CategoryGroup, error) {
	conversations, err := s.convRepo.GetGroupConversations(ctx)
	if err != nil {
		return nil, err
	}

	lastRead, err := s.lastReadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[uint]*CategoryGroup)
	for _, conv := range conversations {
		cat := conv.Category
		if cat == nil {
			continue
		}
		summary := ConversationSummary{
			Conversation:      conv,
			ParticipantsCount: len(conv.Participants),
		}
		if conv.HasParticipant(userID) {
			unread, err := s.msgRepo.UnreadCount(ctx, conv.ID, userID, lastRead[conv.ID])
			if err != nil {
				return nil, err
			}
			summary.UnreadCount = unread
		}
		group, ok := byCategory[cat.ID]
		if !ok {
			group = &CategoryGroup{Category: cat}
			byCategory[cat.ID] = group
		}
		group.Conversations = append(group.Conversations, summary)
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for _, group := range byCategory {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Category.Name < groups[j].Category.Name
	})
	return groups, nil
}

// Get returns the conversation with the caller's unread count. Callers who
// are not participants get a not-found error, never a forbidden one, so
// conversation existence is not leaked.
func (s *ConversationService) Get(ctx context.Context, convID, userID uint) (*ConversationSummary, error) {
	conv, err := s.getForParticipant(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	lastRead, err := s.lastReadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.msgRepo.UnreadCount(ctx, convID, userID, lastRead[convID])
	if err != nil {
		return nil, err
	}
	return &ConversationSummary{Conversation: conv, UnreadCount: unread}, nil
}

// MarkRead stamps the caller's last_read_at, zeroing their unread count.
func (s *ConversationService) MarkRead(ctx context.Context, convID, userID uint) error {
	if _, err := s.getForParticipant(ctx, convID, userID); err != nil {
		return err
	}
	return s.convRepo.UpdateLastRead(ctx, convID, userID, time.Now().UTC())
}

// Close transitions the conversation to its terminal closed state. Only
// the creator may close, which also rules out direct conversations.
func (s *ConversationService) Close(ctx context.Context, convID, userID uint) (*models.Conversation, error) {
	conv, err := s.getForParticipant(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	if !conv.IsCreator(userID) {
		return nil, models.NewForbiddenError("Only the creator can close a conversation")
	}
	if conv.IsClosed() {
		return nil, models.NewConflictError("Conversation is already closed")
	}
	if err := s.convRepo.Close(ctx, convID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.convRepo.GetByID(ctx, convID)
}

// Invite adds users to a group conversation. Only the creator may invite.
// Nonexistent, banned and already-present users are skipped; when every
// candidate is skipped, nothing is written and a validation error is
// returned.
func (s *ConversationService) Invite(ctx context.Context, convID, actorID uint, userIDs []uint) (*InviteResult, error) {
	conv, err := s.getForParticipant(ctx, convID, actorID)
	if err != nil {
		return nil, err
	}
	if conv.Type != models.ConversationTypeGroup {
		return nil, models.NewValidationError("Cannot add participants to direct conversations")
	}
	if !conv.IsCreator(actorID) {
		return nil, models.NewForbiddenError("Only the creator can invite users")
	}
	if conv.IsClosed() {
		return nil, models.NewConflictError("Conversation is closed")
	}

	candidates := dedupeIDs(userIDs)
	if len(candidates) == 0 {
		return nil, models.NewValidationError("At least one user is required")
	}

	users, err := s.userRepo.GetByIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}
	exists := make(map[uint]bool, len(users))
	for _, u := range users {
		exists[u.ID] = true
	}

	bannedIDs, err := s.convRepo.BannedUserIDs(ctx, convID, candidates)
	if err != nil {
		return nil, err
	}
	banned := make(map[uint]bool, len(bannedIDs))
	for _, id := range bannedIDs {
		banned[id] = true
	}

	result := &InviteResult{}
	for _, id := range candidates {
		if !exists[id] || banned[id] || conv.HasParticipant(id) {
			result.SkippedIDs = append(result.SkippedIDs, id)
			continue
		}
		result.AddedIDs = append(result.AddedIDs, id)
	}

	if len(result.AddedIDs) == 0 {
		return nil, models.NewValidationError("No valid users to invite. Some may be banned or already in the room.")
	}
	if err := s.convRepo.AddParticipants(ctx, convID, result.AddedIDs); err != nil {
		return nil, err
	}
	return result, nil
}

// Remove removes a participant from a group conversation. Only the creator
// may remove, and never themselves.
func (s *ConversationService) Remove(ctx context.Context, convID, actorID, targetID uint) error {
	conv, err := s.getForParticipant(ctx, convID, actorID)
	if err != nil {
		return err
	}
	if conv.Type != models.ConversationTypeGroup {
		return models.NewValidationError("Cannot remove participants from direct conversations")
	}
	if !conv.IsCreator(actorID) {
		return models.NewForbiddenError("Only the creator can remove participants")
	}
	if targetID == actorID {
		return models.NewValidationError("The creator cannot remove themselves")
	}
	if !conv.HasParticipant(targetID) {
		return models.NewValidationError("User is not a participant")
	}
	return s.convRepo.RemoveParticipant(ctx, convID, targetID)
}

// Ban bars a user from the conversation and detaches them from it. Bans
// are a moderation action and work on closed conversations too.
func (s *ConversationService) Ban(ctx context.Context, convID, actorID, targetID uint) error {
	conv, err := s.getForParticipant(ctx, convID, actorID)
	if err != nil {
		return err
	}
	if conv.Type != models.ConversationTypeGroup {
		return models.NewValidationError("Cannot ban users in direct conversations")
	}
	if !conv.IsCreator(actorID) {
		return models.NewForbiddenError("Only the creator can ban users")
	}
	if targetID == actorID {
		return models.NewValidationError("The creator cannot ban themselves")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeNotFound {
			return models.NewValidationError("User does not exist")
		}
		return err
	}
	alreadyBanned, err := s.convRepo.IsBanned(ctx, convID, targetID)
	if err != nil {
		return err
	}
	if alreadyBanned {
		return models.NewConflictError("User is already banned")
	}

	ban := &models.ConversationBan{
		ConversationID: convID,
		UserID:         targetID,
		BannedByUserID: actorID,
	}
	return s.convRepo.BanWithDetach(ctx, ban)
}

func (s *ConversationService) getForParticipant(ctx context.Context, convID, userID uint) (*models.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, models.NewNotFoundError("Conversation not found")
	}
	return conv, nil
}

func (s *ConversationService) lastReadByConversation(ctx context.Context, userID uint) (map[uint]*time.Time, error) {
	rows, err := s.convRepo.GetParticipantRows(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*time.Time, len(rows))
	for i := range rows {
		out[rows[i].ConversationID] = rows[i].LastReadAt
	}
	return out, nil
}

func sortIDs(ids []uint) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
