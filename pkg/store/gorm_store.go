package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"playmatch/pkg/domain"
)

const migrateLockID int64 = 51731573

// GormStore implements Store and SessionStore using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the Postgres DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	return OpenGormStore(postgres.Open(dsn))
}

// OpenGormStore opens any GORM dialector and runs auto-migrations. The
// Postgres migration takes an advisory lock so replicas can start together.
func OpenGormStore(dialector gorm.Dialector) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	migrate := func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &SessionModel{}, &MatchModel{}, &ChatModel{}, &ChatMessageModel{}, &RatingModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	if dialector.Name() == "postgres" {
		err = withMigrationLock(db, migrate)
	} else {
		err = migrate(db)
	}
	if err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(ctx context.Context, u domain.User) error {
	model, err := userToModel(u)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "name", "picture", "avatar_key", "has_profile", "gaming_profile", "availability", "updated_at",
		}),
	}).Create(&model).Error
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	return s.firstUser(ctx, "id = ?", id)
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	return s.firstUser(ctx, "email = ?", email)
}

func (s *GormStore) firstUser(ctx context.Context, query string, arg any) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	u, err := userFromModel(model)
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

// UpdateProfile replaces the gaming profile and availability of a user.
func (s *GormStore) UpdateProfile(ctx context.Context, userID string, profile domain.GamingProfile, schedule domain.AvailabilitySchedule) error {
	profileJSON, err := toJSON(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	scheduleJSON, err := toJSON(scheduleOrEmpty(schedule))
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"has_profile":    true,
			"gaming_profile": profileJSON,
			"availability":   scheduleJSON,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update profile %s: %w", userID, ErrNotFound)
	}
	return nil
}

// SetAvatarKey records the object key of a user's avatar.
func (s *GormStore) SetAvatarKey(ctx context.Context, userID, key string) error {
	res := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{"avatar_key": key, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set avatar %s: %w", userID, ErrNotFound)
	}
	return nil
}

// ListCandidates returns profiled users other than excludeID, oldest first.
func (s *GormStore) ListCandidates(ctx context.Context, excludeID string, limit int) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.WithContext(ctx).
		Where("id <> ? AND has_profile = ?", excludeID, true).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		u, err := userFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, nil
}

// SaveMatch stores a match record.
func (s *GormStore) SaveMatch(ctx context.Context, m domain.Match) error {
	model, err := matchToModel(m)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "reasons", "status"}),
	}).Create(&model).Error
}

// GetMatch retrieves a match by ID.
func (s *GormStore) GetMatch(ctx context.Context, id string) (domain.Match, bool, error) {
	return s.firstMatch(s.db.WithContext(ctx).Where("id = ?", id))
}

// MatchesBetween returns every match for the pair in either slot order, oldest first.
func (s *GormStore) MatchesBetween(ctx context.Context, a, b string) ([]domain.Match, error) {
	var models []MatchModel
	if err := s.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Match, 0, len(models))
	for _, model := range models {
		m, err := matchFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *GormStore) firstMatch(tx *gorm.DB) (domain.Match, bool, error) {
	var model MatchModel
	if err := tx.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Match{}, false, nil
		}
		return domain.Match{}, false, err
	}
	m, err := matchFromModel(model)
	if err != nil {
		return domain.Match{}, false, err
	}
	return m, true, nil
}

// SetMatchStatus moves a pending match to status.
func (s *GormStore) SetMatchStatus(ctx context.Context, id string, status domain.MatchStatus) error {
	return setMatchStatus(s.db.WithContext(ctx), id, status)
}

func setMatchStatus(tx *gorm.DB, id string, status domain.MatchStatus) error {
	res := tx.Model(&MatchModel{}).
		Where("id = ? AND status = ?", id, string(domain.MatchPending)).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := tx.Model(&MatchModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("set match status %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("set match status %s: %w", id, ErrNotPending)
}

// AcceptMatch marks a pending match accepted and creates its chat in one transaction.
func (s *GormStore) AcceptMatch(ctx context.Context, matchID string, chat domain.Chat) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setMatchStatus(tx, matchID, domain.MatchAccepted); err != nil {
			return err
		}
		return createChat(tx, chat)
	})
}

func createChat(tx *gorm.DB, chat domain.Chat) error {
	model := ChatModel{ID: chat.ID, MatchID: chat.MatchID, CreatedAt: chat.CreatedAt.UTC()}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoNothing: true,
	}).Create(&model).Error
}

// EnsureChat creates chat unless its match already has one.
func (s *GormStore) EnsureChat(ctx context.Context, chat domain.Chat) (domain.Chat, error) {
	if err := createChat(s.db.WithContext(ctx), chat); err != nil {
		return domain.Chat{}, err
	}
	stored, ok, err := s.GetChatByMatch(ctx, chat.MatchID)
	if err != nil {
		return domain.Chat{}, err
	}
	if !ok {
		return domain.Chat{}, fmt.Errorf("ensure chat for %s: %w", chat.MatchID, ErrNotFound)
	}
	return stored, nil
}

// GetChatByMatch returns the chat attached to a match with its messages in append order.
func (s *GormStore) GetChatByMatch(ctx context.Context, matchID string) (domain.Chat, bool, error) {
	db := s.db.WithContext(ctx)
	var model ChatModel
	if err := db.Where("match_id = ?", matchID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	var msgs []ChatMessageModel
	if err := db.Where("chat_id = ?", model.ID).Order("seq ASC").Find(&msgs).Error; err != nil {
		return domain.Chat{}, false, err
	}
	chat := domain.Chat{
		ID:        model.ID,
		MatchID:   model.MatchID,
		Messages:  make([]domain.Message, 0, len(msgs)),
		CreatedAt: model.CreatedAt.UTC(),
	}
	for _, m := range msgs {
		chat.Messages = append(chat.Messages, messageFromModel(m))
	}
	return chat, true, nil
}

// AppendMessage records a message in a chat.
func (s *GormStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&ChatModel{}).Where("id = ?", chatID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("append message %s: %w", chatID, ErrNotFound)
	}
	model := messageToModel(chatID, msg)
	return db.Create(&model).Error
}

// SaveRating records a rating.
func (s *GormStore) SaveRating(ctx context.Context, r domain.Rating) error {
	model := ratingToModel(r)
	return s.db.WithContext(ctx).Create(&model).Error
}

// RatingTotals sums every rating received by userID.
func (s *GormStore) RatingTotals(ctx context.Context, userID string) (domain.RatingTotals, error) {
	var row struct {
		Count         int
		Communication int
		Respect       int
		Teamwork      int
	}
	if err := s.db.WithContext(ctx).Model(&RatingModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(communication), 0) AS communication, COALESCE(SUM(respect), 0) AS respect, COALESCE(SUM(teamwork), 0) AS teamwork").
		Where("rated_user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return domain.RatingTotals{}, err
	}
	return domain.RatingTotals{
		Count:         row.Count,
		Communication: row.Communication,
		Respect:       row.Respect,
		Teamwork:      row.Teamwork,
	}, nil
}

// SaveSession stores a session record.
func (s *GormStore) SaveSession(ctx context.Context, sess domain.Session) error {
	model := SessionModel{
		Token:     sess.Token,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt.UTC(),
		CreatedAt: sess.CreatedAt.UTC(),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetSession resolves a token to its session record.
func (s *GormStore) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// DeleteSession removes a session record.
func (s *GormStore) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "token = ?", token).Error
}
