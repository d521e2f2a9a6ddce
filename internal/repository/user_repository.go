package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists возвращается при повторной регистрации email или username.
	ErrUserExists = errors.New("user already exists")
	// ErrSkillNotFound навык не найден или принадлежит другому пользователю.
	ErrSkillNotFound = errors.New("skill not found")
	// ErrAuthSessionNotFound refresh-сессия не найдена.
	ErrAuthSessionNotFound = errors.New("auth session not found")
)

// UserRepository отвечает за таблицы users, user_skill_offers, user_skill_wants и auth_sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create регистрирует пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, is_active, display_name)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id, is_active, email_notifications, realtime_notifications, session_reminders, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.DisplayName,
	).Scan(
		&user.ID, &user.IsActive,
		&user.EmailNotifications, &user.RealtimeNotifications, &user.SessionReminders,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if common.IsUniqueViolation(err, "") {
			return ErrUserExists
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := common.GetOne[models.User](ctx, r.db, "users", "email", strings.ToLower(email), ErrUserNotFound)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}
	return user, err
}

// GetByID возвращает пользователя по идентификатору без навыков.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return user, err
}

// GetWithSkills возвращает пользователя вместе с предлагаемыми и желаемыми навыками.
func (r *UserRepository) GetWithSkills(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadSkills(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetContact возвращает email и настройки уведомлений.
func (r *UserRepository) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	query := `
		SELECT id, email, display_name, is_active, email_notifications, realtime_notifications, session_reminders
		FROM users WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get contact %w", err)
	}
	return &contact, nil
}

// UpdateProfile обновляет публичные поля профиля и настройки уведомлений.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET display_name = $2, bio = $3, location = $4,
			email_notifications = $5, realtime_notifications = $6, session_reminders = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		user.ID, user.DisplayName, user.Bio, user.Location,
		user.EmailNotifications, user.RealtimeNotifications, user.SessionReminders,
	).Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user repository: update profile %w", err)
	}
	return nil
}

// UpdateAvatar сохраняет ссылку на аватар.
func (r *UserRepository) UpdateAvatar(ctx context.Context, userID uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1`, userID, url)
	if err != nil {
		return fmt.Errorf("user repository: update avatar %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}

// UpdateLastLoginAt фиксирует время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// UpdateAdminFields меняет роль, активность и имя. nil поля не трогаются.
func (r *UserRepository) UpdateAdminFields(ctx context.Context, userID uuid.UUID, displayName, role *string, isActive *bool) error {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
			role = COALESCE($3, role),
			is_active = COALESCE($4, is_active),
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, displayName, role, isActive)
	if err != nil {
		return fmt.Errorf("user repository: update admin fields %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}

// List возвращает пользователей для админки и их общее количество.
func (r *UserRepository) List(ctx context.Context, params models.UserListParams) ([]*models.User, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	argNum := 1

	if params.Search != "" {
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR username ILIKE $%d OR display_name ILIKE $%d)", argNum, argNum, argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}
	if params.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", argNum))
		args = append(args, params.Role)
		argNum++
	}
	if params.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", argNum))
		args = append(args, *params.IsActive)
		argNum++
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE `+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("user repository: count %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, cond, argNum, argNum+1)
	args = append(args, params.Limit, params.Offset)

	var users []*models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("user repository: list %w", err)
	}
	return users, total, nil
}

// SearchByOfferedSkill ищет активных пользователей, предлагающих навык.
func (r *UserRepository) SearchByOfferedSkill(ctx context.Context, params models.UserSearchParams) ([]*models.User, int, error) {
	cond := `u.is_active = TRUE AND EXISTS (
		SELECT 1 FROM user_skill_offers o
		WHERE o.user_id = u.id AND ($1 = '' OR lower(o.name) = lower($1)) AND ($2 = '' OR lower(o.category) = lower($2))
	)`
	args := []interface{}{strings.TrimSpace(params.Skill), strings.TrimSpace(params.Category)}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users u WHERE `+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("user repository: search count %w", err)
	}

	query := `SELECT u.* FROM users u WHERE ` + cond + `
		ORDER BY u.average_rating DESC, u.total_reviews DESC, u.created_at
		LIMIT $3 OFFSET $4`
	var users []*models.User
	if err := r.db.SelectContext(ctx, &users, query, append(args, params.Limit, params.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("user repository: search %w", err)
	}

	if err := r.loadSkills(ctx, users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListMatchCandidates возвращает предложения активных пользователей (кроме userID),
// название которых совпадает с одним из names без учёта регистра.
// Порядок: по дате регистрации пользователя, затем по позиции навыка.
func (r *UserRepository) ListMatchCandidates(ctx context.Context, userID uuid.UUID, names []string) ([]models.MatchCandidateRow, error) {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(strings.TrimSpace(n))
	}

	query := `
		SELECT o.user_id, o.name, o.category, o.level, o.rating, o.session_count
		FROM user_skill_offers o
		JOIN users u ON u.id = o.user_id
		WHERE u.is_active = TRUE AND u.id <> $1 AND lower(o.name) = ANY($2)
		ORDER BY u.created_at, u.id, o.position, o.created_at
	`
	var rows []models.MatchCandidateRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("user repository: match candidates %w", err)
	}
	return rows, nil
}

// ListActiveIDs страница идентификаторов активных пользователей после afterID.
func (r *UserRepository) ListActiveIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT id FROM users WHERE is_active = TRUE AND id > $1 ORDER BY id LIMIT $2`
	if err := r.db.SelectContext(ctx, &ids, query, afterID, limit); err != nil {
		return nil, fmt.Errorf("user repository: list active ids %w", err)
	}
	return ids, nil
}

// ListOffers возвращает предлагаемые навыки пользователя.
func (r *UserRepository) ListOffers(ctx context.Context, userID uuid.UUID) ([]models.SkillOffer, error) {
	offers := []models.SkillOffer{}
	query := `SELECT * FROM user_skill_offers WHERE user_id = $1 ORDER BY position, created_at`
	if err := r.db.SelectContext(ctx, &offers, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list offers %w", err)
	}
	return offers, nil
}

// ListWants возвращает желаемые навыки пользователя.
func (r *UserRepository) ListWants(ctx context.Context, userID uuid.UUID) ([]models.SkillWant, error) {
	wants := []models.SkillWant{}
	query := `SELECT * FROM user_skill_wants WHERE user_id = $1 ORDER BY position, created_at`
	if err := r.db.SelectContext(ctx, &wants, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list wants %w", err)
	}
	return wants, nil
}

// GetOffer возвращает предложение навыка конкретного пользователя.
func (r *UserRepository) GetOffer(ctx context.Context, userID, offerID uuid.UUID) (*models.SkillOffer, error) {
	var offer models.SkillOffer
	query := `SELECT * FROM user_skill_offers WHERE id = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &offer, query, offerID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("user repository: get offer %w", err)
	}
	return &offer, nil
}

// FindOfferByName ищет предложение пользователя по названию без учёта регистра.
func (r *UserRepository) FindOfferByName(ctx context.Context, userID uuid.UUID, name string) (*models.SkillOffer, error) {
	var offer models.SkillOffer
	query := `SELECT * FROM user_skill_offers WHERE user_id = $1 AND lower(name) = lower($2) ORDER BY position LIMIT 1`
	if err := r.db.GetContext(ctx, &offer, query, userID, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("user repository: find offer %w", err)
	}
	return &offer, nil
}

// AddOffer добавляет навык в конец списка пользователя.
func (r *UserRepository) AddOffer(ctx context.Context, offer *models.SkillOffer) error {
	query := `
		INSERT INTO user_skill_offers (user_id, name, level, category, description, position)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM user_skill_offers WHERE user_id = $1))
		RETURNING id, session_count, rating, position, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		offer.UserID, offer.Name, offer.Level, offer.Category, offer.Description,
	).Scan(&offer.ID, &offer.SessionCount, &offer.Rating, &offer.Position, &offer.CreatedAt); err != nil {
		return fmt.Errorf("user repository: add offer %w", err)
	}
	return nil
}

// UpdateOffer меняет описательные поля. session_count и rating пересчитываются отдельно.
func (r *UserRepository) UpdateOffer(ctx context.Context, offer *models.SkillOffer) error {
	query := `
		UPDATE user_skill_offers
		SET name = $3, level = $4, category = $5, description = $6
		WHERE id = $1 AND user_id = $2
		RETURNING session_count, rating, position, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		offer.ID, offer.UserID, offer.Name, offer.Level, offer.Category, offer.Description,
	).Scan(&offer.SessionCount, &offer.Rating, &offer.Position, &offer.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSkillNotFound
		}
		return fmt.Errorf("user repository: update offer %w", err)
	}
	return nil
}

// DeleteOffer удаляет предложение навыка пользователя.
func (r *UserRepository) DeleteOffer(ctx context.Context, userID, offerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_skill_offers WHERE id = $1 AND user_id = $2`, offerID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete offer %w", err)
	}
	return expectAffected(res, ErrSkillNotFound)
}

// AddWant добавляет желаемый навык.
func (r *UserRepository) AddWant(ctx context.Context, want *models.SkillWant) error {
	query := `
		INSERT INTO user_skill_wants (user_id, name, level, category, priority, progress, position)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM user_skill_wants WHERE user_id = $1))
		RETURNING id, position, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		want.UserID, want.Name, want.Level, want.Category, want.Priority, want.Progress,
	).Scan(&want.ID, &want.Position, &want.CreatedAt); err != nil {
		return fmt.Errorf("user repository: add want %w", err)
	}
	return nil
}

// UpdateWant обновляет желаемый навык.
func (r *UserRepository) UpdateWant(ctx context.Context, want *models.SkillWant) error {
	query := `
		UPDATE user_skill_wants
		SET name = $3, level = $4, category = $5, priority = $6, progress = $7
		WHERE id = $1 AND user_id = $2
		RETURNING position, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		want.ID, want.UserID, want.Name, want.Level, want.Category, want.Priority, want.Progress,
	).Scan(&want.Position, &want.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSkillNotFound
		}
		return fmt.Errorf("user repository: update want %w", err)
	}
	return nil
}

// GetWant возвращает желаемый навык пользователя.
func (r *UserRepository) GetWant(ctx context.Context, userID, wantID uuid.UUID) (*models.SkillWant, error) {
	var want models.SkillWant
	query := `SELECT * FROM user_skill_wants WHERE id = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &want, query, wantID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("user repository: get want %w", err)
	}
	return &want, nil
}

// DeleteWant удаляет желаемый навык.
func (r *UserRepository) DeleteWant(ctx context.Context, userID, wantID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_skill_wants WHERE id = $1 AND user_id = $2`, wantID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete want %w", err)
	}
	return expectAffected(res, ErrSkillNotFound)
}

// loadSkills заполняет навыки для набора пользователей двумя запросами.
func (r *UserRepository) loadSkills(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(users))
	byID := make(map[uuid.UUID]*models.User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		u.SkillsOffered = []models.SkillOffer{}
		u.SkillsWanted = []models.SkillWant{}
		byID[u.ID] = u
	}

	var offers []models.SkillOffer
	query, args, err := sqlx.In(`SELECT * FROM user_skill_offers WHERE user_id IN (?) ORDER BY user_id, position, created_at`, ids)
	if err != nil {
		return fmt.Errorf("user repository: load offers %w", err)
	}
	if err := r.db.SelectContext(ctx, &offers, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("user repository: load offers %w", err)
	}
	for _, o := range offers {
		byID[o.UserID].SkillsOffered = append(byID[o.UserID].SkillsOffered, o)
	}

	var wants []models.SkillWant
	query, args, err = sqlx.In(`SELECT * FROM user_skill_wants WHERE user_id IN (?) ORDER BY user_id, position, created_at`, ids)
	if err != nil {
		return fmt.Errorf("user repository: load wants %w", err)
	}
	if err := r.db.SelectContext(ctx, &wants, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("user repository: load wants %w", err)
	}
	for _, w := range wants {
		byID[w.UserID].SkillsWanted = append(byID[w.UserID].SkillsWanted, w)
	}

	return nil
}

// CreateAuthSession сохраняет refresh-сессию.
func (r *UserRepository) CreateAuthSession(ctx context.Context, session *models.AuthSession) error {
	query := `
		INSERT INTO auth_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create auth session %w", err)
	}
	return nil
}

// GetAuthSession возвращает refresh-сессию по токену.
func (r *UserRepository) GetAuthSession(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	session, err := common.GetOne[models.AuthSession](ctx, r.db, "auth_sessions", "refresh_token", refreshToken, ErrAuthSessionNotFound)
	if err != nil && !errors.Is(err, ErrAuthSessionNotFound) {
		return nil, fmt.Errorf("user repository: get auth session %w", err)
	}
	return session, err
}

// DeleteAuthSession удаляет refresh-сессию.
func (r *UserRepository) DeleteAuthSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete auth session %w", err)
	}
	return nil
}

// DeleteAuthSessionsForUser завершает все сессии пользователя.
func (r *UserRepository) DeleteAuthSessionsForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: delete auth sessions %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
