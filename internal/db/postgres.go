package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.DBName, cfg.DB.SSLMode, cfg.DB.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.DB.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.DB.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.DB.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitSchema creates the tables on first start and seeds the director row and
// the default categories.
func (db *PostgresDB) InitSchema(ctx context.Context, directorID int64) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	_, err := db.pool.Exec(ctx, `
        INSERT INTO users (telegram_id, role)
        VALUES ($1, 'director')
        ON CONFLICT (telegram_id) DO NOTHING
    `, directorID)
	if err != nil {
		return fmt.Errorf("failed to seed director: %w", err)
	}

	defaultCategories := []struct {
		name  string
		emoji string
		sort  int
	}{
		{"Завтраки", "🍳", 1},
		{"Закуски", "🥗", 2},
		{"Салаты", "🥬", 3},
		{"Основные", "🍝", 4},
		{"Напитки", "🥤", 5},
	}
	for _, c := range defaultCategories {
		_, err := db.pool.Exec(ctx, `
            INSERT INTO categories (name, emoji, sort_order)
            VALUES ($1, $2, $3)
            ON CONFLICT (name) DO NOTHING
        `, c.name, c.emoji, c.sort)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.name, err)
		}
	}
	return nil
}

const schema = `
    CREATE TABLE IF NOT EXISTS users (
        telegram_id      BIGINT PRIMARY KEY,
        username         TEXT NOT NULL DEFAULT '',
        first_name       TEXT NOT NULL DEFAULT '',
        last_name        TEXT NOT NULL DEFAULT '',
        phone            TEXT NOT NULL DEFAULT '',
        address          TEXT NOT NULL DEFAULT '',
        role             TEXT NOT NULL DEFAULT 'customer'
                         CHECK (role IN ('director', 'admin', 'courier', 'customer')),
        balance_bonus    BIGINT NOT NULL DEFAULT 0 CHECK (balance_bonus >= 0),
        balance_cashback BIGINT NOT NULL DEFAULT 0 CHECK (balance_cashback >= 0),
        created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS categories (
        id         BIGSERIAL PRIMARY KEY,
        name       TEXT NOT NULL UNIQUE,
        emoji      TEXT NOT NULL DEFAULT '🍽',
        sort_order INT NOT NULL DEFAULT 0,
        is_active  BOOLEAN NOT NULL DEFAULT true
    );

    CREATE TABLE IF NOT EXISTS menu_items (
        id           BIGSERIAL PRIMARY KEY,
        category_id  BIGINT NOT NULL REFERENCES categories(id),
        name         TEXT NOT NULL,
        description  TEXT NOT NULL DEFAULT '',
        price        BIGINT NOT NULL CHECK (price >= 0),
        image_url    TEXT NOT NULL DEFAULT '',
        is_available BOOLEAN NOT NULL DEFAULT true,
        is_new       BOOLEAN NOT NULL DEFAULT false,
        sort_order   INT NOT NULL DEFAULT 0,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS orders (
        id                BIGSERIAL PRIMARY KEY,
        user_id           BIGINT NOT NULL REFERENCES users(telegram_id),
        items             JSONB NOT NULL,
        total_price       BIGINT NOT NULL CHECK (total_price >= 0),
        bonus_used        BIGINT NOT NULL DEFAULT 0,
        delivery_address  TEXT NOT NULL,
        status            TEXT NOT NULL DEFAULT 'created'
                          CHECK (status IN ('created', 'accepted', 'in_delivery', 'delivered', 'cancelled')),
        courier_id        BIGINT REFERENCES users(telegram_id),
        payment_method    TEXT NOT NULL DEFAULT 'card',
        cashback_credited BOOLEAN NOT NULL DEFAULT false,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS stories (
        id          BIGSERIAL PRIMARY KEY,
        title       TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        image_url   TEXT NOT NULL DEFAULT '',
        link        TEXT NOT NULL DEFAULT '',
        story_type  TEXT NOT NULL DEFAULT 'promo'
                    CHECK (story_type IN ('promo', 'new', 'channel')),
        is_active   BOOLEAN NOT NULL DEFAULT true,
        sort_order  INT NOT NULL DEFAULT 0,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );
`

// ============ USERS ============

func (db *PostgresDB) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
        SELECT telegram_id, username, first_name, last_name, phone, address,
               role, balance_bonus, balance_cashback, created_at, updated_at
        FROM users
        WHERE telegram_id = $1
    `

	var user models.User
	err := db.pool.QueryRow(ctx, query, telegramID).Scan(
		&user.TelegramID, &user.Username, &user.FirstName, &user.LastName,
		&user.Phone, &user.Address, &user.Role,
		&user.BonusBalance, &user.CashbackBalance,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("user %d not found", telegramID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (db *PostgresDB) UpsertUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	query := `
        INSERT INTO users (telegram_id, username, first_name, last_name, role, balance_bonus)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (telegram_id) DO UPDATE
        SET username = EXCLUDED.username,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            updated_at = now()
    `

	_, err := db.pool.Exec(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName,
		user.Role, user.BonusBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *PostgresDB) UpdateUserRole(ctx context.Context, telegramID int64, role models.Role) error {
	ct, err := db.pool.Exec(ctx, `
        UPDATE users SET role = $2, updated_at = now()
        WHERE telegram_id = $1
    `, telegramID, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("user %d not found", telegramID)
	}
	return nil
}

func (db *PostgresDB) UpdateUserAddress(ctx context.Context, telegramID int64, address string) error {
	ct, err := db.pool.Exec(ctx, `
        UPDATE users SET address = $2, updated_at = now()
        WHERE telegram_id = $1
    `, telegramID, address)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("user %d not found", telegramID)
	}
	return nil
}

func (db *PostgresDB) UpdateUserPhone(ctx context.Context, telegramID int64, phone string) error {
	ct, err := db.pool.Exec(ctx, `
        UPDATE users SET phone = $2, updated_at = now()
        WHERE telegram_id = $1
    `, telegramID, phone)
	if err != nil {
		return fmt.Errorf("failed to update phone: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("user %d not found", telegramID)
	}
	return nil
}

func (db *PostgresDB) UsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := db.pool.Query(ctx, `
        SELECT telegram_id, username, first_name, last_name, phone, address,
               role, balance_bonus, balance_cashback, created_at, updated_at
        FROM users
        WHERE role = $1
        ORDER BY created_at
    `, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.TelegramID, &user.Username, &user.FirstName, &user.LastName,
			&user.Phone, &user.Address, &user.Role,
			&user.BonusBalance, &user.CashbackBalance,
			&user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (db *PostgresDB) SpendBonus(ctx context.Context, telegramID int64, amount int64) error {
	// The balance check and the deduction are one conditional write, so two
	// concurrent spends cannot both pass on a stale balance.
	ct, err := db.pool.Exec(ctx, `
        UPDATE users SET balance_bonus = balance_bonus - $2, updated_at = now()
        WHERE telegram_id = $1 AND balance_bonus >= $2
    `, telegramID, amount)
	if err != nil {
		return fmt.Errorf("failed to spend bonus: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := db.GetUser(ctx, telegramID); err != nil {
			return err
		}
		return domain.Validation("insufficient bonus balance")
	}
	return nil
}

func (db *PostgresDB) RefundBonus(ctx context.Context, telegramID int64, amount int64) error {
	ct, err := db.pool.Exec(ctx, `
        UPDATE users SET balance_bonus = balance_bonus + $2, updated_at = now()
        WHERE telegram_id = $1
    `, telegramID, amount)
	if err != nil {
		return fmt.Errorf("failed to refund bonus: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("user %d not found", telegramID)
	}
	return nil
}

// ============ MENU ============

func (db *PostgresDB) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.pool.Query(ctx, `
        SELECT id, name, emoji, sort_order, is_active
        FROM categories
        WHERE is_active
        ORDER BY sort_order
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Emoji, &cat.SortOrder, &cat.Active); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func (db *PostgresDB) UpsertCategory(ctx context.Context, cat *models.Category) error {
	query := `
        INSERT INTO categories (name, emoji, sort_order, is_active)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (name) DO UPDATE
        SET emoji = EXCLUDED.emoji,
            sort_order = EXCLUDED.sort_order,
            is_active = EXCLUDED.is_active
        RETURNING id
    `
	err := db.pool.QueryRow(ctx, query, cat.Name, cat.Emoji, cat.SortOrder, cat.Active).Scan(&cat.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

func (db *PostgresDB) MenuItems(ctx context.Context, categoryID int64, availableOnly bool) ([]models.MenuItem, error) {
	query := `
        SELECT m.id, m.category_id, m.name, m.description, m.price, m.image_url,
               m.is_available, m.is_new, m.sort_order, m.created_at
        FROM menu_items m
        JOIN categories c ON m.category_id = c.id
        WHERE ($1 = 0 OR m.category_id = $1)
          AND (NOT $2 OR m.is_available)
        ORDER BY c.sort_order, m.sort_order, m.id
    `
	rows, err := db.pool.Query(ctx, query, categoryID, availableOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(
			&item.ID, &item.CategoryID, &item.Name, &item.Description, &item.Price,
			&item.ImageURL, &item.Available, &item.IsNew, &item.SortOrder, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *PostgresDB) MenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	var item models.MenuItem
	err := db.pool.QueryRow(ctx, `
        SELECT id, category_id, name, description, price, image_url,
               is_available, is_new, sort_order, created_at
        FROM menu_items
        WHERE id = $1
    `, id).Scan(
		&item.ID, &item.CategoryID, &item.Name, &item.Description, &item.Price,
		&item.ImageURL, &item.Available, &item.IsNew, &item.SortOrder, &item.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("menu item %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return &item, nil
}

func (db *PostgresDB) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	query := `
        INSERT INTO menu_items (category_id, name, description, price, image_url, is_available, is_new, sort_order)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at
    `
	err := db.pool.QueryRow(ctx, query,
		item.CategoryID, item.Name, item.Description, item.Price,
		item.ImageURL, item.Available, item.IsNew, item.SortOrder,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}

func (db *PostgresDB) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	ct, err := db.pool.Exec(ctx, `
        UPDATE menu_items
        SET category_id = $2, name = $3, description = $4, price = $5,
            image_url = $6, is_available = $7, is_new = $8, sort_order = $9
        WHERE id = $1
    `, item.ID, item.CategoryID, item.Name, item.Description, item.Price,
		item.ImageURL, item.Available, item.IsNew, item.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("menu item %d not found", item.ID)
	}
	return nil
}

func (db *PostgresDB) DeleteMenuItem(ctx context.Context, id int64) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("menu item %d not found", id)
	}
	return nil
}

// ============ ORDERS ============

func (db *PostgresDB) CreateOrder(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `
        INSERT INTO orders (user_id, items, total_price, bonus_used, delivery_address, status, payment_method)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err = db.pool.QueryRow(ctx, query,
		order.UserID, items, order.TotalPrice, order.BonusUsed,
		order.DeliveryAddress, order.Status, order.PaymentMethod,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

const orderColumns = `
        id, user_id, items, total_price, bonus_used, delivery_address,
        status, courier_id, payment_method, cashback_credited, created_at, updated_at
`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var items []byte
	err := row.Scan(
		&order.ID, &order.UserID, &items, &order.TotalPrice, &order.BonusUsed,
		&order.DeliveryAddress, &order.Status, &order.CourierID,
		&order.PaymentMethod, &order.CashbackCredited,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	return &order, nil
}

func (db *PostgresDB) Order(ctx context.Context, id int64) (*models.Order, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("order %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (db *PostgresDB) ordersQuery(ctx context.Context, where string, args ...interface{}) ([]models.Order, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (db *PostgresDB) OrdersForUser(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	return db.ordersQuery(ctx, `WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

func (db *PostgresDB) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	return db.ordersQuery(ctx, `WHERE status NOT IN ('delivered', 'cancelled') ORDER BY created_at`)
}

func (db *PostgresDB) OrdersForCourier(ctx context.Context, courierID int64) ([]models.Order, error) {
	return db.ordersQuery(ctx, `WHERE courier_id = $1 AND status IN ('accepted', 'in_delivery') ORDER BY created_at`, courierID)
}

func (db *PostgresDB) TransitionOrder(ctx context.Context, id int64, from, to models.OrderStatus, courierID *int64) error {
	// Conditional on the expected current status: of two concurrent
	// transitions only one sees the row in the expected state.
	ct, err := db.pool.Exec(ctx, `
        UPDATE orders
        SET status = $2, courier_id = COALESCE($3, courier_id), updated_at = now()
        WHERE id = $1 AND status = $4
    `, id, to, courierID, from)
	if err != nil {
		return fmt.Errorf("failed to transition order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		order, err := db.Order(ctx, id)
		if err != nil {
			return err
		}
		return domain.InvalidTransition("order %d is %s, expected %s", id, order.Status, from)
	}
	return nil
}

func (db *PostgresDB) CreditDeliveryCashback(ctx context.Context, orderID int64, amount int64) (bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The credited flag flips at most once per order, which is what makes
	// the credit idempotent.
	var userID int64
	err = tx.QueryRow(ctx, `
        UPDATE orders
        SET cashback_credited = true, updated_at = now()
        WHERE id = $1 AND status = 'delivered' AND NOT cashback_credited
        RETURNING user_id
    `, orderID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark cashback credited: %w", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE users SET balance_cashback = balance_cashback + $2, updated_at = now()
        WHERE telegram_id = $1
    `, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to credit cashback: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit cashback credit: %w", err)
	}
	return true, nil
}

// ============ STORIES ============

func (db *PostgresDB) ActiveStories(ctx context.Context) ([]models.Story, error) {
	rows, err := db.pool.Query(ctx, `
        SELECT id, title, description, image_url, link, story_type, is_active, sort_order, created_at
        FROM stories
        WHERE is_active
        ORDER BY sort_order, id
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var story models.Story
		if err := rows.Scan(
			&story.ID, &story.Title, &story.Description, &story.ImageURL,
			&story.Link, &story.Type, &story.Active, &story.SortOrder, &story.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

func (db *PostgresDB) CreateStory(ctx context.Context, story *models.Story) error {
	query := `
        INSERT INTO stories (title, description, image_url, link, story_type, is_active, sort_order)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err := db.pool.QueryRow(ctx, query,
		story.Title, story.Description, story.ImageURL, story.Link,
		story.Type, story.Active, story.SortOrder,
	).Scan(&story.ID, &story.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

func (db *PostgresDB) UpdateStory(ctx context.Context, story *models.Story) error {
	ct, err := db.pool.Exec(ctx, `
        UPDATE stories
        SET title = $2, description = $3, image_url = $4, link = $5,
            story_type = $6, is_active = $7, sort_order = $8
        WHERE id = $1
    `, story.ID, story.Title, story.Description, story.ImageURL, story.Link,
		story.Type, story.Active, story.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("story %d not found", story.ID)
	}
	return nil
}

func (db *PostgresDB) DeleteStory(ctx context.Context, id int64) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("story %d not found", id)
	}
	return nil
}

// ============ STATS ============

func (db *PostgresDB) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM users`, &stats.TotalUsers},
		{`SELECT COUNT(*) FROM orders`, &stats.TotalOrders},
		{`SELECT COUNT(*) FROM orders WHERE created_at::date = now()::date`, &stats.TodayOrders},
		{`SELECT COUNT(*) FROM orders WHERE status NOT IN ('delivered', 'cancelled')`, &stats.ActiveOrders},
		{`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE status = 'delivered'`, &stats.DeliveredRevenue},
	}
	for _, q := range queries {
		if err := db.pool.QueryRow(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to collect stats: %w", err)
		}
	}
	return &stats, nil
}
