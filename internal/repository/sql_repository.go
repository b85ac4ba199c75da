package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// Repository is the database/sql store shared by the SQLite and Postgres
// backends. Queries use $n placeholders, which both drivers accept.
type Repository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one writer; an in-memory database also lives on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db, driver: driverSQLite, now: time.Now}, nil
}

func NewPostgresRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db, driver: driverPostgres, now: time.Now}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	var (
		m   *migrate.Migrate
		err error
	)
	source := fmt.Sprintf("file://%s", migrationsPath)

	switch r.driver {
	case driverSQLite:
		driver, errDriver := sqlite.WithInstance(r.db, &sqlite.Config{})
		if errDriver != nil {
			return fmt.Errorf("could not create migration driver: %w", errDriver)
		}
		m, err = migrate.NewWithDatabaseInstance(source, "sqlite", driver)
	case driverPostgres:
		driver, errDriver := postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "oby_schema_migrations",
		})
		if errDriver != nil {
			return fmt.Errorf("could not create migration driver: %w", errDriver)
		}
		m, err = migrate.NewWithDatabaseInstance(source, "postgres", driver)
	default:
		return fmt.Errorf("unsupported driver %q", r.driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Offers

func (r *Repository) ListOffers(ctx context.Context) ([]domain.Offer, error) {
	query := `
		SELECT name, description, price_integer, price_fraction
		FROM offers
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	offers := make([]domain.Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return offers, nil
}

func (r *Repository) GetOffer(ctx context.Context, name string) (domain.Offer, error) {
	query := `
		SELECT name, description, price_integer, price_fraction
		FROM offers
		WHERE name = $1
	`

	o, err := scanOffer(r.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, ErrOfferNotFound
	}
	return o, err
}

func (r *Repository) UpsertOffer(ctx context.Context, offer domain.Offer) error {
	query := `
		INSERT INTO offers (name, description, price_integer, price_fraction)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			price_integer = excluded.price_integer,
			price_fraction = excluded.price_fraction
	`

	_, err := r.db.ExecContext(ctx, query,
		offer.ID,
		offer.Description,
		offer.UnitPrice.Units().String(),
		offer.UnitPrice.Hundredths())
	if err != nil {
		return fmt.Errorf("upsert offer: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOffer(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offers WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	return expectAffected(res, ErrOfferNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var (
		o        domain.Offer
		units    string
		fraction int64
	)
	if err := row.Scan(&o.ID, &o.Description, &units, &fraction); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Offer{}, err
		}
		return domain.Offer{}, fmt.Errorf("failed to scan offer: %w", err)
	}

	price, err := money.ParseParts(units, strconv.FormatInt(fraction, 10))
	if err != nil {
		return domain.Offer{}, fmt.Errorf("offer %q: %w", o.ID, err)
	}
	o.UnitPrice = price
	return o, nil
}

// Tables

func (r *Repository) ListTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, order_count FROM dining_tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := make([]domain.Table, 0)
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.Name, &t.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tables, nil
}

func (r *Repository) GetTable(ctx context.Context, name string) (domain.Table, error) {
	var t domain.Table
	err := r.db.QueryRowContext(ctx,
		`SELECT name, order_count FROM dining_tables WHERE name = $1`, name).
		Scan(&t.Name, &t.OrderCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, ErrTableNotFound
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("query table: %w", err)
	}
	return t, nil
}

func (r *Repository) UpsertTable(ctx context.Context, table domain.Table) error {
	query := `
		INSERT INTO dining_tables (name, order_count)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET order_count = excluded.order_count
	`

	if _, err := r.db.ExecContext(ctx, query, table.Name, table.OrderCount); err != nil {
		return fmt.Errorf("upsert table: %w", err)
	}
	return nil
}

// DeleteTable removes the table together with its orders.
func (r *Repository) DeleteTable(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM dining_tables WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	if err := expectAffected(res, ErrTableNotFound); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE table_name = $1`, name); err != nil {
		return fmt.Errorf("delete table order items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE table_name = $1`, name); err != nil {
		return fmt.Errorf("delete table orders: %w", err)
	}

	return tx.Commit()
}

// Orders

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int64
	err = tx.QueryRowContext(ctx,
		`UPDATE dining_tables SET order_count = order_count + 1 WHERE name = $1 RETURNING order_count`,
		order.ID.Table).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTableNotFound
	}
	if err != nil {
		return fmt.Errorf("next order count: %w", err)
	}

	order.ID.Count = count
	order.Finished = false
	order.CreatedAt = r.now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (table_name, count, finished, total, created_at) VALUES ($1, $2, $3, $4, $5)`,
		order.ID.Table,
		order.ID.Count,
		order.Finished,
		order.Total.String(),
		order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (table_name, order_count, line_no, offer_name, count) VALUES ($1, $2, $3, $4, $5)`,
			order.ID.Table, order.ID.Count, i, item.OfferID, item.Count)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := r.insertEvent(ctx, tx, domain.EventOrderPlaced, *order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	return getOrder(ctx, r.db, id)
}

func (r *Repository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Table != "" {
		args = append(args, filter.Table)
		conds = append(conds, fmt.Sprintf("table_name = $%d", len(args)))
	}
	switch filter.Status {
	case domain.OrderStatusNew:
		args = append(args, false)
		conds = append(conds, fmt.Sprintf("finished = $%d", len(args)))
	case domain.OrderStatusOld:
		args = append(args, true)
		conds = append(conds, fmt.Sprintf("finished = $%d", len(args)))
	}

	query := `SELECT table_name, count, finished, total, created_at FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, table_name, count"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	// items are loaded after the order cursor is released; SQLite runs on one connection
	for i := range orders {
		items, err := getItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id domain.OrderID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM orders WHERE table_name = $1 AND count = $2`, id.Table, id.Count)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if err := expectAffected(res, ErrOrderNotFound); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM order_items WHERE table_name = $1 AND order_count = $2`, id.Table, id.Count); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	return tx.Commit()
}

// FinishOrder is idempotent: finishing an already finished order records no
// second event.
func (r *Repository) FinishOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET finished = $1 WHERE table_name = $2 AND count = $3 AND finished = $4`,
		true, id.Table, id.Count, false)
	if err != nil {
		return domain.Order{}, fmt.Errorf("finish order: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}

	order, err := getOrder(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if changed > 0 {
		if err := r.insertEvent(ctx, tx, domain.EventOrderFinished, order); err != nil {
			return domain.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit finish: %w", err)
	}
	return order, nil
}

func getOrder(ctx context.Context, q querier, id domain.OrderID) (domain.Order, error) {
	row := q.QueryRowContext(ctx,
		`SELECT table_name, count, finished, total, created_at FROM orders WHERE table_name = $1 AND count = $2`,
		id.Table, id.Count)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	o.Items, err = getItems(ctx, q, id)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o     domain.Order
		total string
	)
	if err := row.Scan(&o.ID.Table, &o.ID.Count, &o.Finished, &total, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("failed to scan order: %w", err)
	}

	t, err := money.Parse(total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s/%d total: %w", o.ID.Table, o.ID.Count, err)
	}
	o.Total = t
	return o, nil
}

func getItems(ctx context.Context, q querier, id domain.OrderID) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT offer_name, count FROM order_items WHERE table_name = $1 AND order_count = $2 ORDER BY line_no`,
		id.Table, id.Count)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OfferID, &item.Count); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// Outbox

func (r *Repository) insertEvent(ctx context.Context, q querier, eventType string, order domain.Order) error {
	now := r.now().UTC()
	event := domain.OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		Table:      order.ID.Table,
		Count:      order.ID.Count,
		Finished:   order.Finished,
		Items:      make([]domain.EventItem, len(order.Items)),
		Total:      order.Total.String(),
		OccurredAt: now,
	}
	for i, item := range order.Items {
		event.Items[i] = domain.EventItem{OfferID: item.OfferID, Count: item.Count}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at, processed) VALUES ($1, $2, $3, $4, $5)`,
		AggregateID(order.ID), eventType, string(payload), now, false)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at FROM outbox_events WHERE processed = $1 ORDER BY id LIMIT $2`,
		false, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			e       domain.OutboxEvent
			payload string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Payload = []byte(payload)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = $1, processed_at = $2 WHERE id = $3`,
		true, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return expectAffected(res, fmt.Errorf("outbox event %d not found", id))
}

// AggregateID is the Kafka key for an order: "table/count".
func AggregateID(id domain.OrderID) string {
	return fmt.Sprintf("%s/%d", id.Table, id.Count)
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
