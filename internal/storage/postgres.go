package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/cart"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/catalog"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/outbox"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore is the durable Store. One database holds carts, orders,
// products, offers, the outbox and the idempotency table so a command's
// writes share one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
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
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "estore_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &pgTx{tx: sqlTx}
	if err := fn(ctx, tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) CartByCustomer(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	return scanCart(ctx, s.db, customerID)
}

func (s *PostgresStore) Order(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return scanOrder(ctx, s.db, id)
}

// RefreshOfferStatuses re-derives every offer's status in one statement.
func (s *PostgresStore) RefreshOfferStatuses(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE offers SET status = derived.next FROM (
	            SELECT id, CASE
	              WHEN $1 > end_date THEN 'EXPIRED'
	              WHEN $1 < start_date THEN 'DRAFT'
	              ELSE 'PUBLISHED'
	            END AS next FROM offers
	          ) derived
	          WHERE offers.id = derived.id AND offers.status <> derived.next`
	res, err := s.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("refresh offer statuses: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// FetchPending implements outbox.Store.
func (s *PostgresStore) FetchPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	query := `SELECT id, type, content, occurred_at, processed_at, retry_count, done, error
	          FROM outbox WHERE done = false ORDER BY id LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Message
	for rows.Next() {
		var msg outbox.Message
		if err := rows.Scan(&msg.ID, &msg.Type, &msg.Content, &msg.OccurredAt,
			&msg.ProcessedAt, &msg.RetryCount, &msg.Done, &msg.Error); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// SaveResults implements outbox.Store: one relay run's updates, one tx.
func (s *PostgresStore) SaveResults(ctx context.Context, messages []outbox.Message) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	query := `UPDATE outbox SET processed_at = $2, retry_count = $3, done = $4, error = $5 WHERE id = $1`
	for _, msg := range messages {
		if _, err := sqlTx.ExecContext(ctx, query,
			msg.ID, msg.ProcessedAt, msg.RetryCount, msg.Done, msg.Error); err != nil {
			_ = sqlTx.Rollback()
			return fmt.Errorf("update outbox row %d: %w", msg.ID, err)
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit outbox updates: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx so the read paths are shared.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type pgTx struct {
	tx *sql.Tx
}

// ---- carts ----

type cartItemRec struct {
	ItemID   uuid.UUID `json:"item_id"`
	Type     string    `json:"type"`
	Quantity int       `json:"quantity"`
}

func scanCart(ctx context.Context, q querier, customerID uuid.UUID) (*cart.Cart, error) {
	query := `SELECT id, customer_id, items, updated_at FROM carts WHERE customer_id = $1`
	var (
		id        uuid.UUID
		custID    uuid.UUID
		itemsJSON []byte
		updatedAt time.Time
	)
	err := q.QueryRowContext(ctx, query, customerID).Scan(&id, &custID, &itemsJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	var recs []cartItemRec
	if err := json.Unmarshal(itemsJSON, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal cart items: %w", err)
	}
	items := make([]cart.CartItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, cart.CartItem{ItemID: rec.ItemID, Type: cart.ItemType(rec.Type), Quantity: rec.Quantity})
	}
	return cart.Restore(id, custID, items, updatedAt), nil
}

func (t *pgTx) CartByCustomer(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	return scanCart(ctx, t.tx, customerID)
}

func (t *pgTx) SaveCart(ctx context.Context, c *cart.Cart) error {
	recs := make([]cartItemRec, 0, c.Len())
	for _, item := range c.Items() {
		recs = append(recs, cartItemRec{ItemID: item.ItemID, Type: string(item.Type), Quantity: item.Quantity})
	}
	itemsJSON, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}

	query := `INSERT INTO carts (id, customer_id, items, updated_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (customer_id) DO UPDATE SET items = $3, updated_at = $4`
	if _, err := t.tx.ExecContext(ctx, query, c.ID, c.CustomerID, itemsJSON, c.UpdatedAt); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// ---- orders ----

type lineItemRec struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	PriceAmount    string     `json:"price_amount"`
	Type           string     `json:"type"`
	RelatedOfferID *uuid.UUID `json:"related_offer_id,omitempty"`
}

type shippingRec struct {
	ShippingCompany string `json:"shipping_company"`
	CompanyLocation string `json:"company_location"`
	PhoneNumber     string `json:"phone_number"`
}

func scanOrder(ctx context.Context, q querier, id uuid.UUID) (*order.Order, error) {
	query := `SELECT id, customer_id, status, shipping, total_amount, currency,
	                 line_items, requested_offers, version, created_at, updated_at
	          FROM orders WHERE id = $1`
	var (
		orderID      uuid.UUID
		customerID   uuid.UUID
		status       string
		shippingJSON []byte
		totalAmount  string
		currency     string
		itemsJSON    []byte
		offersJSON   []byte
		version      int
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := q.QueryRowContext(ctx, query, id).Scan(&orderID, &customerID, &status, &shippingJSON,
		&totalAmount, &currency, &itemsJSON, &offersJSON, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	var shipping shippingRec
	if err := json.Unmarshal(shippingJSON, &shipping); err != nil {
		return nil, fmt.Errorf("unmarshal shipping info: %w", err)
	}
	var itemRecs []lineItemRec
	if err := json.Unmarshal(itemsJSON, &itemRecs); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	var requestedOffers []uuid.UUID
	if err := json.Unmarshal(offersJSON, &requestedOffers); err != nil {
		return nil, fmt.Errorf("unmarshal requested offers: %w", err)
	}

	total, err := decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}
	lineItems := make([]order.LineItem, 0, len(itemRecs))
	for _, rec := range itemRecs {
		amount, err := decimal.NewFromString(rec.PriceAmount)
		if err != nil {
			return nil, fmt.Errorf("parse line item price: %w", err)
		}
		lineItems = append(lineItems, order.LineItem{
			ID:             rec.ID,
			OrderID:        orderID,
			ProductID:      rec.ProductID,
			Price:          money.New(amount, currency),
			Type:           order.LineItemType(rec.Type),
			RelatedOfferID: rec.RelatedOfferID,
		})
	}

	return order.Restore(orderID, customerID,
		order.ShippingInfo{
			ShippingCompany: shipping.ShippingCompany,
			CompanyLocation: shipping.CompanyLocation,
			PhoneNumber:     shipping.PhoneNumber,
		},
		order.Status(status), money.New(total, currency),
		lineItems, requestedOffers, version, createdAt, updatedAt), nil
}

func (t *pgTx) Order(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return scanOrder(ctx, t.tx, id)
}

func (t *pgTx) SaveOrder(ctx context.Context, o *order.Order) error {
	items := o.LineItems()
	itemRecs := make([]lineItemRec, 0, len(items))
	for _, li := range items {
		itemRecs = append(itemRecs, lineItemRec{
			ID:             li.ID,
			ProductID:      li.ProductID,
			PriceAmount:    li.Price.Amount.String(),
			Type:           string(li.Type),
			RelatedOfferID: li.RelatedOfferID,
		})
	}
	itemsJSON, err := json.Marshal(itemRecs)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}
	offersJSON, err := json.Marshal(o.RequestedOfferIDs())
	if err != nil {
		return fmt.Errorf("marshal requested offers: %w", err)
	}
	shippingJSON, err := json.Marshal(shippingRec{
		ShippingCompany: o.ShippingInfo.ShippingCompany,
		CompanyLocation: o.ShippingInfo.CompanyLocation,
		PhoneNumber:     o.ShippingInfo.PhoneNumber,
	})
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}

	// optimistic concurrency: the update only lands when the stored version
	// still matches the one we loaded
	query := `INSERT INTO orders (id, customer_id, status, shipping, total_amount, currency,
	                              line_items, requested_offers, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9 + 1, $10, $11)
	          ON CONFLICT (id) DO UPDATE SET
	            status = $3, shipping = $4, total_amount = $5, currency = $6,
	            line_items = $7, requested_offers = $8, version = $9 + 1, updated_at = $11
	          WHERE orders.version = $9`
	res, err := t.tx.ExecContext(ctx, query,
		o.ID, o.CustomerID, string(o.Status()), shippingJSON,
		o.TotalPrice().Amount.String(), o.TotalPrice().Currency,
		itemsJSON, offersJSON, o.Version, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ---- products ----

func (t *pgTx) Products(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]*catalog.Product{}, nil
	}
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, id.String())
	}
	query := `SELECT id, name, description, price_amount, currency, quantity, status, version, updated_at
	          FROM products WHERE id = ANY($1)`
	rows, err := t.tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*catalog.Product)
	for rows.Next() {
		var (
			p           catalog.Product
			priceAmount string
			currency    string
			status      string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &priceAmount, &currency,
			&p.Quantity, &status, &p.Version, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		amount, err := decimal.NewFromString(priceAmount)
		if err != nil {
			return nil, fmt.Errorf("parse product price: %w", err)
		}
		p.Price = money.New(amount, currency)
		p.Status = catalog.ProductStatus(status)
		out[p.ID] = &p
	}
	return out, rows.Err()
}

func (t *pgTx) SaveProducts(ctx context.Context, products []*catalog.Product) error {
	query := `INSERT INTO products (id, name, description, price_amount, currency, quantity, status, version, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8 + 1, $9)
	          ON CONFLICT (id) DO UPDATE SET
	            name = $2, description = $3, price_amount = $4, currency = $5,
	            quantity = $6, status = $7, version = $8 + 1, updated_at = $9
	          WHERE products.version = $8`
	for _, p := range products {
		res, err := t.tx.ExecContext(ctx, query,
			p.ID, p.Name, p.Description, p.Price.Amount.String(), p.Price.Currency,
			p.Quantity, string(p.Status), p.Version, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save product %s: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}
	}
	return nil
}

// ---- offers ----

func (t *pgTx) Offers(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*catalog.Offer, error) {
	if len(offerIDs) == 0 {
		return map[uuid.UUID]*catalog.Offer{}, nil
	}
	ids := make([]string, 0, len(offerIDs))
	for _, id := range offerIDs {
		ids = append(ids, id.String())
	}
	query := `SELECT id, name, description, type, status, start_date, end_date,
	                 product_id, product_ids, discount
	          FROM offers WHERE id = ANY($1)`
	rows, err := t.tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*catalog.Offer)
	for rows.Next() {
		var (
			o           catalog.Offer
			offerType   string
			status      string
			productID   uuid.NullUUID
			productsRaw []byte
			discount    string
		)
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &offerType, &status,
			&o.StartDate, &o.EndDate, &productID, &productsRaw, &discount); err != nil {
			return nil, fmt.Errorf("scan offer row: %w", err)
		}
		if productID.Valid {
			o.ProductID = productID.UUID
		}
		if err := json.Unmarshal(productsRaw, &o.ProductIDs); err != nil {
			return nil, fmt.Errorf("unmarshal offer products: %w", err)
		}
		d, err := decimal.NewFromString(discount)
		if err != nil {
			return nil, fmt.Errorf("parse offer discount: %w", err)
		}
		o.Type = catalog.OfferType(offerType)
		o.Status = catalog.OfferStatus(status)
		o.Discount = d
		out[o.ID] = &o
	}
	return out, rows.Err()
}

func (t *pgTx) SaveOffers(ctx context.Context, offers []*catalog.Offer) error {
	query := `INSERT INTO offers (id, name, description, type, status, start_date, end_date,
	                              product_id, product_ids, discount)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          ON CONFLICT (id) DO UPDATE SET
	            name = $2, description = $3, type = $4, status = $5, start_date = $6,
	            end_date = $7, product_id = $8, product_ids = $9, discount = $10`
	for _, o := range offers {
		productsJSON, err := json.Marshal(o.ProductIDs)
		if err != nil {
			return fmt.Errorf("marshal offer products: %w", err)
		}
		var productID *uuid.UUID
		if o.ProductID != uuid.Nil {
			productID = &o.ProductID
		}
		if _, err := t.tx.ExecContext(ctx, query,
			o.ID, o.Name, o.Description, string(o.Type), string(o.Status),
			o.StartDate, o.EndDate, productID, productsJSON, o.Discount.String()); err != nil {
			return fmt.Errorf("save offer %s: %w", o.ID, err)
		}
	}
	return nil
}

// ---- outbox & idempotency ----

func (t *pgTx) AppendOutbox(ctx context.Context, envelopes []event.Envelope) error {
	query := `INSERT INTO outbox (type, content, occurred_at, retry_count, done)
	          VALUES ($1, $2, $3, 0, false)`
	for _, env := range envelopes {
		content, err := env.Encode()
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, query, env.Type, content, env.OccurredAt); err != nil {
			return fmt.Errorf("append outbox message: %w", err)
		}
	}
	return nil
}

func (t *pgTx) InsertIdempotentRequest(ctx context.Context, id uuid.UUID, commandName string) error {
	query := `INSERT INTO idempotent_requests (id, command_name, created_at) VALUES ($1, $2, $3)`
	_, err := t.tx.ExecContext(ctx, query, id, commandName, time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("insert idempotent request: %w", err)
	}
	return nil
}
