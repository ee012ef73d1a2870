package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/someout/market-bot/internal/models"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyModerated is returned when a moderation decision targets a
	// request that already left the pending state.
	ErrAlreadyModerated = errors.New("request already moderated")
)

type Store struct {
	conn *sql.DB
}

// Open opens (creating if needed) the SQLite database and applies the
// schema. Safe to call on every start.
func Open(path string) (*Store, error) {
	connStr := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_profile (
		user_id          INTEGER PRIMARY KEY,
		accepted         INTEGER NOT NULL DEFAULT 0,
		first_seen       DATETIME,
		delivery_name    TEXT,
		delivery_phone   TEXT,
		delivery_address TEXT,
		payout_name      TEXT,
		payout_card      TEXT,
		payout_bank      TEXT
	);

	CREATE TABLE IF NOT EXISTS requests (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id       INTEGER NOT NULL,
		private_title TEXT NOT NULL,
		item_title    TEXT NOT NULL,
		description   TEXT NOT NULL,
		photo_file_id TEXT,
		status        TEXT NOT NULL DEFAULT 'pending',
		created_at    DATETIME NOT NULL,
		moderated_at  DATETIME,
		reject_reason TEXT
	);

	CREATE TABLE IF NOT EXISTS offers (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id    INTEGER NOT NULL,
		seller_id     INTEGER NOT NULL,
		price         TEXT    NOT NULL,
		days          INTEGER NOT NULL,
		cond          INTEGER NOT NULL,
		photo_file_id TEXT,
		created_at    DATETIME NOT NULL,
		FOREIGN KEY (request_id) REFERENCES requests(id)
	);

	CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_offers_request ON offers(request_id);
	CREATE INDEX IF NOT EXISTS idx_offers_seller ON offers(seller_id);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// EnsureProfile creates the profile row on first contact. first_seen is set
// once and never moved.
func (s *Store) EnsureProfile(userID int64) error {
	_, err := s.conn.Exec(
		`INSERT OR IGNORE INTO user_profile (user_id) VALUES (?)`, userID,
	)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		`UPDATE user_profile SET first_seen = COALESCE(first_seen, ?) WHERE user_id = ?`,
		time.Now().UTC(), userID,
	)
	return err
}

// SetAccepted flips the one-way terms-acceptance flag.
func (s *Store) SetAccepted(userID int64) error {
	_, err := s.conn.Exec(`UPDATE user_profile SET accepted = 1 WHERE user_id = ?`, userID)
	return err
}

// IsAccepted reports whether the user accepted the terms. Unknown users
// read as not accepted.
func (s *Store) IsAccepted(userID int64) (bool, error) {
	var accepted bool
	err := s.conn.QueryRow(
		`SELECT accepted FROM user_profile WHERE user_id = ?`, userID,
	).Scan(&accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return accepted, err
}

// GetProfile retrieves a profile by user id.
func (s *Store) GetProfile(userID int64) (*models.UserProfile, error) {
	var (
		p         models.UserProfile
		firstSeen sql.NullTime
		dName     sql.NullString
		dPhone    sql.NullString
		dAddr     sql.NullString
		pName     sql.NullString
		pCard     sql.NullString
		pBank     sql.NullString
	)

	err := s.conn.QueryRow(
		`SELECT user_id, accepted, first_seen,
		        delivery_name, delivery_phone, delivery_address,
		        payout_name, payout_card, payout_bank
		 FROM user_profile WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Accepted, &firstSeen, &dName, &dPhone, &dAddr, &pName, &pCard, &pBank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if firstSeen.Valid {
		p.FirstSeen = &firstSeen.Time
	}
	if dName.Valid || dPhone.Valid || dAddr.Valid {
		p.Delivery = &models.DeliveryContact{
			FullName: dName.String,
			Phone:    dPhone.String,
			Address:  dAddr.String,
		}
	}
	if pName.Valid || pCard.Valid || pBank.Valid {
		p.Payout = &models.PayoutContact{
			FullName: pName.String,
			Card:     pCard.String,
			Bank:     pBank.String,
		}
	}

	return &p, nil
}

// SaveDeliveryContact replaces the whole delivery bundle in one statement.
func (s *Store) SaveDeliveryContact(userID int64, c models.DeliveryContact) error {
	_, err := s.conn.Exec(
		`UPDATE user_profile
		    SET delivery_name = ?, delivery_phone = ?, delivery_address = ?
		  WHERE user_id = ?`,
		c.FullName, c.Phone, c.Address, userID,
	)
	return err
}

// SavePayoutContact replaces the whole payout bundle in one statement.
func (s *Store) SavePayoutContact(userID int64, c models.PayoutContact) error {
	_, err := s.conn.Exec(
		`UPDATE user_profile
		    SET payout_name = ?, payout_card = ?, payout_bank = ?
		  WHERE user_id = ?`,
		c.FullName, c.Card, c.Bank, userID,
	)
	return err
}

// InsertRequest creates a new request in pending status.
func (s *Store) InsertRequest(userID int64, privateTitle, itemTitle, description, photoFileID string) (*models.Request, error) {
	now := time.Now().UTC()
	result, err := s.conn.Exec(
		`INSERT INTO requests (user_id, private_title, item_title, description, photo_file_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, privateTitle, itemTitle, description, nullable(photoFileID), models.StatusPending, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Request{
		ID:           id,
		UserID:       userID,
		PrivateTitle: privateTitle,
		ItemTitle:    itemTitle,
		Description:  description,
		PhotoFileID:  photoFileID,
		Status:       models.StatusPending,
		CreatedAt:    now,
	}, nil
}

// GetRequest retrieves a request by id.
func (s *Store) GetRequest(id int64) (*models.Request, error) {
	row := s.conn.QueryRow(
		`SELECT id, user_id, private_title, item_title, description, photo_file_id,
		        status, created_at, moderated_at, reject_reason
		 FROM requests WHERE id = ?`, id,
	)
	return scanRequest(row)
}

// ListUserRequests returns the user's requests newest-first.
func (s *Store) ListUserRequests(userID int64) ([]models.Request, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, private_title, item_title, description, photo_file_id,
		        status, created_at, moderated_at, reject_reason
		 FROM requests WHERE user_id = ? ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}

	return requests, rows.Err()
}

// CountUserRequests returns how many requests the user has placed.
func (s *Store) CountUserRequests(userID int64) (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM requests WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// CountSellerOffers returns how many offers the user has sent.
func (s *Store) CountSellerOffers(userID int64) (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM offers WHERE seller_id = ?`, userID).Scan(&n)
	return n, err
}

// UpdateRequestField overwrites one content field of an existing request.
// Status is deliberately not checked: owners may edit requests after
// moderation, matching the product behavior.
func (s *Store) UpdateRequestField(id int64, field models.RequestField, value string) error {
	var column string
	switch field {
	case models.FieldPrivateTitle:
		column = "private_title"
	case models.FieldItemTitle:
		column = "item_title"
	case models.FieldDescription:
		column = "description"
	case models.FieldPhoto:
		column = "photo_file_id"
	default:
		return fmt.Errorf("unknown request field %q", field)
	}

	var arg any = value
	if field == models.FieldPhoto && value == "" {
		arg = nil
	}

	result, err := s.conn.Exec(
		`UPDATE requests SET `+column+` = ? WHERE id = ?`, arg, id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveRequest transitions pending -> approved. The conditional UPDATE is
// the idempotency guard: of two concurrent decisions exactly one wins.
func (s *Store) ApproveRequest(id int64) error {
	result, err := s.conn.Exec(
		`UPDATE requests SET status = ?, moderated_at = ? WHERE id = ? AND status = ?`,
		models.StatusApproved, time.Now().UTC(), id, models.StatusPending,
	)
	if err != nil {
		return err
	}
	return s.checkModerated(result, id)
}

// RejectRequest transitions pending -> rejected and stores the reason.
func (s *Store) RejectRequest(id int64, reason string) error {
	result, err := s.conn.Exec(
		`UPDATE requests SET status = ?, reject_reason = ?, moderated_at = ? WHERE id = ? AND status = ?`,
		models.StatusRejected, reason, time.Now().UTC(), id, models.StatusPending,
	)
	if err != nil {
		return err
	}
	return s.checkModerated(result, id)
}

func (s *Store) checkModerated(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := s.conn.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM requests WHERE id = ?)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyModerated
}

// InsertOffer records a seller's offer. The target request may be in any
// status: the deep link that led here was minted at publish time.
func (s *Store) InsertOffer(requestID, sellerID int64, price decimal.Decimal, days, condition int, photoFileID string) (*models.Offer, error) {
	now := time.Now().UTC()
	result, err := s.conn.Exec(
		`INSERT INTO offers (request_id, seller_id, price, days, cond, photo_file_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID, sellerID, price.String(), days, condition, nullable(photoFileID), now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Offer{
		ID:          id,
		RequestID:   requestID,
		SellerID:    sellerID,
		Price:       price,
		Days:        days,
		Condition:   condition,
		PhotoFileID: photoFileID,
		CreatedAt:   now,
	}, nil
}

// GetOffer retrieves an offer by id.
func (s *Store) GetOffer(id int64) (*models.Offer, error) {
	var (
		o       models.Offer
		price   string
		photoID sql.NullString
	)
	err := s.conn.QueryRow(
		`SELECT id, request_id, seller_id, price, days, cond, photo_file_id, created_at
		 FROM offers WHERE id = ?`, id,
	).Scan(&o.ID, &o.RequestID, &o.SellerID, &price, &o.Days, &o.Condition, &photoID, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("corrupt price on offer %d: %w", id, err)
	}
	if photoID.Valid {
		o.PhotoFileID = photoID.String
	}

	return &o, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRequest(row scannable) (*models.Request, error) {
	var (
		req          models.Request
		photoID      sql.NullString
		moderatedAt  sql.NullTime
		rejectReason sql.NullString
	)

	err := row.Scan(
		&req.ID, &req.UserID, &req.PrivateTitle, &req.ItemTitle, &req.Description,
		&photoID, &req.Status, &req.CreatedAt, &moderatedAt, &rejectReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if photoID.Valid {
		req.PhotoFileID = photoID.String
	}
	if moderatedAt.Valid {
		req.ModeratedAt = &moderatedAt.Time
	}
	if rejectReason.Valid {
		req.RejectReason = rejectReason.String
	}

	return &req, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
