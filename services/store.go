// services/store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voltflow-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicatePhone = errors.New("phone already registered")
)

// Store is the persistence adapter. All lookups are keyed by phone number.
type Store interface {
	CreateTradie(ctx context.Context, tradie *models.Tradie) error
	GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	LogMessage(ctx context.Context, phone, incoming, outgoing string) (*models.Message, error)
	RecentMessages(ctx context.Context, phone string, limit int) ([]models.Message, error)
	LastMessage(ctx context.Context, phone string) (*models.Message, error)
	MessagesBetween(ctx context.Context, start, end time.Time) ([]models.Message, error)
	CustomerNames(ctx context.Context, phones []string) (map[string]string, error)
	SaveVoicemail(ctx context.Context, vm *models.Voicemail) error
	VoicemailsForPhone(ctx context.Context, phone string, limit int) ([]models.Voicemail, error)
}

// GormStore implements Store on SQLite or PostgreSQL
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateTradie(ctx context.Context, tradie *models.Tradie) error {
	var existing models.Tradie
	err := s.db.WithContext(ctx).Where("phone = ?", tradie.Phone).First(&existing).Error
	if err == nil {
		return ErrDuplicatePhone
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup tradie: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(tradie).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("create tradie: %w", err)
	}
	return nil
}

func (s *GormStore) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &customer, nil
}

// SaveCustomer inserts or updates the customer row for customer.Phone. Two
// concurrent saves for one phone resolve as last write wins.
func (s *GormStore) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	// the primary key is left to the database so only the phone can conflict
	row := models.Customer{
		Phone:         customer.Phone,
		Name:          customer.Name,
		WasIntroduced: customer.WasIntroduced,
		IntroducedAt:  customer.IntroducedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "was_introduced", "introduced_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save customer: %w", err)
	}
	if customer.ID == 0 {
		customer.ID = row.ID
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = row.CreatedAt
	}
	customer.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *GormStore) LogMessage(ctx context.Context, phone, incoming, outgoing string) (*models.Message, error) {
	msg := &models.Message{Phone: phone, Incoming: incoming, Outgoing: outgoing}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("log message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns up to limit rows for phone, newest first
func (s *GormStore) RecentMessages(ctx context.Context, phone string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	q := s.db.WithContext(ctx).Where("phone = ?", phone).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return msgs, nil
}

func (s *GormStore) LastMessage(ctx context.Context, phone string) (*models.Message, error) {
	msgs, err := s.RecentMessages(ctx, phone, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}
	return &msgs[0], nil
}

// MessagesBetween returns rows with start <= created_at <= end, oldest first
func (s *GormStore) MessagesBetween(ctx context.Context, start, end time.Time) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messages between: %w", err)
	}
	return msgs, nil
}

// CustomerNames maps phone to stored name for the customers that have one
func (s *GormStore) CustomerNames(ctx context.Context, phones []string) (map[string]string, error) {
	names := make(map[string]string, len(phones))
	if len(phones) == 0 {
		return names, nil
	}
	var customers []models.Customer
	err := s.db.WithContext(ctx).
		Where("phone IN ? AND name <> ''", phones).
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("customer names: %w", err)
	}
	for _, c := range customers {
		names[c.Phone] = c.Name
	}
	return names, nil
}

func (s *GormStore) SaveVoicemail(ctx context.Context, vm *models.Voicemail) error {
	if err := s.db.WithContext(ctx).Create(vm).Error; err != nil {
		return fmt.Errorf("save voicemail: %w", err)
	}
	return nil
}

func (s *GormStore) VoicemailsForPhone(ctx context.Context, phone string, limit int) ([]models.Voicemail, error) {
	var vms []models.Voicemail
	q := s.db.WithContext(ctx).Where("phone = ?", phone).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&vms).Error; err != nil {
		return nil, fmt.Errorf("voicemails: %w", err)
	}
	return vms, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
