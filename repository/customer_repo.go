package repository

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	DB *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return wrap("create customer", r.DB.WithContext(ctx).Create(customer).Error)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, wrap("get customer", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error; err != nil {
		return nil, wrap("get customer by phone", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return wrap("update customer", r.DB.WithContext(ctx).Save(customer).Error)
}
