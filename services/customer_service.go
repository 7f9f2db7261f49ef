package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// CustomerService is the diner directory. Customers are never deleted.
type CustomerService struct {
	customers CustomerStore
}

func NewCustomerService(customers CustomerStore) *CustomerService {
	return &CustomerService{customers: customers}
}

// Identify returns the customer with this phone number, creating a CASUAL
// customer on first contact.
func (s *CustomerService) Identify(ctx context.Context, phone string) (*models.Customer, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByPhone(ctx, phone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	customer = &models.Customer{Phone: &phone, Role: models.RoleCasual}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("New customer %d captured by phone", customer.ID)
	return customer, nil
}

type Registration struct {
	Phone     string
	Email     string
	FirstName string
	LastName  string
}

// Register stores a named customer. A known phone number updates the
// existing row instead of creating a second one.
func (s *CustomerService) Register(ctx context.Context, reg Registration) (*models.Customer, error) {
	first := strings.TrimSpace(reg.FirstName)
	last := strings.TrimSpace(reg.LastName)
	if first == "" || last == "" {
		return nil, userErr(ErrValidation, "first and last name are required")
	}

	var phone, email *string
	if strings.TrimSpace(reg.Phone) != "" {
		p, err := normalizePhone(reg.Phone)
		if err != nil {
			return nil, err
		}
		phone = &p
	}
	if strings.TrimSpace(reg.Email) != "" {
		addr, err := mail.ParseAddress(strings.TrimSpace(reg.Email))
		if err != nil {
			return nil, userErr(ErrValidation, "email address is not valid")
		}
		email = &addr.Address
	}
	if phone == nil && email == nil {
		return nil, userErr(ErrValidation, "a phone number or email address is required")
	}

	if phone != nil {
		existing, err := s.customers.GetByPhone(ctx, *phone)
		if err == nil {
			existing.FirstName = first
			existing.LastName = last
			if email != nil {
				existing.Email = email
			}
			if err := s.customers.Update(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	customer := &models.Customer{
		Phone:     phone,
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      models.RoleCasual,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// UpgradeToSubscriber turns a CASUAL customer into a SUBSCRIBER and assigns
// a subscriber number.
func (s *CustomerService) UpgradeToSubscriber(ctx context.Context, customerID uint) (*models.Customer, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, customerLookupError(customerID, err)
	}
	if customer.Role == models.RoleSubscriber {
		return nil, userErr(ErrInvalidState, "customer %d is already a subscriber", customerID)
	}

	number := fmt.Sprintf("SUB-%06d", customer.ID)
	customer.Role = models.RoleSubscriber
	customer.SubscriberNumber = &number
	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Customer %d upgraded to subscriber %s", customer.ID, number)
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, customerLookupError(id, err)
	}
	return customer, nil
}

// normalizePhone keeps digits and a leading plus.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", userErr(ErrValidation, "phone number contains invalid characters")
		}
	}
	phone := b.String()
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 6 || len(digits) > 15 {
		return "", userErr(ErrValidation, "phone number must have 6 to 15 digits")
	}
	return phone, nil
}
